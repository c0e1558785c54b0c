package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/yeisme/blobdrive/docs"
	"github.com/yeisme/blobdrive/pkg/configs"
)

// RegisterSwaggerRoute 调试模式下注册 Swagger 文档路由.
func RegisterSwaggerRoute(engine *gin.Engine, cfg *configs.AppConfig) {
	if !cfg.Server.Debug {
		return
	}

	docs.SwaggerInfo.Host = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	docs.SwaggerInfo.Version = configs.AppVersion

	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
