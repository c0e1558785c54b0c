package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/handle"
	"github.com/yeisme/blobdrive/pkg/middleware"
)

// RegisterSharesRoutes 注册文件分享相关路由.
func RegisterSharesRoutes(g *gin.RouterGroup, cfg *configs.AppConfig) {
	sharesRoutes := g.Group("/shares")
	{
		sharesRoutes.POST("", handle.CreateShare)                                                     // 创建分享链接
		sharesRoutes.GET("", handle.ListShares)                                                       // 我的分享链接
		sharesRoutes.GET("/:shareId", middleware.ShareResolveLimit(cfg.RateLimit), handle.ResolveShare) // 解析分享链接
	}
}
