package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
)

// CORSMiddleware CORS 中间件. 身份请求头需要显式放行.
func CORSMiddleware(cfg configs.AppConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{cfg.Share.AppURL}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "If-None-Match")
	config.AllowHeaders = append(config.AllowHeaders, cfg.Auth.Headers...)
	config.AllowMethods = append(config.AllowMethods, "PATCH")
	config.ExposeHeaders = []string{"ETag", "Content-Disposition"}
	config.AllowFiles = true

	if cfg.Server.Debug || cfg.Share.AppURL == "" {
		config.AllowOrigins = nil
		config.AllowAllOrigins = true
	}

	return cors.New(config)
}
