package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/blobdrive/pkg/internal/signer"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// GinLoggerMiddleware 使用 zerolog 记录请求日志. 5xx 记为 error，4xx 记为 warn.
func GinLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		// 网关 query 中带有凭证签名，不写入日志
		if raw != "" && !strings.HasPrefix(path, signer.GatewayPrefix+"/") {
			path = path + "?" + raw
		}

		status := c.Writer.Status()

		level := zerolog.InfoLevel

		switch {
		case status >= 500:
			level = zerolog.ErrorLevel
		case status >= 400:
			level = zerolog.WarnLevel
		}

		event := nlog.Ctx(c.Request.Context()).WithLevel(level).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("client_ip", c.ClientIP()).
			Int("size", c.Writer.Size())

		if len(c.Errors) > 0 {
			event = event.Str("error", c.Errors.String())
		}

		event.Msg("HTTP request")
	}
}
