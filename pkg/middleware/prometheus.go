package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/metrics"
)

// PrometheusMiddleware Prometheus 监控中间件. endpoint 使用路由模板，避免路径参数撑大基数.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		metrics.ActiveConnections.Inc()
		defer metrics.ActiveConnections.Dec()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		method := c.Request.Method
		metrics.RequestCounter.WithLabelValues(method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}
