package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/blobdrive/pkg/tracing"
)

// TracingMiddleware 创建 Gin 的分布式追踪中间件. 上游的 traceparent 会被继续.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		parent := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracing.StartSpan(parent, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", c.Request.URL.Path),
				attribute.String("http.host", c.Request.Host),
				attribute.String("http.user_agent", c.Request.UserAgent()),
				attribute.String("net.peer.ip", c.ClientIP()),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		if sc := span.SpanContext(); sc.HasTraceID() {
			c.Header("X-Trace-Id", sc.TraceID().String())
		}

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))

		if id := Identity(c); id != "" {
			span.SetAttributes(attribute.String("blobdrive.identity", id))
		}

		switch {
		case len(c.Errors) > 0:
			span.SetStatus(codes.Error, c.Errors.String())
		case status >= 500:
			span.SetStatus(codes.Error, "server error")
		default:
			span.SetStatus(codes.Ok, "")
		}
	}
}
