package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
	"github.com/yeisme/blobdrive/pkg/internal/types"
)

const healthTimeout = 2 * time.Second

// Health 检查对象存储、数据库与 KV. 任一失败返回 503.
//
//	@Summary	健康检查
//	@Tags		系统
//	@Produce	json
//	@Success	200	{object}	types.HealthResponse
//	@Failure	503	{object}	types.HealthResponse
//	@Router		/api/v1/health [get]
func Health(c *gin.Context) {
	rt := service.RuntimeFrom(c.Request.Context())
	if rt == nil || rt.Storage == nil {
		c.JSON(http.StatusServiceUnavailable, types.HealthResponse{Status: "unhealthy", Components: map[string]string{"runtime": "not initialized"}})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	h := rt.Storage.HealthCheck(ctx)

	resp := types.HealthResponse{
		Status: "ok",
		Components: map[string]string{
			"blob": componentStatus(h.Blob),
			"db":   componentStatus(h.DB),
			"kv":   componentStatus(h.KV),
		},
		Breaker:    blob.BreakerState(rt.Storage.Blob),
		Namespaces: rt.Registry.Len(),
	}

	if rt.Storage.MQ != nil {
		resp.Components["mq"] = string(rt.Storage.MQ.Type())
	}

	status := http.StatusOK
	if !h.OK() {
		resp.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, resp)
}

func componentStatus(err error) string {
	if err == nil {
		return "ok"
	}

	return err.Error()
}
