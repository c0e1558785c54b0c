package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/scheduler"
)

// RuntimeMiddleware 将 Runtime 注入请求 context，服务层通过 service.RuntimeFrom 取用.
func RuntimeMiddleware(rt *service.Runtime) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(service.WithRuntime(c.Request.Context(), rt))
		c.Next()
	}
}

type schedulerKey struct{}

// SchedulerMiddleware 将 scheduler 注入 context.
func SchedulerMiddleware(sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), schedulerKey{}, sched))
		c.Next()
	}
}

// GetScheduler 从 context 取出 scheduler，不存在时返回 nil.
func GetScheduler(c *gin.Context) *scheduler.Scheduler {
	sched, _ := c.Request.Context().Value(schedulerKey{}).(*scheduler.Scheduler)
	return sched
}
