// Package router 管理路由配置，把处理器与中间件绑定到 gin 引擎.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/handle"
	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/signer"
	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
	"github.com/yeisme/blobdrive/pkg/middleware"
	"github.com/yeisme/blobdrive/pkg/scheduler"
)

// APIPrefix 业务接口前缀.
const APIPrefix = "/api/v1"

// groupcachePath groupcache 节点间通信路径，与 HTTPPool 默认路径一致.
const groupcachePath = "/_groupcache/"

// New 创建挂载全部路由的 gin 引擎. sched 可以为 nil.
//
// 中间件顺序：恢复、日志、追踪、指标、CORS、依赖注入、超时、身份、限流.
func New(rt *service.Runtime, sched *scheduler.Scheduler) *gin.Engine {
	cfg := rt.Config

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.GinLoggerMiddleware(),
		middleware.TracingMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CORSMiddleware(*cfg),
		middleware.RuntimeMiddleware(rt),
		middleware.SchedulerMiddleware(sched),
		middleware.TimeoutMiddleware(cfg.Server.GetTimeoutDuration()),
		middleware.AuthMiddleware(cfg.Auth),
		middleware.RateLimitMiddleware(cfg.RateLimit),
	)

	Register(engine, cfg)

	return engine
}

// Register 把全部路由绑定到 engine.
func Register(engine *gin.Engine, cfg *configs.AppConfig) {
	api := engine.Group(APIPrefix)

	RegisterHealthCheckRoute(api)
	RegisterFilesRoutes(api, cfg)
	RegisterFoldersRoutes(api)
	RegisterTrashRoutes(api)
	RegisterSharesRoutes(api, cfg)
	RegisterSchedulerRoutes(api)
	RegisterGatewayRoute(engine)
	RegisterSwaggerRoute(engine, cfg)

	if h := kv.GroupcacheHandler(); h != nil {
		engine.Any(groupcachePath+"*any", gin.WrapH(h))
	}
}

// RegisterGatewayRoute 注册只读凭证网关. 位于 /api/v1 之外，不要求身份.
func RegisterGatewayRoute(engine *gin.Engine) {
	engine.GET(signer.GatewayPrefix+"/:container/*key", handle.BlobGateway)
	engine.HEAD(signer.GatewayPrefix+"/:container/*key", handle.BlobGateway)
}

// listing 列表类响应的 ETag 与压缩. ETag 在外层，对压缩后的内容计算.
func listing() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.ETagMiddleware(0),
		gzip.Gzip(gzip.DefaultCompression),
	}
}
