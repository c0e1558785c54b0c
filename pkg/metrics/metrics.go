// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、文件系统操作与分享链接相关的指标.
//
// Example:
//
//	import "github.com/yeisme/blobdrive/pkg/metrics"
//
//	if err := metrics.InitMetrics(config.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	// 记录指标
//	metrics.ObserveOperation("rename", err, time.Since(start))
package metrics

import (
	"errors"
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/blobdrive/pkg/configs"
)

const namespace = "blobdrive"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of active connections",
		},
	)

	// Operations 文件系统操作计数，outcome 为错误分类.
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vfs",
			Name:      "operations_total",
			Help:      "Virtual filesystem operations by outcome",
		},
		[]string{"op", "outcome"},
	)

	// OperationDuration 文件系统操作耗时.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "vfs",
			Name:      "operation_duration_seconds",
			Help:      "Virtual filesystem operation latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// CapabilityFallbacks 签发只读链接时退回未签名地址的次数.
	CapabilityFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "capability_fallbacks_total",
			Help:      "Read capabilities issued as unsigned URLs",
		},
		[]string{"reason"},
	)

	// CapabilityRejections 网关拒绝的只读凭证.
	CapabilityRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "capability_rejections_total",
			Help:      "Read capabilities rejected by the blob gateway",
		},
		[]string{"reason"},
	)

	// ShareResolutions 分享链接解析结果.
	ShareResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "share",
			Name:      "resolutions_total",
			Help:      "Share link resolutions by outcome",
		},
		[]string{"outcome"},
	)

	// Namespaces 注册表中缓存的命名空间数量.
	Namespaces = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vfs",
			Name:      "namespaces",
			Help:      "Tenant namespaces cached in the registry",
		},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	var err error

	initOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		for _, c := range []prometheus.Collector{
			RequestCounter, RequestDuration, ActiveConnections,
			Operations, OperationDuration, CapabilityFallbacks, CapabilityRejections,
			ShareResolutions, Namespaces,
		} {
			if regErr := registry.Register(c); regErr != nil {
				err = errors.Join(err, regErr)
			}
		}
	})

	return err
}

// Handler 返回同时暴露本包注册表与默认注册表的 HTTP 处理器.
// 数据库连接池与事件总线的指标注册在默认注册表上.
func Handler() http.Handler {
	return promhttp.HandlerFor(prometheus.Gatherers{registry, prometheus.DefaultGatherer}, promhttp.HandlerOpts{})
}

// StartMetricsServer 在 engine 上挂载指标与 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(Handler()))

	// 如果启用pprof，注册pprof端点
	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveOperation 记录一次文件系统操作. outcome 由 classify 决定.
func ObserveOperation(op, outcome string, d time.Duration) {
	Operations.WithLabelValues(op, outcome).Inc()
	OperationDuration.WithLabelValues(op).Observe(d.Seconds())
}
