// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/jobs"
	"github.com/yeisme/blobdrive/pkg/internal/router"
	"github.com/yeisme/blobdrive/pkg/internal/service"
	"github.com/yeisme/blobdrive/pkg/internal/storage"
	"github.com/yeisme/blobdrive/pkg/log"
	"github.com/yeisme/blobdrive/pkg/metrics"
	"github.com/yeisme/blobdrive/pkg/rule"
	"github.com/yeisme/blobdrive/pkg/scheduler"
	"github.com/yeisme/blobdrive/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

// App 持有 HTTP 引擎与进程级资源.
type App struct {
	Engine  *gin.Engine
	Runtime *service.Runtime

	config    *configs.AppConfig
	storage   *storage.Manager
	scheduler *scheduler.Scheduler
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewApp 加载配置并初始化日志、追踪、指标、存储、定时任务与路由.
func NewApp(configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()
	if err := rule.ValidateStruct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log.Init()

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	// 初始化追踪
	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// 初始化监控
	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{config: config, ctx: ctx, cancel: cancel}

	var err error
	if a.storage, err = storage.Open(ctx, config); err != nil {
		cancel()
		return nil, err
	}

	if a.Runtime, err = service.NewRuntime(config, a.storage); err != nil {
		a.release()
		return nil, err
	}

	if err := a.startConsumers(); err != nil {
		a.release()
		return nil, err
	}

	if err := a.startJobs(); err != nil {
		a.release()
		return nil, err
	}

	a.Engine = router.New(a.Runtime, a.scheduler)

	if config.Metrics.Enabled {
		_ = metrics.StartMetricsServer(config.Metrics, a.Engine)
	}

	return a, nil
}

// startConsumers 挂载操作日志消费者并启动事件 router.
func (a *App) startConsumers() error {
	n := service.NewActivityRecorder(a.Runtime).Register()
	if n == 0 {
		return nil
	}

	mq := a.storage.MQ

	go func() {
		if err := mq.Run(a.ctx); err != nil {
			log.Logger().Error().Err(err).Msg("event router stopped")
		}
	}()

	select {
	case <-mq.Running():
	case <-time.After(5 * time.Second):
		return errors.New("event router did not start")
	}

	log.Logger().Info().Int("topics", n).Msg("activity consumer started")

	return nil
}

func (a *App) startJobs() error {
	if !a.config.Jobs.Enabled {
		return nil
	}

	sched, err := scheduler.NewScheduler(a.ctx)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	n, err := jobs.RegisterCronJobs(sched, a.Runtime)
	if err != nil {
		_ = sched.Stop()
		return err
	}

	sched.Start()
	a.scheduler = sched

	log.Logger().Info().Int("jobs", n).Msg("scheduler started")

	return nil
}

// Run 启动 HTTP 服务，收到 SIGINT/SIGTERM 后优雅退出.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(a.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort(a.config.Server.Host, strconv.Itoa(a.config.Server.Port)),
		Handler:           a.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Logger().Info().Str("addr", srv.Addr).Str("version", configs.AppVersion).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var serveErr error

	select {
	case <-ctx.Done():
		log.Logger().Info().Msg("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logger().Error().Err(err).Msg("http server shutdown failed")
	}

	return errors.Join(serveErr, a.Close(shutdownCtx))
}

// Close 停止定时任务与事件消费，关闭存储资源并刷新追踪数据.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop())
	}

	a.cancel()

	if a.storage != nil {
		errs = append(errs, a.storage.Close())
	}

	errs = append(errs, tracing.ShutdownTracer(ctx))

	return errors.Join(errs...)
}

func (a *App) release() {
	_ = a.storage.Close()
	a.cancel()
}
