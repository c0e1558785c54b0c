// Package log 提供基于 zerolog 的全局日志，输出到 stderr，可选按 lumberjack 轮转写入文件.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yeisme/blobdrive/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger，重复调用无副作用.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()
	logger = build(cfg.Log, cfg.Server.Debug, os.Stderr)
	log.Logger = logger
}

// build 按配置构造 logger. 调试模式附带调用位置并切换 gin 模式.
func build(logCfg configs.LogConfig, debug bool, console io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(logCfg.Level))
	if err != nil || logCfg.Level == "" {
		if logCfg.Level != "" {
			fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", logCfg.Level)
		}

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	writers := []io.Writer{
		zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = console
			w.TimeFormat = time.Kitchen
		}),
	}

	if logCfg.EnableFile && logCfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   logCfg.FilePath,
			MaxSize:    logCfg.MaxSize,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAge,
			Compress:   logCfg.Compress,
		})
	}

	zctx := zerolog.New(io.MultiWriter(writers...)).With().Timestamp()
	if debug {
		zctx = zctx.Caller()

		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return zctx.Logger()
}

// Logger 返回全局 logger，首次使用时初始化.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

type identityKey struct{}

// WithIdentity 将调用方身份写入 context，便于下游日志关联.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// Ctx 返回附带调用方身份（若存在）的 logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()

	identity, _ := ctx.Value(identityKey{}).(string)
	if identity == "" {
		return l
	}

	sub := l.With().Str("identity", identity).Logger()

	return &sub
}

// GinWriter 把 Gin 文本行转发为 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg == "" {
		return len(p), nil
	}

	w.logger.WithLevel(w.level).Str("source", "gin").Msg(msg)

	return len(p), nil
}
