// Package db 管理元数据库连接. 方言按构建标签注册，可通过 no_postgres、no_mysql、no_sqlite 裁剪.
package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/blobdrive/pkg/configs"
	nlog "github.com/yeisme/blobdrive/pkg/log"
)

// DialectorFactory 定义创建 dialector 的函数类型.
type DialectorFactory func(dsn string) gorm.Dialector

// dialectorFactories 存储数据库类型到 dialector 工厂的映射.
var dialectorFactories = map[configs.DBType]DialectorFactory{}

// RegisterDialectorFactory 注册数据库 dialector 工厂函数.
func RegisterDialectorFactory(factory DialectorFactory, dbTypes ...configs.DBType) {
	for _, t := range dbTypes {
		dialectorFactories[t] = factory
	}
}

// GetRegisteredDBTypes 返回已注册的数据库类型列表.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(dialectorFactories))
	for dbType := range dialectorFactories {
		types = append(types, dbType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// Options 连接选项.
type Options struct {
	Metrics bool // 注册 gorm prometheus 插件
}

// New 按配置打开数据库并配置连接池.
func New(ctx context.Context, cfg *configs.DBConfig, opts Options) (*Client, error) {
	dsn := cfg.GetDSN()
	if dsn == "" {
		return nil, fmt.Errorf("failed to generate DSN for database type: %s", cfg.Type)
	}

	factory, exists := dialectorFactories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	gormLogger := logger.New(
		nlog.Logger(),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  parseLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(factory(dsn), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &Client{DB: db}
	if opts.Metrics {
		if err := client.RegisterGORMMetrics(cfg.Database); err != nil {
			return nil, err
		}
	}

	nlog.Logger().Info().
		Str("type", cfg.GetDBType()).
		Str("database", cfg.Database).
		Msg("database connected")

	return client, nil
}

// Wrap 包装已打开的 gorm.DB，测试使用.
func Wrap(db *gorm.DB) *Client {
	return &Client{DB: db}
}

// Migrate 自动迁移给定模型的表结构.
func (c *Client) Migrate(ctx context.Context, models ...any) error {
	if err := c.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}

// HealthCheck 检查数据库连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

const defaultGORMMetricsRefreshInterval = 15 // 秒

// RegisterGORMMetrics 注册连接池指标，使用默认注册表，不单独启动服务器.
func (c *Client) RegisterGORMMetrics(dbName string) error {
	promConfig := gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: defaultGORMMetricsRefreshInterval,
		StartServer:     false,
	}

	if err := c.Use(gormPrometheus.New(promConfig)); err != nil {
		return fmt.Errorf("failed to register GORM prometheus plugin: %w", err)
	}

	return nil
}

func parseLogLevel(s string) logger.LogLevel {
	switch strings.ToLower(s) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
