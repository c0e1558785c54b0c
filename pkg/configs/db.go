package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

type (
	DBType string
)

const (
	// PostgreSQL 协议.
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgres"
	Pg         DBType = "pg"

	// MySQL 协议.
	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"
	// SQLite 协议.
	SQLite DBType = "sqlite"
)

const (
	DefaultDatabaseType     = SQLite      // 默认使用嵌入式 SQLite，开箱即用
	DefaultDatabaseHost     = "localhost" // 默认数据库主机
	DefaultDatabasePort     = 5432        // 默认数据库端口
	DefaultDatabaseUser     = "postgres"  // 默认数据库用户
	DefaultDatabasePassword = ""          // 默认数据库密码
	DefaultDatabaseName     = "blobdrive" // 默认数据库名称
	DefaultDatabaseSSLMode  = "disable"   // 默认数据库SSL模式
	DefaultMaxOpenConns     = 10          // 默认最大打开连接数
	DefaultMaxIdleConns     = 5           // 默认最大空闲连接数
	DefaultAutoMigrate      = true        // 启动时自动迁移表结构
	DefaultDBLogLevel       = "warn"      // GORM 日志级别
)

// DBConfig 数据库配置. 元数据库保存文件登记表、分享链接与操作日志.
type DBConfig struct {
	Type         DBType `mapstructure:"type"           rule:"oneof=postgresql postgres pg mysql mariadb sqlite"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"           rule:"min=0,max=65535"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"       rule:"required"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns" rule:"min=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" rule:"min=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	LogLevel     string `mapstructure:"log_level"      rule:"oneof=silent error warn info"`
}

// GetDBType 返回数据库类型的可读名称.
func (c *DBConfig) GetDBType() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return "Unknown"
	}
}

// GetDSN 根据数据库类型生成连接字符串，未知类型返回空串.
func (c *DBConfig) GetDSN() string {
	dsnMap := map[DBType]func() string{
		PostgreSQL: c.getPgSQLDSN,
		Postgres:   c.getPgSQLDSN,
		Pg:         c.getPgSQLDSN,
		MySQL:      c.getMySQLDSN,
		MariaDB:    c.getMySQLDSN,
		SQLite:     c.getSQLiteDSN,
	}

	if fn, ok := dsnMap[c.Type]; ok {
		return fn()
	}

	return ""
}

func (c *DBConfig) getPgSQLDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

func (c *DBConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// getSQLiteDSN 支持 ":memory:" 以便本地调试.
func (c *DBConfig) getSQLiteDSN() string {
	if c.Database == ":memory:" {
		return "file::memory:?cache=shared"
	}

	return fmt.Sprintf("file:%s.db?_pragma=busy_timeout(5000)", c.Database)
}

func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.type", DefaultDatabaseType)
	v.SetDefault("db.host", DefaultDatabaseHost)
	v.SetDefault("db.port", DefaultDatabasePort)
	v.SetDefault("db.user", DefaultDatabaseUser)
	v.SetDefault("db.password", DefaultDatabasePassword)
	v.SetDefault("db.database", DefaultDatabaseName)
	v.SetDefault("db.sslmode", DefaultDatabaseSSLMode)
	v.SetDefault("db.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("db.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("db.auto_migrate", DefaultAutoMigrate)
	v.SetDefault("db.log_level", DefaultDBLogLevel)
}
