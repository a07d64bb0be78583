package config

import (
	"errors"
	"time"
)

// Config 应用配置根结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	AI       AIConfig       `mapstructure:"ai"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
}

// AIConfig 外部对话补全服务配置
type AIConfig struct {
	Provider string          `mapstructure:"provider"`
	APIKey   string          `mapstructure:"api_key"`
	Model    string          `mapstructure:"model"`
	BaseURL  string          `mapstructure:"base_url"`
	Timeout  time.Duration   `mapstructure:"timeout"`
	Options  AIOptionsConfig `mapstructure:"options"`
}

// AIOptionsConfig AI 模型参数（固定配置，不接受用户输入）
type AIOptionsConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	TopP        float64 `mapstructure:"top_p"`
}

// LogConfig 日志配置 (Zerolog)
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	TimeFormat string `mapstructure:"time_format"`
}

// DatabaseConfig 关系型数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres, mysql, sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	Backend    string        `mapstructure:"backend"` // memory, redis
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
	Secure     bool          `mapstructure:"secure"`
}

var (
	ErrMissingAPIKey = errors.New("ai.api_key is required (set ROBOCHAT_AI_API_KEY)")
	ErrMissingDSN    = errors.New("database.dsn is required (set ROBOCHAT_DATABASE_DSN)")
)

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validModes := map[string]bool{"debug": true, "release": true, "test": true}
	if !validModes[c.Server.Mode] {
		return errors.New("invalid server mode, must be debug/release/test")
	}

	if err := c.Database.Validate(); err != nil {
		return err
	}

	if c.AI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.AI.Timeout <= 0 {
		return errors.New("ai.timeout must be positive")
	}

	switch c.Session.Backend {
	case "memory", "":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required when session.backend is redis")
		}
	default:
		return errors.New("invalid session backend, must be memory/redis")
	}

	return nil
}

// Validate 验证数据库配置
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return errors.New("invalid database driver, must be postgres/mysql/sqlite")
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}
