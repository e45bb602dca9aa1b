package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config 服务配置
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	Environment string `yaml:"environment" validate:"required"`
	// AllowedOrigin 允许跨域的前端地址，为空时允许任意来源
	AllowedOrigin string `yaml:"allowed_origin" validate:"omitempty,url"`
}

// StoreConfig 持久化存储配置，URL 为空时只用内存存储
type StoreConfig struct {
	URL            string        `yaml:"url"`
	Database       string        `yaml:"database" validate:"required"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gt=0"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        5000,
			Environment: "development",
		},
		Store: StoreConfig{
			Database:       "todo",
			ConnectTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load 依次应用默认值、YAML 文件和环境变量，path 可以为空
// 不做校验，调用方在应用命令行参数后调用 Validate
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Server.Port = p
	}
	if origin := os.Getenv("FRONTEND_URL"); origin != "" {
		c.Server.AllowedOrigin = origin
	}
	// APP_ENV 优先于 NODE_ENV
	if env := os.Getenv("NODE_ENV"); env != "" {
		c.Server.Environment = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Server.Environment = env
	}

	// TODO_DATABASE_URL 优先于 MONGODB_URI
	if url := os.Getenv("MONGODB_URI"); url != "" {
		c.Store.URL = url
	}
	if url := os.Getenv("TODO_DATABASE_URL"); url != "" {
		c.Store.URL = url
	}
	if db := os.Getenv("TODO_DATABASE_NAME"); db != "" {
		c.Store.Database = db
	}
	if timeout := os.Getenv("DB_CONNECT_TIMEOUT"); timeout != "" {
		d, err := parseTimeout(timeout)
		if err != nil {
			return fmt.Errorf("invalid DB_CONNECT_TIMEOUT %q: %w", timeout, err)
		}
		c.Store.ConnectTimeout = d
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	return nil
}

// parseTimeout 支持 Go duration（"5s"）或毫秒数（"5000"）
func parseTimeout(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate 校验字段约束
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Addr 返回监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
