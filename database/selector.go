package database

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mode 持久化模式
type Mode string

const (
	ModeDurable  Mode = "durable"
	ModeVolatile Mode = "volatile"
	// ModeConnecting 只在启动时的连接尝试尚未结束时出现在健康检查中
	ModeConnecting Mode = "connecting"
)

// DefaultConnectTimeout 启动连接的默认超时
const DefaultConnectTimeout = 5 * time.Second

// StoreConfig 持久化存储的连接描述
type StoreConfig struct {
	URL            string
	Database       string
	ConnectTimeout time.Duration
}

// Selection 启动时选择的结果
type Selection struct {
	Mode    Mode
	Durable Store
	// Err 是降级为内存模式的原因，仅用于日志和健康检查
	Err error
}

// Connect 在限定时间内尝试连接持久化存储
// 失败不会返回错误，而是降级为内存模式，且不会重试
func Connect(ctx context.Context, cfg StoreConfig, logger zerolog.Logger) Selection {
	if strings.TrimSpace(cfg.URL) == "" {
		logger.Warn().Msg("no database URL configured, using in-memory storage")
		return Selection{Mode: ModeVolatile}
	}

	logger.Info().Str("url", MaskURL(cfg.URL)).Msg("attempting database connection")

	store, err := OpenDurable(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("database connection failed, using in-memory storage")
		return Selection{Mode: ModeVolatile, Err: err}
	}

	logger.Info().Str("type", store.Kind()).Msg("database connected successfully")
	return Selection{Mode: ModeDurable, Durable: store}
}

// OpenDurable 按连接串的 scheme 打开对应的持久化存储
func OpenDurable(ctx context.Context, cfg StoreConfig) (Store, error) {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch {
	case strings.HasPrefix(cfg.URL, "mongodb://"), strings.HasPrefix(cfg.URL, "mongodb+srv://"):
		database := cfg.Database
		if database == "" {
			database = "todo"
		}
		return NewMongoStore(ctx, cfg.URL, database, timeout)
	case strings.HasPrefix(cfg.URL, "sqlite://"), strings.HasPrefix(cfg.URL, "file:"):
		return NewSQLiteStore(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database URL scheme: %q", MaskURL(cfg.URL))
	}
}

// credentialsPattern 匹配 scheme://user:password@ 部分，password 一直取到主机前最后一个 @
var credentialsPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]*://[^:/?#@]*):[^/?#]*@`)

// MaskURL 隐藏连接串中的密码
func MaskURL(url string) string {
	return credentialsPattern.ReplaceAllString(url, "${1}:****@")
}
