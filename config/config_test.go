package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 清空 Load 读取的环境变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "FRONTEND_URL", "NODE_ENV", "APP_ENV", "MONGODB_URI",
		"TODO_DATABASE_URL", "TODO_DATABASE_NAME", "DB_CONNECT_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Empty(t, cfg.Store.URL)
	assert.Equal(t, 5*time.Second, cfg.Store.ConnectTimeout)
	assert.Equal(t, ":5000", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Run("MONGODB_URI and FRONTEND_URL", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017/todo")
		t.Setenv("FRONTEND_URL", "http://localhost:5173")
		t.Setenv("PORT", "8080")
		t.Setenv("NODE_ENV", "production")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "mongodb://localhost:27017/todo", cfg.Store.URL)
		assert.Equal(t, "http://localhost:5173", cfg.Server.AllowedOrigin)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "production", cfg.Server.Environment)
	})

	t.Run("TODO_DATABASE_URL wins over MONGODB_URI", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MONGODB_URI", "mongodb://localhost:27017/todo")
		t.Setenv("TODO_DATABASE_URL", "sqlite://./todos.db")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "sqlite://./todos.db", cfg.Store.URL)
	})

	t.Run("DB_CONNECT_TIMEOUT accepts milliseconds and durations", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DB_CONNECT_TIMEOUT", "2500")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, 2500*time.Millisecond, cfg.Store.ConnectTimeout)

		t.Setenv("DB_CONNECT_TIMEOUT", "10s")
		cfg, err = Load("")
		require.NoError(t, err)
		assert.Equal(t, 10*time.Second, cfg.Store.ConnectTimeout)
	})

	t.Run("invalid PORT", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "http")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid PORT")
	})
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7789
  allowed_origin: https://todo.example.com
store:
  url: sqlite://./todos.db
  connect_timeout: 3s
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7789, cfg.Server.Port)
	assert.Equal(t, "https://todo.example.com", cfg.Server.AllowedOrigin)
	assert.Equal(t, "sqlite://./todos.db", cfg.Store.URL)
	assert.Equal(t, 3*time.Second, cfg.Store.ConnectTimeout)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "warn", cfg.Logging.Level, "env overrides the file")
	assert.Equal(t, "todo", cfg.Store.Database, "defaults survive partial files")
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "loud")
		cfg, err := Load("")
		require.NoError(t, err, "Load does not validate")
		assert.ErrorContains(t, cfg.Validate(), "invalid configuration")
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.ErrorContains(t, cfg.Validate(), "invalid configuration")
	})
}
