package configuration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
store:
  driver: mongo
  mongo:
    uri: mongodb://db:27017
    database: chat
realtime:
  driver: nats
  nats:
    url: nats://broker:4222
server:
  app_port: 9000
  allowed_origins: [https://lumen.example]
auth:
  jwt_secret: s3cret
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StoreMongo, cfg.Store.Driver)
	assert.Equal(t, "mongodb://db:27017", cfg.Store.Mongo.Uri)
	assert.Equal(t, "chat", cfg.Store.Mongo.Database)
	assert.Equal(t, "direct_messages", cfg.Store.Mongo.MessagesCollection)
	assert.Equal(t, RealtimeNats, cfg.Realtime.Driver)
	assert.Equal(t, "lumen", cfg.Realtime.Nats.SubjectPrefix)
	assert.Equal(t, 9000, cfg.Server.AppPort)
	assert.Equal(t, 8081, cfg.Server.SocketPort)
	assert.Equal(t, []string{"https://lumen.example"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_JSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"auth": {"jwtSecret": "x"}, "server": {"socketRoute": "/live"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, "lumen.db", cfg.Store.SQLite.Path)
	assert.Equal(t, RealtimeLocal, cfg.Realtime.Driver)
	assert.Equal(t, "live", cfg.Server.SocketRoute)
	assert.Equal(t, 120, cfg.Server.RateLimit.Requests)
	assert.Equal(t, "info", cfg.Logging.Level)

	window, err := cfg.Server.RateLimit.WindowDuration()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, window)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.json", `{"auth": {"jwtSecret": "file"}}`)

	t.Setenv("LUMEN_JWT_SECRET", "env")
	t.Setenv("LUMEN_SQLITE_PATH", "/tmp/other.db")
	t.Setenv("LUMEN_APP_PORT", "7000")
	t.Setenv("LUMEN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env", cfg.Auth.JwtSecret)
	assert.Equal(t, "/tmp/other.db", cfg.Store.SQLite.Path)
	assert.Equal(t, 7000, cfg.Server.AppPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_DotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LUMEN_JWT_SECRET=from-dotenv\n"), 0o600))

	// t.Setenv registers a restore of the original value for the variable
	// godotenv is about to set.
	t.Setenv("LUMEN_JWT_SECRET", "")
	require.NoError(t, os.Unsetenv("LUMEN_JWT_SECRET"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Auth.JwtSecret)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Store:    StoreConfig{Driver: StoreMongo},
		Realtime: RealtimeConfig{Driver: RealtimeNats},
	}
	cfg.applyDefaults()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.mongo.uri")
	assert.Contains(t, err.Error(), "realtime.nats.url")
	assert.Contains(t, err.Error(), "auth.jwtSecret")

	cfg = &Config{Store: StoreConfig{Driver: "redis"}, Auth: AuthConfig{JwtSecret: "x"}}
	cfg.applyDefaults()
	assert.ErrorContains(t, cfg.Validate(), `unknown store driver "redis"`)

	cfg = &Config{Auth: AuthConfig{JwtSecret: "x"}, Server: ServerConfig{RateLimit: RateLimitConfig{Window: "-1s"}}}
	cfg.applyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "server.rateLimit.window")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))

	_, err = NewLogger(LoggingConfig{Level: "loud"})
	assert.Error(t, err)
}
