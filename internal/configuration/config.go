package configuration

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"

	RealtimeLocal = "local"
	RealtimeNats  = "nats"
)

type MongoConfig struct {
	Uri                string `json:"uri" yaml:"uri"`
	Database           string `json:"database" yaml:"database"`
	MessagesCollection string `json:"messagesCollection" yaml:"messages_collection"`
	ProfilesCollection string `json:"profilesCollection" yaml:"profiles_collection"`
}

type SQLiteConfig struct {
	Path string `json:"path" yaml:"path"`
}

type StoreConfig struct {
	Driver string       `json:"driver" yaml:"driver"` // mongo, sqlite
	Mongo  MongoConfig  `json:"mongo" yaml:"mongo"`
	SQLite SQLiteConfig `json:"sqlite" yaml:"sqlite"`
}

type NatsConfig struct {
	Url           string `json:"url" yaml:"url"`
	SubjectPrefix string `json:"subjectPrefix" yaml:"subject_prefix"`
}

type RealtimeConfig struct {
	Driver    string     `json:"driver" yaml:"driver"` // local, nats
	QueueSize int        `json:"queueSize" yaml:"queue_size"`
	Nats      NatsConfig `json:"nats" yaml:"nats"`
}

type RateLimitConfig struct {
	Requests int    `json:"requests" yaml:"requests"`
	Window   string `json:"window" yaml:"window"`
}

type ServerConfig struct {
	AppPort        int             `json:"app_port" yaml:"app_port"`
	SocketPort     int             `json:"socket_port" yaml:"socket_port"`
	SocketRoute    string          `json:"socketRoute" yaml:"socket_route"`
	AllowedOrigins []string        `json:"allowedOrigins" yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `json:"rateLimit" yaml:"rate_limit"`
}

type AuthConfig struct {
	JwtSecret string `json:"jwtSecret" yaml:"jwt_secret"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store"`
	Realtime RealtimeConfig `json:"realtime" yaml:"realtime"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// LoadConfig reads config_path (JSON, or YAML for .yaml/.yml), applies a
// .env file found next to it or in the working directory, LUMEN_*
// environment overrides and defaults, then validates the result.
func LoadConfig(config_path string) (*Config, error) {
	loadDotEnv(config_path)

	var config Config
	if config_path != "" {
		file, err := os.ReadFile(config_path)
		if err != nil {
			return nil, err
		}

		switch strings.ToLower(filepath.Ext(config_path)) {
		case ".yaml", ".yml":
			err = yaml.Unmarshal(file, &config)
		default:
			err = json.Unmarshal(file, &config)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", config_path, err)
		}
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func loadDotEnv(config_path string) {
	candidates := []string{".env"}
	if config_path != "" {
		candidates = append([]string{filepath.Join(filepath.Dir(config_path), ".env")}, candidates...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			// Existing variables win over the file
			_ = godotenv.Load(path)
			return
		}
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LUMEN_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("LUMEN_MONGO_URI"); v != "" {
		c.Store.Mongo.Uri = v
	}
	if v := os.Getenv("LUMEN_MONGO_DATABASE"); v != "" {
		c.Store.Mongo.Database = v
	}
	if v := os.Getenv("LUMEN_SQLITE_PATH"); v != "" {
		c.Store.SQLite.Path = v
	}
	if v := os.Getenv("LUMEN_REALTIME_DRIVER"); v != "" {
		c.Realtime.Driver = v
	}
	if v := os.Getenv("LUMEN_NATS_URL"); v != "" {
		c.Realtime.Nats.Url = v
	}
	if v := os.Getenv("LUMEN_JWT_SECRET"); v != "" {
		c.Auth.JwtSecret = v
	}
	if v := os.Getenv("LUMEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v, err := strconv.Atoi(os.Getenv("LUMEN_APP_PORT")); err == nil {
		c.Server.AppPort = v
	}
	if v, err := strconv.Atoi(os.Getenv("LUMEN_SOCKET_PORT")); err == nil {
		c.Server.SocketPort = v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = StoreSQLite
	}
	if c.Store.SQLite.Path == "" {
		c.Store.SQLite.Path = "lumen.db"
	}
	if c.Store.Mongo.Database == "" {
		c.Store.Mongo.Database = "lumen"
	}
	if c.Store.Mongo.MessagesCollection == "" {
		c.Store.Mongo.MessagesCollection = "direct_messages"
	}
	if c.Store.Mongo.ProfilesCollection == "" {
		c.Store.Mongo.ProfilesCollection = "profiles"
	}
	if c.Realtime.Driver == "" {
		c.Realtime.Driver = RealtimeLocal
	}
	if c.Realtime.Nats.SubjectPrefix == "" {
		c.Realtime.Nats.SubjectPrefix = "lumen"
	}
	if c.Server.AppPort == 0 {
		c.Server.AppPort = 8080
	}
	if c.Server.SocketPort == 0 {
		c.Server.SocketPort = 8081
	}
	if c.Server.SocketRoute == "" {
		c.Server.SocketRoute = "ws"
	}
	c.Server.SocketRoute = strings.TrimPrefix(c.Server.SocketRoute, "/")
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if c.Server.RateLimit.Requests == 0 {
		c.Server.RateLimit.Requests = 120
	}
	if c.Server.RateLimit.Window == "" {
		c.Server.RateLimit.Window = "1m"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that the selected drivers have what they need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.Mongo.Uri == "" {
			errs = append(errs, errors.New("store.mongo.uri is required for the mongo driver"))
		}
	case StoreSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	switch c.Realtime.Driver {
	case RealtimeNats:
		if c.Realtime.Nats.Url == "" {
			errs = append(errs, errors.New("realtime.nats.url is required for the nats driver"))
		}
	case RealtimeLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown realtime driver %q", c.Realtime.Driver))
	}

	if c.Auth.JwtSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	if _, err := c.Server.RateLimit.WindowDuration(); err != nil {
		errs = append(errs, fmt.Errorf("server.rateLimit.window: %w", err))
	}

	return errors.Join(errs...)
}

// WindowDuration parses the rate limit window.
func (r RateLimitConfig) WindowDuration() (time.Duration, error) {
	d, err := time.ParseDuration(r.Window)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("window must be positive")
	}
	return d, nil
}
