// Package config provides configuration loading and validation for the application.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Default configuration constants.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultBodyLimit       = "2M"

	DefaultStorageKey = "domains"
	DefaultStorageDir = "data"

	DefaultMongoDBTimeout     = 10 * time.Second
	DefaultMongoDBMaxPoolSize = 100

	DefaultRedisPoolSize = 10

	DefaultCollabTimeout = 15 * time.Second

	DefaultWSBufferSize   = 1024
	DefaultWSPingInterval = 30 * time.Second
	DefaultWSPongTimeout  = 60 * time.Second

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute
)

// AppMode defines the application wiring mode.
type AppMode string

// Application wiring modes.
const (
	// AppModeReal uses the configured storage, event bus and collab backend.
	AppModeReal AppMode = "real"

	// AppModeMock keeps everything in process and answers collab calls with
	// canned data. Not allowed in production.
	AppModeMock AppMode = "mock"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Storage drivers.
const (
	StorageFile    = "file"
	StorageMemory  = "memory"
	StorageMongoDB = "mongodb"
	StorageRedis   = "redis"
	StorageSQLite  = "sqlite"
)

// Event bus types.
const (
	EventBusRedis    = "redis"
	EventBusInMemory = "inmemory"
)

// Config holds the complete application configuration.
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	MongoDB       MongoDBConfig       `yaml:"mongodb"`
	Redis         RedisConfig         `yaml:"redis"`
	EventBus      EventBusConfig      `yaml:"eventbus"`
	Collab        CollabConfig        `yaml:"collab"`
	Log           LogConfig           `yaml:"log"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	// Mode controls dependency wiring: "real" (default) or "mock".
	Mode AppMode `yaml:"mode" env:"APP_MODE"`

	// Name is the application name used in logs and metrics.
	Name string `yaml:"name" env:"APP_NAME"`

	// Env is "development" or "production".
	Env string `yaml:"env" env:"APP_ENV"`

	// DevTemplates reloads HTML templates on every request.
	DevTemplates bool `yaml:"dev_templates" env:"APP_DEV_TEMPLATES"`
}

// IsRealMode returns true if the application should use real implementations.
func (c AppConfig) IsRealMode() bool {
	return c.Mode == "" || c.Mode == AppModeReal
}

// IsMockMode returns true if the application should use mock implementations.
func (c AppConfig) IsMockMode() bool {
	return c.Mode == AppModeMock
}

// ServerConfig holds HTTP server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST"`
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	BodyLimit       string        `yaml:"body_limit" env:"SERVER_BODY_LIMIT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
}

// Address returns the full server address (host:port).
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects where the domain collection is persisted.
//
//nolint:golines // Struct tags require longer lines for readability
type StorageConfig struct {
	Driver     string `yaml:"driver" env:"STORAGE_DRIVER"` // file | memory | mongodb | redis | sqlite
	Key        string `yaml:"key" env:"STORAGE_KEY"`
	Dir        string `yaml:"dir" env:"STORAGE_DIR"`
	SQLitePath string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH"`
}

// MongoDBConfig holds MongoDB connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type MongoDBConfig struct {
	URI         string        `yaml:"uri" env:"MONGODB_URI"`
	Database    string        `yaml:"database" env:"MONGODB_DATABASE"`
	Collection  string        `yaml:"collection" env:"MONGODB_COLLECTION"`
	Timeout     time.Duration `yaml:"timeout" env:"MONGODB_TIMEOUT"`
	MaxPoolSize uint64        `yaml:"max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`
}

// RedisConfig holds Redis connection configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	PoolSize  int    `yaml:"pool_size" env:"REDIS_POOL_SIZE"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX"`
}

// EventBusConfig holds event bus configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type EventBusConfig struct {
	Type               string `yaml:"type" env:"EVENTBUS_TYPE"` // redis | inmemory
	RedisChannelPrefix string `yaml:"redis_channel_prefix" env:"EVENTBUS_REDIS_CHANNEL_PREFIX"`
}

// CollabConfig points at the collab admin backend. An empty BaseURL disables
// the backend views and domain creation.
//
//nolint:golines // Struct tags require longer lines for readability
type CollabConfig struct {
	BaseURL string        `yaml:"base_url" env:"COLLAB_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"COLLAB_TIMEOUT"`
}

// Enabled reports whether a backend is configured.
func (c CollabConfig) Enabled() bool {
	return c.BaseURL != ""
}

// LogConfig holds logging configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`   // debug | info | warn | error
	Format string `yaml:"format" env:"LOG_FORMAT"` // json | text
}

// WebSocketConfig holds WebSocket server configuration.
//
//nolint:golines // Struct tags require longer lines for readability
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"WS_READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WS_WRITE_BUFFER_SIZE"`
	PingInterval    time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL"`
	PongTimeout     time.Duration `yaml:"pong_timeout" env:"WS_PONG_TIMEOUT"`
}

// NotificationsConfig holds the auto-dismiss duration of each toast type.
//
//nolint:golines // Struct tags require longer lines for readability
type NotificationsConfig struct {
	SuccessDuration time.Duration `yaml:"success_duration" env:"NOTIFICATIONS_SUCCESS_DURATION"`
	ErrorDuration   time.Duration `yaml:"error_duration" env:"NOTIFICATIONS_ERROR_DURATION"`
	WarningDuration time.Duration `yaml:"warning_duration" env:"NOTIFICATIONS_WARNING_DURATION"`
	InfoDuration    time.Duration `yaml:"info_duration" env:"NOTIFICATIONS_INFO_DURATION"`
}

// RateLimitConfig limits mutating API calls per client IP.
//
//nolint:golines // Struct tags require longer lines for readability
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled" env:"RATELIMIT_ENABLED"`
	Requests int           `yaml:"requests" env:"RATELIMIT_REQUESTS"`
	Window   time.Duration `yaml:"window" env:"RATELIMIT_WINDOW"`
}

// Configuration errors.
var (
	ErrConfigNotFound       = errors.New("configuration file not found")
	ErrConfigInvalid        = errors.New("invalid configuration")
	ErrMissingRequired      = errors.New("missing required configuration")
	ErrInvalidDuration      = errors.New("invalid duration format")
	ErrInvalidLogLevel      = errors.New("invalid log level: must be debug, info, warn, or error")
	ErrInvalidLogFormat     = errors.New("invalid log format: must be json or text")
	ErrInvalidEventBusType  = errors.New("invalid event bus type: must be redis or inmemory")
	ErrInvalidAppMode       = errors.New("invalid app mode: must be real or mock")
	ErrInvalidEnv           = errors.New("invalid app env: must be development or production")
	ErrInvalidStorageDriver = errors.New("invalid storage driver: must be file, memory, mongodb, redis or sqlite")
	ErrMockModeInProd       = errors.New("mock mode is not allowed in production")
	ErrUnsupportedFormat    = errors.New("unsupported config file format")
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Mode: AppModeReal,
			Name: "collabfront",
			Env:  EnvDevelopment,
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			BodyLimit:       DefaultBodyLimit,
		},
		Storage: StorageConfig{
			Driver:     StorageFile,
			Key:        DefaultStorageKey,
			Dir:        DefaultStorageDir,
			SQLitePath: "data/collabfront.db",
		},
		MongoDB: MongoDBConfig{
			URI:         "mongodb://localhost:27017",
			Database:    "collabfront",
			Collection:  "kv",
			Timeout:     DefaultMongoDBTimeout,
			MaxPoolSize: DefaultMongoDBMaxPoolSize,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Password:  "",
			DB:        0,
			PoolSize:  DefaultRedisPoolSize,
			KeyPrefix: "collabfront:",
		},
		EventBus: EventBusConfig{
			Type:               EventBusInMemory,
			RedisChannelPrefix: "collabfront:",
		},
		Collab: CollabConfig{
			Timeout: DefaultCollabTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  DefaultWSBufferSize,
			WriteBufferSize: DefaultWSBufferSize,
			PingInterval:    DefaultWSPingInterval,
			PongTimeout:     DefaultWSPongTimeout,
		},
		Notifications: NotificationsConfig{
			SuccessDuration: 5 * time.Second,
			ErrorDuration:   8 * time.Second,
			WarningDuration: 6 * time.Second,
			InfoDuration:    5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: DefaultRateLimitRequests,
			Window:   DefaultRateLimitWindow,
		},
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []error

	errs = c.validateApp(errs)
	errs = c.validateServer(errs)
	errs = c.validateStorage(errs)
	errs = c.validateRedis(errs)
	errs = c.validateCollab(errs)
	errs = c.validateLog(errs)
	errs = c.validateEventBus(errs)
	errs = c.validateWebSocket(errs)
	errs = c.validateNotifications(errs)
	errs = c.validateRateLimit(errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, errors.Join(errs...))
	}

	return nil
}

func (c *Config) validateApp(errs []error) []error {
	if c.App.Mode != "" && c.App.Mode != AppModeReal && c.App.Mode != AppModeMock {
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidAppMode, c.App.Mode))
	}
	switch strings.ToLower(c.App.Env) {
	case "", EnvDevelopment, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidEnv, c.App.Env))
	}
	if c.App.IsMockMode() && c.IsProduction() {
		errs = append(errs, ErrMockModeInProd)
	}
	return errs
}

func (c *Config) validateServer(errs []error) []error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}
	return errs
}

// validateStorage checks the selected driver and the settings it depends on.
// Mock mode always stores in memory, so the driver settings are not checked.
func (c *Config) validateStorage(errs []error) []error {
	if c.Storage.Key == "" {
		errs = append(errs, fmt.Errorf("%w: storage.key", ErrMissingRequired))
	}
	if c.App.IsMockMode() {
		return errs
	}

	switch strings.ToLower(c.Storage.Driver) {
	case StorageMemory:
	case StorageFile:
		if c.Storage.Dir == "" {
			errs = append(errs, fmt.Errorf("%w: storage.dir", ErrMissingRequired))
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("%w: storage.sqlite_path", ErrMissingRequired))
		}
	case StorageMongoDB:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("mongodb.uri is required"))
		}
		if c.MongoDB.Database == "" {
			errs = append(errs, errors.New("mongodb.database is required"))
		}
		if c.MongoDB.Collection == "" {
			errs = append(errs, errors.New("mongodb.collection is required"))
		}
	case StorageRedis:
	default:
		errs = append(errs, fmt.Errorf("%w: got %q", ErrInvalidStorageDriver, c.Storage.Driver))
	}
	return errs
}

func (c *Config) validateRedis(errs []error) []error {
	if c.NeedsRedis() && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required"))
	}
	return errs
}

func (c *Config) validateCollab(errs []error) []error {
	if c.Collab.Enabled() && c.Collab.Timeout <= 0 {
		errs = append(errs, errors.New("collab.timeout must be positive"))
	}
	return errs
}

func (c *Config) validateLog(errs []error) []error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ErrInvalidLogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ErrInvalidLogFormat)
	}
	return errs
}

func (c *Config) validateEventBus(errs []error) []error {
	validEventBusTypes := map[string]bool{EventBusRedis: true, EventBusInMemory: true}
	if !validEventBusTypes[strings.ToLower(c.EventBus.Type)] {
		errs = append(errs, ErrInvalidEventBusType)
	}
	return errs
}

func (c *Config) validateWebSocket(errs []error) []error {
	if c.WebSocket.ReadBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.read_buffer_size must be positive"))
	}
	if c.WebSocket.WriteBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.write_buffer_size must be positive"))
	}
	if c.WebSocket.PingInterval <= 0 {
		errs = append(errs, errors.New("websocket.ping_interval must be positive"))
	}
	if c.WebSocket.PongTimeout <= 0 {
		errs = append(errs, errors.New("websocket.pong_timeout must be positive"))
	}
	return errs
}

// validateNotifications rejects negative durations. Zero keeps a toast open.
func (c *Config) validateNotifications(errs []error) []error {
	n := c.Notifications
	for name, d := range map[string]time.Duration{
		"success_duration": n.SuccessDuration,
		"error_duration":   n.ErrorDuration,
		"warning_duration": n.WarningDuration,
		"info_duration":    n.InfoDuration,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("notifications.%s must not be negative", name))
		}
	}
	return errs
}

func (c *Config) validateRateLimit(errs []error) []error {
	if !c.RateLimit.Enabled {
		return errs
	}
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, errors.New("ratelimit.requests must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("ratelimit.window must be positive"))
	}
	return errs
}

// NeedsRedis reports whether any component is wired to Redis.
func (c *Config) NeedsRedis() bool {
	if c.App.IsMockMode() {
		return false
	}
	return strings.EqualFold(c.EventBus.Type, EventBusRedis) ||
		strings.EqualFold(c.Storage.Driver, StorageRedis)
}

// Load loads configuration from the default config file and environment variables.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific file path.
// If path is empty, it tries to find the config file in standard locations.
func LoadFromPath(path string) (*Config, error) {
	loader := NewLoader()
	return loader.Load(path)
}

// Loader handles configuration loading from files and environment variables.
type Loader struct {
	configPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		configPaths: []string{
			"configs/config.yaml",
			"config.yaml",
			"config.toml",
			"/etc/collabfront/config.yaml",
		},
	}
}

// WithConfigPaths sets custom config paths to search.
func (l *Loader) WithConfigPaths(paths []string) *Loader {
	l.configPaths = paths
	return l
}

// Load loads configuration from file and environment variables.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := path
	if configPath == "" {
		if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
			configPath = envPath
		} else {
			for _, p := range l.configPaths {
				if _, err := os.Stat(p); err == nil {
					configPath = p
					break
				}
			}
		}
	}

	if configPath != "" {
		if err := l.loadFromFile(cfg, configPath); err != nil {
			// Only an explicitly requested file is required to load.
			if path != "" || os.Getenv("CONFIG_PATH") != "" {
				return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
			}
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile decodes a YAML or TOML file over cfg. TOML is read into a
// generic map and re-encoded as YAML so that one set of struct tags and the
// YAML duration syntax serve both formats.
func (l *Loader) loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", "":
	case ".toml":
		var raw map[string]any
		if err = toml.Unmarshal(data, &raw); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
		if data, err = yaml.Marshal(raw); err != nil {
			return fmt.Errorf("failed to convert toml config: %w", err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.loadEnvToStruct(reflect.ValueOf(cfg).Elem())
}

// loadEnvToStruct recursively loads environment variables into a struct.
func (l *Loader) loadEnvToStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field := v.Field(i)
		fieldType := t.Field(i)

		if field.Kind() == reflect.Struct {
			if err := l.loadEnvToStruct(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := l.setFieldFromEnv(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s from env %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

// setFieldFromEnv sets a struct field value from an environment variable string.
// String slices are comma separated.
//
//nolint:exhaustive // We only support a subset of reflect.Kind for config values
func (l *Loader) setFieldFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeFor[time.Duration]() {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrInvalidDuration, value)
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %s", value)
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value: %s", value)
		}
		field.SetUint(u)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %s", value)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type())
		}
		parts := strings.Split(value, ",")
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		field.Set(reflect.ValueOf(items))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// IsDevelopment returns true if the log level indicates a development environment.
func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Log.Level) == "debug"
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, EnvProduction)
}
