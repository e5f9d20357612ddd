// Package main provides the API server entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/lllypuk/collabfront/internal/application/domainstore"
	"github.com/lllypuk/collabfront/internal/application/notify"
	"github.com/lllypuk/collabfront/internal/config"
	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
	wshandler "github.com/lllypuk/collabfront/internal/handler/websocket"
	"github.com/lllypuk/collabfront/internal/infrastructure/collabapi"
	"github.com/lllypuk/collabfront/internal/infrastructure/eventbus"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
	"github.com/lllypuk/collabfront/internal/infrastructure/metrics"
	mongodbinfra "github.com/lllypuk/collabfront/internal/infrastructure/mongodb"
	filerepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/file"
	memoryrepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/memory"
	mongorepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/mongodb"
	redisrepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/redis"
	sqliterepo "github.com/lllypuk/collabfront/internal/infrastructure/repository/sqlite"
	"github.com/lllypuk/collabfront/internal/infrastructure/websocket"
	"github.com/lllypuk/collabfront/internal/middleware"
	"github.com/lllypuk/collabfront/web"
)

// Container initialization timeouts.
const (
	containerInitTimeout   = 30 * time.Second
	redisPingTimeout       = 5 * time.Second
	mongoDisconnectTimeout = 10 * time.Second
	collabCheckTimeout     = 3 * time.Second
)

// WebSocket client configuration constants.
const (
	defaultWSWriteWait      = 10 * time.Second
	defaultWSMaxMessageSize = 4096
	defaultWSSendBuffer     = 64
)

// Container holds all application dependencies and manages their lifecycle.
// It implements httpserver.HealthChecker for unified health endpoint support.
type Container struct {
	// Configuration
	Config *config.Config
	Logger *slog.Logger

	// Infrastructure
	MongoDB *mongo.Client
	Redis   *redis.Client
	SQLite  *sqlx.DB

	// Metrics
	Registry            *prometheus.Registry
	StoreMetrics        *metrics.StoreMetrics
	NotificationMetrics *metrics.NotificationMetrics

	// Storage
	Repository domainstore.Repository
	Store      *domainstore.Store

	// Notifications
	Hub         *websocket.Hub
	HubNotifier *websocket.Notifier
	EventBus    *eventbus.RedisNotificationBus
	Broadcaster *websocket.Broadcaster
	Notifier    *notify.Notifier

	// Collab is nil when no backend is configured.
	Collab httphandler.CollabBackend

	RateLimitStore   middleware.RateLimitStore
	TemplateRenderer *httphandler.TemplateRenderer

	// HTTP Handlers
	PageHandler         *httphandler.PageHandler
	DomainHandler       *httphandler.DomainHandler
	CollabHandler       *httphandler.CollabHandler
	NotificationHandler *httphandler.NotificationHandler
	WSHandler           *wshandler.Handler
}

// ContainerOption configures the Container.
type ContainerOption func(*Container)

// WithLogger sets a custom logger for the container.
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(c *Container) {
		c.Logger = logger
	}
}

// WithRepository replaces the configured storage medium.
func WithRepository(repo domainstore.Repository) ContainerOption {
	return func(c *Container) {
		c.Repository = repo
	}
}

// NewContainer creates a new dependency injection container.
// The wiring mode (real/mock) is determined by config.App.Mode.
func NewContainer(cfg *config.Config, opts ...ContainerOption) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	c.logWiringMode()

	if err := c.setupInfrastructure(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup infrastructure: %w", err)
	}

	c.setupMetrics()
	c.setupStore()
	c.setupNotifications()
	c.setupCollab()
	c.setupRateLimitStore()

	if err := c.setupTemplateRenderer(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to setup template renderer: %w", err)
	}

	c.setupHTTPHandlers()

	if err := c.validateWiring(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("wiring validation failed: %w", err)
	}

	return c, nil
}

// logWiringMode logs the current wiring mode configuration.
func (c *Container) logWiringMode() {
	mode := c.Config.App.Mode
	if mode == "" {
		mode = config.AppModeReal
	}

	if c.Config.App.IsMockMode() {
		c.Logger.Warn("container starting in MOCK mode",
			slog.String("mode", string(mode)),
			slog.String("env", c.Config.App.Env),
		)
		return
	}

	c.Logger.Info("container starting in REAL mode",
		slog.String("mode", string(mode)),
		slog.String("env", c.Config.App.Env),
		slog.String("storage", c.Config.Storage.Driver),
		slog.String("eventbus", c.Config.EventBus.Type),
		slog.Bool("collab", c.Config.Collab.Enabled()),
	)
}

// validateWiring ensures all required dependencies are properly initialized.
func (c *Container) validateWiring() error {
	var errs []error

	if c.Store == nil {
		errs = append(errs, errors.New("domain store not initialized"))
	}
	if c.Hub == nil || c.HubNotifier == nil {
		errs = append(errs, errors.New("websocket hub not initialized"))
	}
	if c.Notifier == nil {
		errs = append(errs, errors.New("notifier not initialized"))
	}
	if c.usesRedisBus() && (c.EventBus == nil || c.Broadcaster == nil) {
		errs = append(errs, errors.New("redis event bus not initialized"))
	}
	if c.TemplateRenderer == nil {
		errs = append(errs, errors.New("template renderer not initialized"))
	}
	if c.PageHandler == nil || c.DomainHandler == nil || c.CollabHandler == nil ||
		c.NotificationHandler == nil || c.WSHandler == nil {
		errs = append(errs, errors.New("http handlers not initialized"))
	}

	return errors.Join(errs...)
}

func (c *Container) setupInfrastructure() error {
	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	if c.Config.NeedsRedis() {
		if err := c.setupRedis(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}

	if c.Repository != nil {
		return nil
	}

	if c.Config.App.IsMockMode() {
		c.Repository = memoryrepo.NewRepository()
		return nil
	}

	if err := c.setupRepository(ctx); err != nil {
		return fmt.Errorf("storage %s: %w", c.Config.Storage.Driver, err)
	}
	return nil
}

// setupRepository opens the storage medium selected by storage.driver.
func (c *Container) setupRepository(ctx context.Context) error {
	key := c.Config.Storage.Key

	switch c.Config.Storage.Driver {
	case config.StorageMemory:
		c.Repository = memoryrepo.NewRepository()

	case config.StorageFile:
		if err := os.MkdirAll(c.Config.Storage.Dir, 0o750); err != nil {
			return fmt.Errorf("failed to create storage dir: %w", err)
		}
		c.Repository = filerepo.NewRepository(c.Config.Storage.Dir, key)

	case config.StorageSQLite:
		if err := os.MkdirAll(filepath.Dir(c.Config.Storage.SQLitePath), 0o750); err != nil {
			return fmt.Errorf("failed to create sqlite dir: %w", err)
		}
		db, err := sqliterepo.Open(c.Config.Storage.SQLitePath)
		if err != nil {
			return err
		}
		c.SQLite = db
		c.Repository = sqliterepo.NewRepository(db, key)

	case config.StorageRedis:
		c.Repository = redisrepo.NewRepository(c.Redis, c.Config.Redis.KeyPrefix, key)

	case config.StorageMongoDB:
		if err := c.setupMongoDB(ctx); err != nil {
			return err
		}
		coll := c.MongoDB.Database(c.Config.MongoDB.Database).Collection(c.Config.MongoDB.Collection)
		c.Repository = mongorepo.NewMongoDomainRepository(coll, key)

	default:
		return fmt.Errorf("%w: %q", config.ErrInvalidStorageDriver, c.Config.Storage.Driver)
	}

	c.Logger.DebugContext(ctx, "domain repository initialized",
		slog.String("driver", c.Config.Storage.Driver),
		slog.String("key", key),
	)
	return nil
}

// setupMongoDB initializes the MongoDB client.
func (c *Container) setupMongoDB(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(c.Config.MongoDB.URI).
		SetMaxPoolSize(c.Config.MongoDB.MaxPoolSize)

	client, connectErr := mongo.Connect(clientOpts)
	if connectErr != nil {
		return fmt.Errorf("failed to connect: %w", connectErr)
	}
	c.MongoDB = client

	pingCtx, cancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer cancel()

	if pingErr := client.Ping(pingCtx, nil); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to MongoDB",
		slog.String("database", c.Config.MongoDB.Database),
	)

	db := client.Database(c.Config.MongoDB.Database)
	indexCtx, indexCancel := context.WithTimeout(ctx, c.Config.MongoDB.Timeout)
	defer indexCancel()

	if indexErr := mongodbinfra.CreateAllIndexes(indexCtx, db, c.Config.MongoDB.Collection); indexErr != nil {
		return fmt.Errorf("failed to create indexes: %w", indexErr)
	}

	return nil
}

// setupRedis initializes the Redis client.
func (c *Container) setupRedis(ctx context.Context) error {
	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Addr,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
		PoolSize: c.Config.Redis.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()

	if pingErr := c.Redis.Ping(pingCtx).Err(); pingErr != nil {
		return fmt.Errorf("failed to ping: %w", pingErr)
	}

	c.Logger.InfoContext(ctx, "connected to Redis",
		slog.String("addr", c.Config.Redis.Addr),
	)

	return nil
}

// setupMetrics creates a dedicated registry with the Go and process collectors.
func (c *Container) setupMetrics() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.StoreMetrics = metrics.NewStoreMetrics(c.Registry)
	c.NotificationMetrics = metrics.NewNotificationMetrics(c.Registry)
}

// setupStore hydrates the domain collection from the repository.
func (c *Container) setupStore() {
	ctx, cancel := context.WithTimeout(context.Background(), containerInitTimeout)
	defer cancel()

	c.Store = domainstore.New(ctx, c.Repository,
		domainstore.WithLogger(c.Logger),
		domainstore.WithMetrics(c.StoreMetrics),
	)

	c.Logger.InfoContext(ctx, "domain store ready", slog.Int("domains", c.Store.Len()))
}

// setupNotifications builds the hub and the notification façade. With the
// redis bus the façade publishes to Redis and the broadcaster relays every
// instance's events to the local hub; otherwise the hub notifier is the handler.
func (c *Container) setupNotifications() {
	c.Hub = websocket.NewHub(websocket.WithHubLogger(c.Logger))
	c.HubNotifier = websocket.NewNotifier(c.Hub, c.Logger)

	var handler notify.Handler = c.HubNotifier
	if c.usesRedisBus() {
		c.EventBus = eventbus.NewRedisNotificationBus(
			c.Redis,
			eventbus.WithLogger(c.Logger),
			eventbus.WithChannelPrefix(c.Config.EventBus.RedisChannelPrefix),
		)
		c.Broadcaster = websocket.NewBroadcaster(
			c.HubNotifier,
			c.EventBus,
			websocket.WithBroadcasterLogger(c.Logger),
		)
		handler = c.EventBus
	}

	c.Notifier = notify.NewNotifier(handler,
		notify.WithLogger(c.Logger),
		notify.WithDefaults(c.notificationDefaults()),
		notify.WithMetrics(c.NotificationMetrics),
	)

	c.Logger.Debug("notifications initialized",
		slog.String("eventbus", c.Config.EventBus.Type),
	)
}

func (c *Container) notificationDefaults() notify.Defaults {
	n := c.Config.Notifications
	return notify.Defaults{
		Success: n.SuccessDuration,
		Error:   n.ErrorDuration,
		Warning: n.WarningDuration,
		Info:    n.InfoDuration,
	}
}

func (c *Container) usesRedisBus() bool {
	return !c.Config.App.IsMockMode() && c.Config.EventBus.Type == config.EventBusRedis
}

// setupCollab wires the admin backend. Mock mode answers from memory.
func (c *Container) setupCollab() {
	switch {
	case c.Config.App.IsMockMode():
		c.Collab = httphandler.NewMockCollabBackend()
	case c.Config.Collab.Enabled():
		c.Collab = collabapi.NewClient(collabapi.Config{
			BaseURL: c.Config.Collab.BaseURL,
			Timeout: c.Config.Collab.Timeout,
		})
		c.Logger.Info("collab backend configured", slog.String("base_url", c.Config.Collab.BaseURL))
	default:
		c.Logger.Warn("collab backend not configured, backend views are disabled")
	}
}

// setupRateLimitStore shares counters through Redis when a client exists.
func (c *Container) setupRateLimitStore() {
	if !c.Config.RateLimit.Enabled {
		return
	}
	if c.Redis != nil {
		c.RateLimitStore = middleware.NewRedisRateLimitStore(c.Redis, c.Config.Redis.KeyPrefix+"ratelimit:")
		return
	}
	c.RateLimitStore = middleware.NewMemoryRateLimitStore()
}

func (c *Container) setupTemplateRenderer() error {
	renderer, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{
		FS:      web.TemplatesFS,
		Logger:  c.Logger,
		DevMode: c.Config.App.DevTemplates,
	})
	if err != nil {
		return fmt.Errorf("failed to create template renderer: %w", err)
	}

	c.TemplateRenderer = renderer

	c.Logger.Debug("template renderer initialized",
		slog.Bool("dev_mode", c.Config.App.DevTemplates),
	)

	return nil
}

func (c *Container) setupHTTPHandlers() {
	// Typed nil pointers must not reach the handlers as non-nil interfaces.
	var (
		reader  httphandler.CollabReader
		creator httphandler.DomainCreator
	)
	if c.Collab != nil {
		reader = c.Collab
		creator = c.Collab
	}

	c.PageHandler = httphandler.NewPageHandler(c.Store, reader, c.Notifier, c.Logger)
	c.DomainHandler = httphandler.NewDomainHandler(c.Store, creator, c.Notifier, c.Logger)
	c.CollabHandler = httphandler.NewCollabHandler(c.Store, c.Collab, c.Logger)
	c.NotificationHandler = httphandler.NewNotificationHandler(c.Notifier, c.notificationDefaults())

	ws := c.Config.WebSocket
	c.WSHandler = wshandler.NewHandler(c.Hub,
		wshandler.WithHandlerLogger(c.Logger),
		wshandler.WithHandlerConfig(wshandler.HandlerConfig{
			ReadBufferSize:  ws.ReadBufferSize,
			WriteBufferSize: ws.WriteBufferSize,
			AllowedOrigins:  c.Config.Server.AllowedOrigins,
			Logger:          c.Logger,
			ClientConfig: websocket.ClientConfig{
				ReadBufferSize:  ws.ReadBufferSize,
				WriteBufferSize: ws.WriteBufferSize,
				PingInterval:    ws.PingInterval,
				PongWait:        ws.PongTimeout,
				WriteWait:       defaultWSWriteWait,
				MaxMessageSize:  defaultWSMaxMessageSize,
				SendBufferSize:  defaultWSSendBuffer,
			},
		}),
	)
}

// Start runs the hub and subscribes the broadcaster to the event bus.
// This should be called before the HTTP server starts accepting requests.
func (c *Container) Start(ctx context.Context) error {
	go c.Hub.Run(ctx)
	c.Logger.InfoContext(ctx, "websocket hub started")

	if c.Broadcaster != nil {
		if err := c.Broadcaster.Start(ctx); err != nil {
			return fmt.Errorf("failed to start broadcaster: %w", err)
		}
	}
	return nil
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	c.Logger.Info("closing container resources...")

	var errs []error

	if c.Hub != nil {
		c.Hub.Stop()
		c.Logger.Debug("websocket hub stopped")
	}

	if c.EventBus != nil {
		if err := c.EventBus.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("event bus shutdown: %w", err))
		} else {
			c.Logger.Debug("event bus stopped")
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		} else {
			c.Logger.Debug("redis connection closed")
		}
	}

	if c.SQLite != nil {
		if err := c.SQLite.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sqlite close: %w", err))
		} else {
			c.Logger.Debug("sqlite database closed")
		}
	}

	if c.MongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), mongoDisconnectTimeout)
		defer cancel()

		if err := c.MongoDB.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect: %w", err))
		} else {
			c.Logger.Debug("mongodb connection closed")
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Logger.Info("all container resources closed")
	return nil
}

// IsReady implements httpserver.HealthChecker.
// The collab backend is optional and never blocks readiness.
func (c *Container) IsReady(ctx context.Context) bool {
	if c.Store == nil {
		return false
	}
	if err := c.pingStorage(ctx); err != nil {
		c.Logger.WarnContext(ctx, "storage health check failed", slog.String("error", err.Error()))
		return false
	}

	if c.Hub == nil || !c.Hub.IsRunning() {
		c.Logger.WarnContext(ctx, "websocket hub is not running")
		return false
	}

	if c.usesRedisBus() && (c.Broadcaster == nil || !c.Broadcaster.IsRunning()) {
		c.Logger.WarnContext(ctx, "notification broadcaster is not running")
		return false
	}

	return true
}

// GetHealthStatus implements httpserver.HealthChecker.
func (c *Container) GetHealthStatus(ctx context.Context) []httpserver.ComponentStatus {
	statuses := make([]httpserver.ComponentStatus, 0, 4)

	storageStatus := httpserver.ComponentStatus{Name: "storage", Status: httpserver.StatusHealthy}
	if c.Store == nil {
		storageStatus.Status = httpserver.StatusUnhealthy
		storageStatus.Message = "store not initialized"
	} else if err := c.pingStorage(ctx); err != nil {
		storageStatus.Status = httpserver.StatusUnhealthy
		storageStatus.Message = err.Error()
	} else {
		storageStatus.Message = fmt.Sprintf("%s, %d domains", c.storageDriver(), c.Store.Len())
	}
	statuses = append(statuses, storageStatus)

	hubStatus := httpserver.ComponentStatus{Name: "websocket_hub", Status: httpserver.StatusHealthy}
	if c.Hub == nil {
		hubStatus.Status = httpserver.StatusUnhealthy
		hubStatus.Message = "hub not initialized"
	} else if !c.Hub.IsRunning() {
		hubStatus.Status = httpserver.StatusUnhealthy
		hubStatus.Message = "hub not running"
	} else {
		hubStatus.Message = fmt.Sprintf("%d clients", c.Hub.ClientCount())
	}
	statuses = append(statuses, hubStatus)

	busStatus := httpserver.ComponentStatus{Name: "eventbus", Status: httpserver.StatusHealthy, Message: "inmemory"}
	if c.usesRedisBus() {
		busStatus.Message = "redis"
		switch {
		case c.Redis == nil:
			busStatus.Status = httpserver.StatusUnhealthy
			busStatus.Message = "redis client not initialized"
		case c.Redis.Ping(ctx).Err() != nil:
			busStatus.Status = httpserver.StatusUnhealthy
			busStatus.Message = "redis unreachable"
		case c.Broadcaster == nil || !c.Broadcaster.IsRunning():
			busStatus.Status = httpserver.StatusDegraded
			busStatus.Message = "broadcaster not running"
		}
	}
	statuses = append(statuses, busStatus)

	statuses = append(statuses, c.collabStatus(ctx))

	return statuses
}

// collabStatus checks the backend with a lookup of an empty access key. Any
// answer from the backend, including a rejection, proves it is reachable.
func (c *Container) collabStatus(ctx context.Context) httpserver.ComponentStatus {
	status := httpserver.ComponentStatus{Name: "collab", Status: httpserver.StatusHealthy}
	if c.Collab == nil {
		status.Status = httpserver.StatusDegraded
		status.Message = "not configured"
		return status
	}

	checkCtx, cancel := context.WithTimeout(ctx, collabCheckTimeout)
	defer cancel()

	_, err := c.Collab.GetDomain(checkCtx, "")
	if _, isAPIErr := collabapi.IsAPIError(err); err != nil && !isAPIErr {
		status.Status = httpserver.StatusDegraded
		status.Message = err.Error()
	}
	return status
}

func (c *Container) storageDriver() string {
	if c.Config.App.IsMockMode() {
		return config.StorageMemory
	}
	return c.Config.Storage.Driver
}

// pingStorage checks the connection behind the repository. File and memory
// storage have nothing to ping.
func (c *Container) pingStorage(ctx context.Context) error {
	switch {
	case c.MongoDB != nil:
		return c.MongoDB.Ping(ctx, nil)
	case c.SQLite != nil:
		return c.SQLite.PingContext(ctx)
	case c.Redis != nil && c.storageDriver() == config.StorageRedis:
		return c.Redis.Ping(ctx).Err()
	default:
		return nil
	}
}
