// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gin-contrib/requestid"

	columnsHTTP "github.com/fieldvault/fieldvault/internal/columns/http"
	"github.com/fieldvault/fieldvault/internal/config"
	cryptoHTTP "github.com/fieldvault/fieldvault/internal/crypto/http"
	"github.com/fieldvault/fieldvault/internal/events"
	"github.com/fieldvault/fieldvault/internal/http"
	"github.com/fieldvault/fieldvault/internal/metrics"
	"github.com/fieldvault/fieldvault/internal/store"
	vaultHTTP "github.com/fieldvault/fieldvault/internal/vault/http"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	kv     store.KV
	db     *sql.DB

	// Events
	eventBus *events.Bus

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Crypto module (see di_crypto.go)
	cryptoComponents

	// Column encryption module (see di_columns.go)
	columnsComponents

	// Tokenization vault module (see di_vault.go)
	vaultComponents

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                  sync.Mutex
	loggerInit          sync.Once
	storeInit           sync.Once
	eventBusInit        sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// Store returns the key-value store selected by the STORE_DRIVER configuration.
// It creates and configures the store on first access.
func (c *Container) Store() (store.KV, error) {
	var err error
	c.storeInit.Do(func() {
		c.kv, err = c.initStore()
		if err != nil {
			c.initErrors["store"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["store"]; exists {
		return nil, storedErr
	}
	return c.kv, nil
}

// EventBus returns the in-process event bus with the audit log and metrics
// subscribers installed.
func (c *Container) EventBus() (*events.Bus, error) {
	var err error
	c.eventBusInit.Do(func() {
		c.eventBus, err = c.initEventBus()
		if err != nil {
			c.initErrors["eventBus"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventBus"]; exists {
		return nil, storedErr
	}
	return c.eventBus, nil
}

// MetricsProvider returns the Prometheus metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled so use cases never branch on the
// configuration.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the HTTP server with every route and middleware wired.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// LoadState warms the in-memory state from the store: the key ring, the field
// policy registry and the vault's storage policy. Must run before the servers
// accept traffic.
func (c *Container) LoadState(ctx context.Context) error {
	keys, err := c.KeyUseCase()
	if err != nil {
		return fmt.Errorf("failed to get key use case: %w", err)
	}
	if err := keys.LoadKeyRing(ctx); err != nil {
		return fmt.Errorf("failed to load key ring: %w", err)
	}

	columns, err := c.ColumnUseCase()
	if err != nil {
		return fmt.Errorf("failed to get column use case: %w", err)
	}
	if err := columns.LoadPolicies(ctx); err != nil {
		return fmt.Errorf("failed to load field policies: %w", err)
	}

	if err := c.EnsureVaultStorage(ctx); err != nil {
		return fmt.Errorf("failed to ensure vault storage: %w", err)
	}

	return nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	// Shutdown HTTP server if initialized
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	// Shutdown metrics server and flush pending metrics if initialized
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	// Zero unwrapped key material before the process exits
	if c.keyRing != nil {
		c.keyRing.Close()
	}
	if c.masterKeyChain != nil {
		c.masterKeyChain.Close()
	}

	// Close the store if initialized
	if c.kv != nil {
		if err := c.kv.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("store close: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	// Return combined errors if any occurred
	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initStore creates the key-value store selected by the configured driver.
func (c *Container) initStore() (store.KV, error) {
	switch c.config.StoreDriver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "bolt":
		kv, err := store.NewBoltStore(c.config.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		return kv, nil
	case "postgres", "mysql":
		db, err := store.Connect(store.SQLConfig{
			Driver:             c.config.StoreDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.db = db
		if c.config.StoreDriver == "postgres" {
			return store.NewPostgreSQLStore(db), nil
		}
		return store.NewMySQLStore(db), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", c.config.StoreDriver)
	}
}

// initEventBus creates the event bus and installs the startup subscribers:
// the audit log on every event, the event counter when metrics are enabled
// and the cache invalidation hook on key rotation.
func (c *Container) initEventBus() (*events.Bus, error) {
	logger := c.Logger()
	bus := events.NewBus(logger)

	bus.Subscribe(events.NewAuditLogSubscriber(logger))

	if c.config.MetricsEnabled {
		business, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for event bus: %w", err)
		}
		bus.Subscribe(events.NewMetricsSubscriber(business))
	}

	// Rotation retires a key version; cached envelopes minted under it must
	// not be served again.
	cache := c.EncryptionCache()
	bus.Subscribe(func(ctx context.Context, event events.Event) {
		cache.Clear()
	}, events.TypeKeyRotated)

	return bus, nil
}

// initBusinessMetrics creates the business metrics recorder.
func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	if !c.config.MetricsEnabled {
		return metrics.NewNoOpBusinessMetrics(), nil
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider: %w", err)
	}

	business, err := metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}
	return business, nil
}

// initHTTPServer creates the HTTP server and wires every middleware, handler
// and route.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	kv, err := c.Store()
	if err != nil {
		return nil, fmt.Errorf("failed to get store for http server: %w", err)
	}

	keyUseCase, err := c.KeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key use case for http server: %w", err)
	}

	columnUseCase, err := c.ColumnUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get column use case for http server: %w", err)
	}

	vaultUseCase, err := c.VaultUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for http server: %w", err)
	}

	server := http.NewServer(kv, c.config.ServerHost, c.config.ServerPort, logger)
	router := server.Router()

	router.Use(requestid.New())
	router.Use(http.CustomLoggerMiddleware(logger))

	corsMiddleware := http.CreateCORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger)
	if corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		router.Use(metrics.HTTPMetricsMiddleware(provider.MeterProvider(), c.config.MetricsNamespace))
	}

	keyHandler := cryptoHTTP.NewKeyHandler(keyUseCase, logger)
	columnHandler := columnsHTTP.NewColumnHandler(columnUseCase, logger)
	tokenHandler := vaultHTTP.NewTokenHandler(vaultUseCase, logger)

	v1 := router.Group("/v1")

	v1.POST("/keys", keyHandler.CreateHandler)
	v1.GET("/keys", keyHandler.ListHandler)
	v1.GET("/keys/:id", keyHandler.GetHandler)
	v1.POST("/keys/:id/rotate", keyHandler.RotateHandler)
	v1.DELETE("/keys/:id/versions/:version", keyHandler.PurgeVersionHandler)

	v1.POST("/fields", columnHandler.RegisterFieldHandler)
	v1.GET("/fields", columnHandler.ListFieldsHandler)
	v1.GET("/fields/:field", columnHandler.GetFieldHandler)
	v1.POST("/fields/:field/encrypt", columnHandler.EncryptFieldHandler)
	v1.POST("/encrypt-batch", columnHandler.BatchEncryptHandler)

	v1.POST("/tokens", tokenHandler.TokenizeHandler)
	v1.POST("/tokens/batch", tokenHandler.BatchTokenizeHandler)
	v1.POST("/tokens/revoke", tokenHandler.RevokeHandler)

	// Reveal endpoints return plaintext and sit behind the per-client rate
	// limiter when enabled.
	reveal := v1.Group("")
	if c.config.RateLimitEnabled {
		reveal.Use(http.RateLimitMiddleware(
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
			logger,
		))
	}
	reveal.POST("/fields/:field/decrypt", columnHandler.DecryptFieldHandler)
	reveal.POST("/decrypt-batch", columnHandler.BatchDecryptHandler)
	reveal.POST("/tokens/detokenize", tokenHandler.DetokenizeHandler)

	return server, nil
}

// initMetricsServer creates the metrics server exposing /metrics.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}

	return http.NewMetricsServer(
		c.config.ServerHost,
		c.config.MetricsPort,
		c.Logger(),
		provider,
	), nil
}
