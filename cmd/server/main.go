package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizops/backend/internal/application/analytics"
	"github.com/bizops/backend/internal/application/lifecycle"
	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/auth"
	"github.com/bizops/backend/internal/infrastructure/cache"
	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/bizops/backend/internal/infrastructure/event"
	"github.com/bizops/backend/internal/infrastructure/feed"
	"github.com/bizops/backend/internal/infrastructure/logger"
	"github.com/bizops/backend/internal/infrastructure/persistence"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/bizops/backend/internal/interfaces/http/handler"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/bizops/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

//	@title			Bizops Backend API
//	@version		1.0
//	@description	Multi-tenant commercial document lifecycle and real-time sync API.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logCfg := &logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Telemetry comes up before anything that creates meters or tracers
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		ProfilerEnabled:   cfg.Telemetry.ProfilerEnabled,
		ProfilerServer:    cfg.Telemetry.ProfilerServer,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if cfg.Telemetry.LogsEnabled {
		bridged, err := logger.New(logCfg, logger.WithOTelBridge(providers.LoggerProvider(), cfg.Telemetry.ServiceName))
		if err != nil {
			log.Fatal("Failed to attach OpenTelemetry log bridge", zap.Error(err))
		}
		log = bridged
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	meter := providers.Meter(cfg.Telemetry.ServiceName)

	// Document store
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithGormLogger(gormLogger))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database connection", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", db.Driver))

	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	dbInstrumentation, err := telemetry.InstrumentDB(db.DB, meter, telemetry.DBConfig{
		Tracing:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBName:     cfg.Database.DBName,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log)
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	defer func() {
		_ = dbInstrumentation.Close()
	}()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to get underlying sql.DB", zap.Error(err))
	}

	// Redis is shared by the feed, conversion claims and token revocation
	var redisClient *redis.Client
	if cfg.Feed.Driver == "redis" || cfg.Sync.ClaimDriver == "redis" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	notifier, err := feed.New(ctx, cfg.Feed, feed.Deps{
		Redis:       redisClient,
		DB:          sqlDB,
		DatabaseDSN: cfg.Database.DSN(),
		Logger:      log,
	})
	if err != nil {
		log.Fatal("Failed to start change feed", zap.Error(err), zap.String("driver", cfg.Feed.Driver))
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			log.Error("Error closing change feed", zap.Error(err))
		}
	}()
	log.Info("Change feed ready", zap.String("driver", cfg.Feed.Driver), zap.String("channel", cfg.Feed.Channel))

	store := persistence.NewGormDocumentStore(db.DB, notifier, persistence.WithStoreLogger(log))

	claims, err := cache.NewClaimStoreFactory(cfg.Sync, cfg.Redis,
		cache.WithLogger(log),
		cache.WithRedisClient(redisClient),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create conversion claim store", zap.Error(err))
	}
	defer func() {
		_ = claims.Close()
	}()

	// Application services
	source := tenantsync.NewStoreSource(store)
	engine := lifecycle.NewEngine(store, source, claims,
		lifecycle.WithLogger(log),
		lifecycle.WithClaimTTL(cfg.Sync.ClaimTTL),
	)

	var businessMetrics *telemetry.BusinessMetrics
	telemetryService := analytics.NewService(source, analytics.WithLogger(log))
	if providers.MetricsEnabled() {
		businessMetrics, err = telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meter,
			Logger:          log,
			TelemetrySource: telemetryService,
		})
		if err != nil {
			log.Fatal("Failed to create business metrics", zap.Error(err))
		}
		engine.SetBusinessMetrics(businessMetrics)
		businessMetrics.StartPeriodicCollection(ctx, store, 5*time.Minute)
		defer businessMetrics.Stop()
	}

	// Domain events: audit trail and approval notifications. Each handler
	// claims an event id before running so a republished event lands once.
	eventBus := event.NewInMemoryEventBus(log)
	for _, h := range event.WrapHandlersWithIdempotency([]shared.EventHandler{
		lifecycle.NewAuditTrailHandler(store, log),
		lifecycle.NewApprovalNotifier(store, log),
	}, claims, log) {
		eventBus.Subscribe(h)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()
	engine.SetEventPublisher(eventBus)

	// Sessions
	var revocation auth.Revocation = auth.NewInMemoryRevocation()
	if redisClient != nil {
		revocation = auth.NewRedisRevocation(redisClient, "")
	}
	jwtService := auth.NewJWTService(cfg.JWT, auth.WithRevocation(revocation))

	// HTTP handlers
	instance, _ := os.Hostname()
	streamRegistry := handler.NewStreamRegistry()
	streamHandler := handler.NewStreamHandler(store, streamRegistry,
		handler.WithStreamLogger(log),
		handler.WithStreamHeartbeat(cfg.Sync.HeartbeatInterval),
		handler.WithStreamAnalytics(analytics.WithBusinessMetrics(businessMetrics)),
	)
	healthChecks := []handler.HealthOption{
		handler.WithHealthCheck("database", sqlDB.PingContext),
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, handler.WithHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	handlers := router.Handlers{
		Health:    handler.NewHealthHandler(version, instance, healthChecks...),
		Documents: handler.NewDocumentHandler(engine),
		Proposals: handler.NewProposalHandler(engine),
		Vouchers:  handler.NewVoucherHandler(engine),
		Telemetry: handler.NewTelemetryHandler(telemetryService),
		Stream:    streamHandler,
		Session:   handler.NewSessionHandler(jwtService, streamRegistry, log),
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	ginEngine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Global middleware, in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security headers and CORS
	// 5. Tracing and metrics
	// 6. BodyLimit - Limit request body size
	var httpMeter metric.Meter
	if providers.MetricsEnabled() {
		httpMeter = meter
	}
	httpMetrics, err := middleware.HTTPMetrics(httpMeter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}
	ginEngine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Secure(),
		middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
			AllowMethods:     cfg.HTTP.CORSAllowMethods,
			AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     providers.TracingEnabled(),
		}),
		middleware.SpanErrorMarker(),
		httpMetrics,
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	// Per-group middleware runs after authentication so it sees the tenant
	after := []gin.HandlerFunc{middleware.SpanAttributes()}
	stopSweeper := make(chan struct{})
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.RunSweeper(cfg.HTTP.RateLimitWindow, stopSweeper)
		after = append(after, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	// stream CPU is spent idling in select, its labels would only add noise
	after = append(after, middleware.Profiling(cfg.Telemetry.ProfilerEnabled, middleware.StreamRoute))

	jwtAuth := middleware.JWTAuth(middleware.JWTConfig{
		Authenticator: jwtService,
		Logger:        log,
	})
	r := router.NewRouter(ginEngine, router.WithAPIVersion("v1"))
	r.RegisterAPI(handlers, router.Guards{
		Auth: jwtAuth,
		StreamAuth: middleware.JWTAuth(middleware.JWTConfig{
			Authenticator: jwtService,
			QueryParam:    "access_token",
			Logger:        log,
		}),
		After: after,
	})
	ginEngine.GET("/health", handlers.Health.Get)

	// Swagger documentation endpoint
	r.RegisterDocs(middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, jwtAuth))
	if cfg.Swagger.Enabled {
		log.Info("API documentation enabled",
			zap.Bool("require_auth", cfg.Swagger.RequireAuth),
			zap.Strings("allowed_ips", cfg.Swagger.AllowedIPs),
		)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Streams never finish on their own, end them before Shutdown waits
	streamHandler.Stop()
	close(stopSweeper)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
