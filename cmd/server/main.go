package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appintegration "github.com/erp/connector/internal/application/integration"
	tradeapp "github.com/erp/connector/internal/application/trade"
	"github.com/erp/connector/internal/domain/integration"
	"github.com/erp/connector/internal/infrastructure/auth"
	"github.com/erp/connector/internal/infrastructure/cache"
	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/erp/connector/internal/infrastructure/logger"
	"github.com/erp/connector/internal/infrastructure/messaging"
	"github.com/erp/connector/internal/infrastructure/migration"
	"github.com/erp/connector/internal/infrastructure/persistence"
	"github.com/erp/connector/internal/infrastructure/scheduler"
	"github.com/erp/connector/internal/infrastructure/storefront"
	"github.com/erp/connector/internal/infrastructure/telemetry"
	"github.com/erp/connector/internal/interfaces/http/handler"
	"github.com/erp/connector/internal/interfaces/http/middleware"
	"github.com/erp/connector/internal/interfaces/http/router"
	"github.com/erp/connector/migrations"

	_ "github.com/erp/connector/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//go:generate swag init --dir ../.. --generalInfo cmd/server/main.go --output ../../docs --outputTypes go,json --overridesFile ../../.swaggo

//	@title			ERP Connector API
//	@version		1.0
//	@description	Imports storefront orders and customers into the ERP through processing queues

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/connector

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		ServiceName: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront connector",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	signals, err := telemetry.Setup(ctx, telemetry.Config{
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    Version,
		TracesEnabled:     cfg.Telemetry.Enabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		Profiling: telemetry.ProfilerConfig{
			Enabled:       cfg.Telemetry.ProfilingEnabled,
			ServerAddress: cfg.Telemetry.ProfilingServer,
			BasicAuthUser: cfg.Telemetry.ProfilingUser,
			BasicAuthPass: cfg.Telemetry.ProfilingPassword,
			Contention:    cfg.Telemetry.ProfilingContention,
		},
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	tp, mp, lp := signals.Traces, signals.Metrics, signals.Logs
	if lp.IsEnabled() {
		log = telemetry.BridgeLogger(log, lp, logger.ParseLevel(cfg.Telemetry.LogsLevel))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log)

	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(dbTracing),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := runMigrations(db.DB, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Locks and mapping cache
	backend, err := cache.NewFactory(cfg.Redis, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to initialize cache backend", zap.Error(err))
	}
	log.Info("Cache backend ready", zap.Bool("distributed", backend.IsDistributed()))

	// Repositories
	instanceRepo := persistence.NewGormStorefrontInstanceRepository(db.DB)
	queueRepo := persistence.NewGormQueueRepository(db.DB)
	logLineRepo := persistence.NewGormLogLineRepository(db.DB)
	mappingRepo := persistence.NewGormProductMappingRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	salesOrderRepo := persistence.NewGormSalesOrderRepository(db.DB)
	taxRepo := persistence.NewGormTaxRepository(db.DB)
	workflowRepo := persistence.NewGormWorkflowRepository(db.DB)

	// Queue metrics
	queueOpts := appintegration.QueueOptions{
		BatchSize:        cfg.Queue.BatchSize,
		LockTTL:          cfg.Queue.LockTTL,
		AutoProcessLimit: cfg.Queue.AutoProcessLimit,
	}
	var queueMetrics *telemetry.QueueMetrics
	if mp.IsEnabled() {
		queueMetrics, err = telemetry.NewQueueMetrics(mp.Meter("connector.queue"), log)
		if err != nil {
			log.Warn("Queue metrics disabled", zap.Error(err))
		} else {
			queueOpts.Observer = queueMetrics
			queueMetrics.StartPeriodicCollection(ctx, telemetry.NewGormQueueStatsProvider(db.DB), cfg.Telemetry.MetricsInterval)
		}
	}

	// Application services
	validate := validator.New()
	storefrontClient := storefront.NewClient(cfg.Storefront, log)

	instanceService := appintegration.NewInstanceService(instanceRepo, workflowRepo)
	resolver := appintegration.NewProductResolver(mappingRepo, productRepo, backend.Mappings, cfg.Queue.MappingCacheTTL, log)
	importer := appintegration.NewOrderImportService(
		resolver, productRepo, customerRepo, salesOrderRepo, taxRepo, workflowRepo, logLineRepo, validate, log,
	)
	orderQueueService := appintegration.NewOrderQueueService(
		instanceRepo, queueRepo, logLineRepo, importer, backend.Lock, storefrontClient, queueOpts, log,
	)
	customerQueueService := appintegration.NewCustomerQueueService(
		instanceRepo, queueRepo, customerRepo, backend.Lock, validate, queueOpts, log,
	)
	mappingService := appintegration.NewProductMappingService(mappingRepo, productRepo, instanceRepo, backend.Mappings, log)
	salesOrderService := tradeapp.NewSalesOrderService(salesOrderRepo)
	workflowService := tradeapp.NewWorkflowService(workflowRepo, salesOrderRepo, log)

	// Handlers
	instanceHandler := handler.NewInstanceHandler(instanceService, orderQueueService, customerQueueService)
	queueHandler := handler.NewQueueHandler(orderQueueService, customerQueueService)
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	mappingHandler := handler.NewProductMappingHandler(mappingService)
	salesOrderHandler := handler.NewSalesOrderHandler(salesOrderService)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, Version, healthChecks(db, backend))

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.AccessLog(log, "/health"),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
			SkipPaths:   []string{"/health"},
		}),
		middleware.HTTPMetrics(mp, log),
		middleware.CORSWithConfig(middleware.CORSConfigFromHTTP(cfg.HTTP)),
		middleware.Secure(middleware.DefaultSecurityConfig()),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	engine.GET("/health", systemHandler.Health)
	engine.GET("/health/live", systemHandler.Live)
	engine.GET("/api/v1/health", systemHandler.Health)

	var routerOpts []router.Option
	var apiMiddleware []gin.HandlerFunc
	var authn gin.HandlerFunc
	if cfg.Auth.Enabled {
		revocations := auth.RevocationList(auth.NewInMemoryRevocationList())
		if client := backend.Client(); client != nil {
			revocations = auth.NewRedisRevocationList(client)
		}
		authn = middleware.JWTAuthMiddleware(auth.NewJWTService(cfg.Auth),
			middleware.WithRevocations(revocations),
			middleware.WithAuthLogger(log))
		apiMiddleware = append(apiMiddleware, authn)
		routerOpts = append(routerOpts, router.WithScopeGuard(middleware.RequireScope))
	}

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, authn),
		ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		go limiter.RunCleanup(ctx)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
	}
	apiMiddleware = append(apiMiddleware, middleware.SpanEnricher())
	if signals.Profiler.IsEnabled() {
		apiMiddleware = append(apiMiddleware, middleware.Profiling())
	}

	routes := router.New(engine, routerOpts...).
		Use(apiMiddleware...).
		Mount(
			router.Group{Name: "instances", Prefix: "/instances", Endpoints: []router.Endpoint{
				router.Get("", auth.ScopeRead, instanceHandler.List),
				router.Get("/:id", auth.ScopeRead, instanceHandler.GetByID),
				router.Post("", auth.ScopeQueueWrite, instanceHandler.Create),
				router.Post("/:id/order-queues", auth.ScopeQueueWrite, instanceHandler.EnqueueOrders),
				router.Post("/:id/order-queues/pull", auth.ScopeQueueWrite, instanceHandler.PullOrders),
				router.Post("/:id/customer-queues", auth.ScopeQueueWrite, instanceHandler.EnqueueCustomers),
			}},
			router.Group{Name: "queues", Endpoints: []router.Endpoint{
				router.Post("/order-queues/:id/process", auth.ScopeQueueProcess, queueHandler.ProcessOrderQueue),
				router.Post("/customer-queues/:id/process", auth.ScopeQueueProcess, queueHandler.ProcessCustomerQueue),
				router.Post("/queues/auto-process", auth.ScopeQueueProcess, queueHandler.AutoProcess),
				router.Get("/queue-lines/:id", auth.ScopeRead, queueHandler.GetLine),
				router.Get("/queue-lines/:id/logs", auth.ScopeRead, queueHandler.ListLineLogs),
				router.Post("/queue-lines/:id/process", auth.ScopeQueueProcess, queueHandler.ProcessLine),
				router.Post("/queue-lines/:id/cancel", auth.ScopeQueueProcess, queueHandler.CancelLine),
			}},
			router.Group{Name: "workflows", Prefix: "/workflows", Endpoints: []router.Endpoint{
				router.Post("", auth.ScopeMappingAdmin, workflowHandler.Create),
				router.Post("/auto-process", auth.ScopeQueueProcess, workflowHandler.AutoProcess),
				router.Post("/shipped", auth.ScopeQueueProcess, workflowHandler.Shipped),
			}},
			router.Group{Name: "product-mappings", Prefix: "/product-mappings", Endpoints: []router.Endpoint{
				router.Get("", auth.ScopeRead, mappingHandler.List),
				router.Get("/:id", auth.ScopeRead, mappingHandler.GetByID),
				router.Post("", auth.ScopeMappingAdmin, mappingHandler.Create),
				router.Put("/:id/remap", auth.ScopeMappingAdmin, mappingHandler.Remap),
				router.Delete("/:id", auth.ScopeMappingAdmin, mappingHandler.Delete),
				router.Post("/activate", auth.ScopeMappingAdmin, mappingHandler.Activate),
				router.Post("/deactivate", auth.ScopeMappingAdmin, mappingHandler.Deactivate),
			}},
			router.Group{Name: "sales-orders", Prefix: "/sales-orders", Endpoints: []router.Endpoint{
				router.Get("/:id", auth.ScopeRead, salesOrderHandler.GetByID),
			}},
			router.Group{Name: "system", Prefix: "/system", Endpoints: []router.Endpoint{
				router.Get("/info", auth.ScopeRead, systemHandler.GetSystemInfo),
				router.Get("/ping", "", systemHandler.Ping),
			}},
		).
		Setup()
	log.Debug("API routes mounted", zap.Int("count", len(routes)))

	// Background processing
	var sched *scheduler.Scheduler
	if cfg.Queue.AutoProcessEnabled {
		schedCfg := scheduler.DefaultSchedulerConfig()
		schedCfg.Enabled = true
		schedCfg.Workers = cfg.Queue.Workers
		schedCfg.Interval = cfg.Queue.AutoProcessInterval
		schedCfg.Kinds = []integration.QueueKind{integration.QueueKindCustomer, integration.QueueKindOrder}

		sched = scheduler.NewScheduler(schedCfg,
			scheduler.NewQueueJobExecutor(orderQueueService, customerQueueService, log), log)
		if err := sched.Start(ctx); err != nil {
			log.Fatal("Failed to start queue scheduler", zap.Error(err))
		}
	}

	var consumer *messaging.Consumer
	if cfg.AMQP.Enabled {
		consumer = messaging.NewConsumer(cfg.AMQP, orderQueueService, log)
		if err := consumer.Start(ctx); err != nil {
			log.Fatal("Failed to start AMQP consumer", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
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

	<-ctx.Done()
	stop()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if consumer != nil {
		if err := consumer.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping AMQP consumer", zap.Error(err))
		}
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping queue scheduler", zap.Error(err))
		}
	}
	if queueMetrics != nil {
		queueMetrics.Stop()
	}
	if err := backend.Close(); err != nil {
		log.Error("Error closing cache backend", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	log.Info("Server exited gracefully")
	if err := signals.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down telemetry", zap.Error(err))
	}
}

// runMigrations leaves the migrator open; closing it would close the pool
// shared with gorm
func runMigrations(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	return m.Up()
}

// healthChecks returns the dependency checks behind /health
func healthChecks(db *persistence.Database, backend *cache.Backend) map[string]handler.HealthCheck {
	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if client := backend.Client(); client != nil {
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	return checks
}
