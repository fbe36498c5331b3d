package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	feeapp "github.com/schoolfees/backend/internal/application/fee"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/auth"
	"github.com/schoolfees/backend/internal/infrastructure/cache"
	"github.com/schoolfees/backend/internal/infrastructure/config"
	"github.com/schoolfees/backend/internal/infrastructure/logger"
	"github.com/schoolfees/backend/internal/infrastructure/migration"
	"github.com/schoolfees/backend/internal/infrastructure/persistence"
	"github.com/schoolfees/backend/internal/infrastructure/strategy"
	"github.com/schoolfees/backend/internal/infrastructure/telemetry"
	"github.com/schoolfees/backend/internal/interfaces/http/handler"
	"github.com/schoolfees/backend/internal/interfaces/http/middleware"
	"github.com/schoolfees/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			School Fees API
//	@version		1.0
//	@description	Demand bills, dues and fee collection for a school fee desk.

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	var (
		issueToken string
		tokenRoles string
	)
	flag.StringVar(&issueToken, "issue-token", "", "Print an access token for this username and exit")
	flag.StringVar(&tokenRoles, "roles", auth.RoleCollector, "Comma separated roles for -issue-token")
	flag.Parse()

	// Bootstrap logger used until configuration and telemetry are up
	bootLog, err := logger.NewForEnvironment(os.Getenv(config.EnvPrefix + "_APP_ENV"))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT)
	if issueToken != "" {
		if err := printToken(jwtService, issueToken, tokenRoles); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	providers, err := telemetry.Setup(context.Background(), cfg.Telemetry, version, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	// Final logger tees into the OTLP log bridge when log export is on
	var extraCores []zapcore.Core
	if providers.Logs.IsEnabled() {
		extraCores = append(extraCores, providers.Logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, extraCores...)
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	log.Info("Starting school fees backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL),
	)

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	sqlDB, err := db.SQL()
	if err != nil {
		log.Fatal("Failed to get sql.DB", zap.Error(err))
	}

	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracing(cfg.Telemetry, cfg.Database.DBName), log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	meter := providers.Meter.Meter(telemetry.MeterName)
	if providers.Meter.IsEnabled() {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, sqlDB, meter, cfg.Telemetry.DBSlowQueryThresh, log)
		if err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		defer dbMetrics.Stop()
	}

	if cfg.App.AutoMigrate {
		if err := runMigrations(sqlDB, log); err != nil {
			log.Fatal("Failed to run migrations", zap.Error(err))
		}
	}

	// Redis backed stores; outside production a missing Redis falls back to memory
	cacheFactory, err := cache.NewFactory(cfg.Redis, cfg.Cache,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize cache", zap.Error(err))
	}
	defer func() {
		if err := cacheFactory.Close(); err != nil {
			log.Error("Error closing cache", zap.Error(err))
		}
	}()
	log.Info("Cache initialized", zap.Bool("redis", cacheFactory.UsesRedis()))

	strategies, err := strategy.NewRegistryWithDefaults(cfg.Billing.AllocationStrategy)
	if err != nil {
		log.Fatal("Failed to initialize allocation strategies", zap.Error(err))
	}

	feeMetrics, err := telemetry.NewFeeMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create fee metrics", zap.Error(err))
	}

	// Initialize repositories
	feeTypeRepo := persistence.NewGormFeeTypeRepository(db.DB)
	studentRepo := persistence.NewGormStudentRepository(db.DB)
	structureRepo := persistence.NewGormFeeStructureRepository(db.DB)
	discountRepo := persistence.NewGormDiscountRepository(db.DB)
	billRepo := persistence.NewGormDemandBillRepository(db.DB)
	txnRepo := persistence.NewGormFeeTransactionRepository(db.DB)

	// Initialize application services
	settings := feeapp.BillingSettings{
		DefaultDueDay:      cfg.Billing.DefaultDueDay,
		LateFeeName:        cfg.Billing.LateFeeName,
		AllocationStrategy: cfg.Billing.AllocationStrategy,
		Location:           cfg.Billing.Location(),
	}
	dashboardCache := cacheFactory.DashboardCache()

	feeTypeService := feeapp.NewFeeTypeService(feeTypeRepo)
	studentService := feeapp.NewStudentService(studentRepo)
	structureService := feeapp.NewStructureService(structureRepo, discountRepo, feeTypeRepo, studentRepo)
	billService := feeapp.NewBillService(billRepo, txnRepo, studentRepo, structureRepo, discountRepo,
		dashboardCache, feeMetrics, settings, log)
	dashboardService := feeapp.NewDashboardService(studentRepo, billRepo, txnRepo, dashboardCache, feeMetrics, log)
	prefillService := feeapp.NewPrefillService(dashboardService, feeTypeRepo, feeMetrics, log)
	collectionService := feeapp.NewCollectionService(feeapp.CollectionServiceDeps{
		StudentRepo: studentRepo,
		BillRepo:    billRepo,
		TxnRepo:     txnRepo,
		FeeTypeRepo: feeTypeRepo,
		Strategies:  strategies,
		Idempotency: cacheFactory.IdempotencyStore(),
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     cfg.Cache.IdempotencyTTL,
			Enabled: true,
		},
		Cache:    dashboardCache,
		Metrics:  feeMetrics,
		Settings: settings,
		Logger:   log,
	})
	transactionService := feeapp.NewTransactionService(txnRepo)

	// Initialize handlers
	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(),
		Reference:  handler.NewReferenceHandler(feeTypeService, studentService, structureService),
		DemandBill: handler.NewDemandBillHandler(billService),
		Fee: handler.NewFeeHandler(handler.FeeHandlerDeps{
			Dashboard:    dashboardService,
			Prefill:      prefillService,
			Collection:   collectionService,
			Transactions: transactionService,
		}),
		Strategy: handler.NewStrategyHandler(strategies),
	}
	systemHandler := handler.NewSystemHandler(db, version)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Request ID must run first; the logger and tracing read it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	if providers.Meter.IsEnabled() {
		engine.Use(middleware.HTTPMetrics(meter))
	}
	engine.Use(middleware.Profiling(cfg.Telemetry.ProfilingEnabled, "/health"))

	engine.GET("/health", systemHandler.Health)

	apiMiddleware := []gin.HandlerFunc{
		middleware.JWTAuthWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			Logger:     log,
		}),
		middleware.SpanEnricher(),
	}
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithAPIMiddleware(apiMiddleware...),
	)
	for _, group := range router.FeeDeskGroups(handlers) {
		r.Register(group)
	}
	r.Setup()

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// runMigrations applies pending migrations from the first migrations
// directory found near the working directory or the executable
func runMigrations(sqlDB *sql.DB, log *zap.Logger) error {
	path := migration.FindMigrationsPath()
	m, err := migration.New(sqlDB, path, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close the shared pool
	return m.Up()
}

// printToken writes a signed access token for a staff member to stdout
func printToken(jwtService *auth.JWTService, username, roles string) error {
	var roleList []string
	for r := range strings.SplitSeq(roles, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roleList = append(roleList, r)
		}
	}
	token, err := jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   uuid.New(),
		Username: username,
		Roles:    roleList,
	})
	if err != nil {
		return err
	}
	fmt.Println(token.Token)
	return nil
}
