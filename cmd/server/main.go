package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	accountingapp "github.com/erp/ledger/internal/application/accounting"
	escrowapp "github.com/erp/ledger/internal/application/escrow"
	eventapp "github.com/erp/ledger/internal/application/event"
	"github.com/erp/ledger/internal/application/ledger"
	reconapp "github.com/erp/ledger/internal/application/reconciliation"
	salesapp "github.com/erp/ledger/internal/application/sales"
	shippingapp "github.com/erp/ledger/internal/application/shipping"
	"github.com/erp/ledger/internal/domain/reconciliation"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/cache"
	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/erp/ledger/internal/infrastructure/einvoice"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/erp/ledger/internal/infrastructure/scheduler"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
	"github.com/erp/ledger/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to set up telemetry", zap.Error(err))
	}
	log := providers.BridgeLogger(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = providers.Shutdown(context.Background())
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledger service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentDB(db.DB, cfg.Telemetry, cfg.Database.DBName, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	meter := providers.Meter("github.com/erp/ledger")
	var metrics ledger.Metrics
	if providers.MetricsEnabled() {
		lm, err := telemetry.NewLedgerMetrics(meter)
		if err != nil {
			log.Fatal("Failed to register ledger metrics", zap.Error(err))
		}
		metrics = lm
		if sqlDB, err := db.DB.DB(); err == nil {
			if _, err := telemetry.RegisterPoolMetrics(meter, sqlDB); err != nil {
				log.Warn("Pool metrics disabled", zap.Error(err))
			}
		}
	} else {
		meter = nil
	}
	log.Info("Database connected successfully")

	// Events: serializer, transactional outbox and the unit of work
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer, event.WithMaxRetries(cfg.Event.MaxRetries))
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	scope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	// Application services
	postingService := accountingapp.NewPostingService(scope, metrics, log.Named("posting"))
	if _, err := postingService.SeedChart(ctx); err != nil {
		log.Fatal("Failed to seed chart of accounts", zap.Error(err))
	}
	escrowService := escrowapp.NewEscrowService(scope, metrics, log.Named("escrow"))
	inboxService := shippingapp.NewInboxService(scope, metrics, log.Named("shipping"))
	orderSyncService := salesapp.NewOrderSyncService(scope, persistence.NewGormProductResolver(db.DB), log.Named("order_sync"))
	outboxService := eventapp.NewOutboxService(outboxRepo, log.Named("outbox"))
	receiptGuard := ledger.NewReceiptGuard(scope, log.Named("receipts"))

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.Redis.RequireRedis),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Event handlers, each behind the fast-path idempotency check
	eventBus := event.NewInMemoryEventBus(log.Named("eventbus"))
	idempotencyCfg := shared.DefaultIdempotencyConfig()
	if cfg.Event.IdempotencyTTL > 0 {
		idempotencyCfg.TTL = cfg.Event.IdempotencyTTL
	}
	for _, h := range event.WrapHandlersWithIdempotency([]shared.EventHandler{
		accountingapp.NewSalePostingHandler(postingService, receiptGuard, log.Named("sale_posting")),
		accountingapp.NewPayoutPostingHandler(postingService, receiptGuard, log.Named("payout_posting")),
		salesapp.NewStockConsumptionHandler(postingService, receiptGuard, log.Named("stock_consumption")),
		escrowapp.NewPayoutReleaseHandler(escrowService, log.Named("payout_release")),
	}, idempotencyStore, log, event.WithIdempotencyConfig(idempotencyCfg)) {
		eventBus.Subscribe(h)
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		processorCfg.BatchSize = cfg.Event.BatchSize
		processorCfg.PollInterval = cfg.Event.PollInterval
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		processorCfg.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, processorCfg, log.Named("outbox"))
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
		log.Info("Outbox processor started",
			zap.Int("batch_size", processorCfg.BatchSize),
			zap.Duration("poll_interval", processorCfg.PollInterval),
		)
	}

	// Reconciliation workers
	var provider reconciliation.EInvoiceProvider
	if client, err := einvoice.NewClient(cfg.EInvoice, log.Named("einvoice")); err == nil {
		provider = client
	} else if errors.Is(err, einvoice.ErrNotConfigured) {
		log.Warn("e-invoice provider not configured, invoice reconciliation disabled")
	} else {
		log.Fatal("Failed to create e-invoice client", zap.Error(err))
	}
	invoiceReconciler := reconapp.NewInvoiceReconciler(scope, provider, reconapp.InvoiceReconcilerConfig{
		CoolDown:        cfg.Reconciliation.CoolDown,
		Staleness:       cfg.Reconciliation.Staleness,
		BatchSize:       cfg.Reconciliation.BatchSize,
		ClaimTTL:        cfg.Reconciliation.ClaimTTL,
		RemoteTimeout:   cfg.Reconciliation.RemoteTimeout,
		AmountTolerance: cfg.Reconciliation.AmountTolerance,
	}, metrics, log.Named("invoice_reconciler"))
	payoutReconciler := reconapp.NewPayoutReconciler(scope, escrowService, reconapp.PayoutReconcilerConfig{
		GracePeriod: cfg.Payout.GracePeriod,
		BatchSize:   cfg.Payout.BatchSize,
	}, metrics, log.Named("payout_reconciler"))

	jobs := scheduler.New(log.Named("scheduler"))
	if cfg.Reconciliation.Enabled && provider != nil {
		mustRegister(log, jobs, invoiceReconciler, scheduler.JobConfig{
			Interval: cfg.Reconciliation.Interval,
			Timeout:  cfg.Reconciliation.RunTimeout,
		})
	}
	if cfg.Payout.Enabled {
		mustRegister(log, jobs, payoutReconciler, scheduler.JobConfig{
			Interval: cfg.Payout.Interval,
			Timeout:  cfg.Payout.RunTimeout,
		})
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	checks := []handler.HealthCheck{handler.DatabaseCheck(db.DB)}
	if _, ok := idempotencyStore.(*cache.RedisIdempotencyStore); ok {
		redisClient := cache.NewRedisClient(cfg.Redis)
		defer func() { _ = redisClient.Close() }()
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ReleaseMode:    cfg.App.Env == "production",
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TracingEnabled: providers.TracingEnabled(),
		Meter:          meter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	var webhookMiddleware []gin.HandlerFunc
	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		go limiter.RunCleanup(ctx)
		webhookMiddleware = append(webhookMiddleware, middleware.RateLimit(limiter))
	}

	router.RegisterRoutes(engine, router.Handlers{
		Health:         handler.NewHealthHandler(cfg.App.Name, version, checks...),
		Webhook:        handler.NewWebhookHandler(inboxService, escrowService),
		Ledger:         handler.NewLedgerHandler(postingService),
		Escrow:         handler.NewEscrowHandler(escrowService),
		Shipment:       handler.NewShipmentHandler(inboxService),
		Sales:          handler.NewSalesHandler(orderSyncService),
		Reconciliation: handler.NewReconciliationHandler(invoiceReconciler, payoutReconciler),
		Outbox:         handler.NewOutboxHandler(outboxService),
	}, webhookMiddleware...)

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
			log.Error("Server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func mustRegister(log *zap.Logger, s *scheduler.Scheduler, job scheduler.Job, cfg scheduler.JobConfig) {
	if err := s.Register(job, cfg); err != nil {
		log.Fatal("Failed to register job", zap.String("job", job.Name()), zap.Error(err))
	}
	log.Info("Job registered", zap.String("job", job.Name()), zap.Duration("interval", cfg.Interval))
}
