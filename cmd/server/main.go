package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadscore/backend/internal/application/monitor"
	apprules "github.com/leadscore/backend/internal/application/rules"
	appscoring "github.com/leadscore/backend/internal/application/scoring"
	"github.com/leadscore/backend/internal/domain/experiment"
	"github.com/leadscore/backend/internal/domain/scoring"
	"github.com/leadscore/backend/internal/infrastructure/cache"
	"github.com/leadscore/backend/internal/infrastructure/config"
	"github.com/leadscore/backend/internal/infrastructure/logger"
	"github.com/leadscore/backend/internal/infrastructure/notify"
	"github.com/leadscore/backend/internal/infrastructure/persistence"
	"github.com/leadscore/backend/internal/infrastructure/scheduler"
	"github.com/leadscore/backend/internal/infrastructure/telemetry"
	"github.com/leadscore/backend/internal/infrastructure/worker"
	"github.com/leadscore/backend/internal/interfaces/http/handler"
	"github.com/leadscore/backend/internal/interfaces/http/middleware"
	"github.com/leadscore/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("starting leadscore backend",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port))

	ctx := context.Background()

	// Telemetry
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	metrics, err := telemetry.NewScoringMetrics(meterProvider.Meter("leadscore.scoring"))
	if err != nil {
		log.Fatal("Failed to create scoring metrics", zap.Error(err))
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	decisionRepo := persistence.NewGormDecisionRepository(db.DB)
	feedbackRepo := persistence.NewGormFeedbackRepository(db.DB)
	sampleRepo := persistence.NewGormTrainingSampleRepository(db.DB)
	alertRepo := persistence.NewGormAlertRepository(db.DB)
	schemaRepo := persistence.NewGormSchemaRepository(db.DB)

	// Schema cache: in-memory always, Redis tier when enabled
	var schemaCache apprules.SchemaCache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisSchemaCache(cfg.Redis, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisCache.Close()
		schemaCache = cache.NewTieredSchemaCache(redisCache)
	} else {
		schemaCache = cache.NewInMemorySchemaCache()
	}

	// Application services
	schemaService := apprules.NewSchemaService(schemaRepo, schemaCache, log.Named("schemas"))

	legacyRegistry := appscoring.NewLegacyRegistry()
	legacyRegistry.Register(appscoring.NewCompanyFitScorer())
	legacyRegistry.Register(appscoring.NewEngagementScorer())

	decisionWriter := worker.NewDecisionWriter(decisionRepo, worker.DecisionWriterConfig{
		QueueSize:      cfg.DecisionLog.QueueSize,
		Workers:        cfg.DecisionLog.Workers,
		MaxAttempts:    cfg.DecisionLog.MaxAttempts,
		RetryBaseDelay: cfg.DecisionLog.RetryBaseDelay,
	}, metrics, log.Named("decision_writer"))
	if err := decisionWriter.Start(ctx); err != nil {
		log.Fatal("Failed to start decision writer", zap.Error(err))
	}

	experimentResolver := func(tool string) experiment.Config {
		return cfg.Experiment.ForTool(tool)
	}

	executor := appscoring.NewShadowExecutor(
		legacyRegistry,
		schemaService,
		decisionWriter,
		experimentResolver,
		metrics,
		appscoring.ShadowExecutorOptions{
			Enabled: cfg.Shadow.Enabled,
			Tolerance: scoring.Tolerance{
				Score:      cfg.Shadow.ScoreTolerance,
				Confidence: cfg.Shadow.ConfidenceTolerance,
			},
			TimeBudget: cfg.Shadow.TimeBudget,
		},
		log.Named("shadow"),
	)

	feedbackService := appscoring.NewFeedbackService(decisionRepo, feedbackRepo, log.Named("feedback"))
	statsService := appscoring.NewStatsService(decisionRepo, feedbackRepo, experimentResolver,
		cfg.Monitor.MinFeedbackSamples, cfg.Monitor.WinnerRateDelta, log.Named("stats"))

	// Performance monitor
	notifier := notify.NewWebhookNotifier(cfg.Monitor.WebhookURL, log.Named("notify"))
	perfMonitor := monitor.NewMonitor(
		decisionRepo, feedbackRepo, sampleRepo, alertRepo,
		notifier,
		experimentResolver,
		monitorThresholds(cfg),
		monitorOverrides(cfg),
		log.Named("monitor"),
	)

	monitorScheduler := scheduler.NewMonitorScheduler(perfMonitor, legacyRegistry.Tools,
		scheduler.DefaultMonitorSchedulerConfig(), log.Named("scheduler"))
	if err := monitorScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start monitor scheduler", zap.Error(err))
	}

	// HTTP server
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middleware.SetupValidator()
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))

	handler.NewHealthHandler(db).RegisterRoutes(engine)

	router.Mount(engine, "v1",
		handler.NewScoringHandler(executor, statsService),
		handler.NewFeedbackHandler(feedbackService),
		handler.NewMonitorHandler(perfMonitor),
		handler.NewRuleSchemaHandler(schemaService),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := monitorScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Monitor scheduler shutdown failed", zap.Error(err))
	}
	if err := decisionWriter.Stop(shutdownCtx); err != nil {
		log.Error("Decision writer shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Meter shutdown failed", zap.Error(err))
	}

	log.Info("shutdown complete")
}

func monitorThresholds(cfg *config.Config) monitor.Thresholds {
	return monitor.Thresholds{
		SuccessRate:        cfg.Monitor.SuccessRateThreshold,
		MinFeedbackSamples: cfg.Monitor.MinFeedbackSamples,
		AvgConfidence:      cfg.Monitor.ConfidenceThreshold,
		MinDecisionSamples: cfg.Monitor.MinDecisionSamples,
		PendingFeedback:    cfg.Monitor.PendingFeedbackThreshold,
		MismatchRatio:      cfg.Monitor.MatchToleranceThreshold,
		MinShadowSamples:   cfg.Monitor.MinShadowSamples,
		Window:             time.Duration(cfg.Monitor.WindowDays) * 24 * time.Hour,
		TrainingBatchSize:  cfg.Monitor.TrainingBatchSize,
	}
}

func monitorOverrides(cfg *config.Config) map[string]monitor.Overrides {
	overrides := make(map[string]monitor.Overrides, len(cfg.Monitor.Tools))
	for tool, o := range cfg.Monitor.Tools {
		overrides[tool] = monitor.Overrides{
			SuccessRate:   o.SuccessRateThreshold,
			AvgConfidence: o.ConfidenceThreshold,
			MismatchRatio: o.MatchToleranceThreshold,
		}
	}
	return overrides
}
