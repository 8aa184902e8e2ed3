package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nudgelab/reminder-engine/internal/config"
	"github.com/nudgelab/reminder-engine/internal/content"
	"github.com/nudgelab/reminder-engine/internal/handler"
	"github.com/nudgelab/reminder-engine/internal/infra/postgresql"
	"github.com/nudgelab/reminder-engine/internal/infra/postgresql/migrations"
	infraredis "github.com/nudgelab/reminder-engine/internal/infra/redis"
	"github.com/nudgelab/reminder-engine/internal/observability"
	"github.com/nudgelab/reminder-engine/internal/push"
	"github.com/nudgelab/reminder-engine/internal/repository"
	"github.com/nudgelab/reminder-engine/internal/service"
	"github.com/nudgelab/reminder-engine/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	reminderRepo := repository.NewGormReminderRepo(db)
	subscriptionRepo := repository.NewGormSubscriptionRepo(db)
	preferenceRepo := repository.NewGormPreferenceRepo(db)

	knowledgeBase := content.NewStaticKnowledgeBase()
	seedKnowledgeBase(knowledgeBase)
	resolver := content.NewResolver(knowledgeBase, logger)

	sink, err := buildSink(cfg)
	if err != nil {
		logger.Fatal("push sink initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	dispatcher, err := service.NewDispatcher(subscriptionRepo, preferenceRepo, resolver, sink, rateLimiter, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(
		reminderRepo,
		dispatcher,
		time.Duration(cfg.TickIntervalSeconds)*time.Second,
		cfg.ScanLimit,
		cfg.DispatchConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}
	scheduler.SetMetrics(metrics)

	reminderService, err := service.NewReminderService(reminderRepo, subscriptionRepo, preferenceRepo, dispatcher, logger)
	if err != nil {
		logger.Fatal("reminder service initialization failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := scheduler.Start(ctx); err != nil {
			logger.Error("scheduler stopped with error", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.CorrelationMiddleware())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterReminderRoutes(app, reminderService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	logger.Info("reminder-engine api started", zap.Int("port", cfg.APIPort))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("http server stopped", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown deadline")
	}

	logger.Info("reminder-engine api stopped")
}

func buildSink(cfg *config.Config) (push.Sink, error) {
	if cfg.PushWebhookURL != "" {
		return push.NewWebhookSink(cfg.PushWebhookURL)
	}
	return push.NewWebPushSink(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
}

func seedKnowledgeBase(kb *content.StaticKnowledgeBase) {
	kb.Put("default", []content.Entry{
		{
			Title:    "Hydration",
			Content:  "Drinking a glass of water before each meal helps with digestion and portion control.",
			Category: "nutrition",
		},
		{
			Title:    "Movement breaks",
			Content:  "Standing up and stretching for two minutes every hour reduces stiffness and improves circulation.",
			Category: "activity",
		},
		{
			Title:    "Sleep routine",
			Content:  "Going to bed at the same time every night makes it easier to fall asleep and improves sleep quality.",
			Category: "education",
		},
	})
}
