package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/kudibooks-backend/internal/bootstrap"
	"github.com/angelmondragon/kudibooks-backend/internal/tasks"
	"github.com/angelmondragon/kudibooks-backend/pkg/config"
	"github.com/angelmondragon/kudibooks-backend/pkg/db"
	"github.com/angelmondragon/kudibooks-backend/pkg/instance"
	"github.com/angelmondragon/kudibooks-backend/pkg/logger"
	"github.com/angelmondragon/kudibooks-backend/pkg/metrics"
	"github.com/angelmondragon/kudibooks-backend/pkg/migrate"
	"github.com/angelmondragon/kudibooks-backend/pkg/pubsub"
	"github.com/angelmondragon/kudibooks-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	core, err := bootstrap.NewCore(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to assemble invoice core", err)
		os.Exit(1)
	}

	var (
		notifier     tasks.Notifier = tasks.LogNotifier{Log: func(ctx context.Context, msg string, fields map[string]any) { logg.Warn(logg.WithFields(ctx, fields), msg) }}
		alerts       *gcppubsub.Publisher
		pubsubClient *pubsub.Client
	)
	if cfg.PubSub.Enabled(cfg.GCP) {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		pubNotifier, err := tasks.NewPubSubNotifier(pubsubClient.NotificationPublisher())
		if err != nil {
			logg.Error(context.Background(), "failed to create notifier", err)
			os.Exit(1)
		}
		notifier = pubNotifier
		alerts = pubsubClient.AlertPublisher()
	}

	deps := tasks.HandlerDeps{
		Documents: core.Invoices,
		Notifier:  notifier,
		Verifier:  core.Invoices,
	}
	if cfg.Renderer.BaseURL != "" {
		renderer, err := tasks.NewHTTPRenderer(cfg.Renderer, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create document renderer", err)
			os.Exit(1)
		}
		deps.Renderer = renderer
	} else {
		logg.Warn(context.Background(), "renderer base url not set, render tasks will fail without a handler")
	}

	worker, err := tasks.NewWorker(tasks.WorkerParams{
		Config:   cfg.Tasks,
		Logger:   logg,
		DB:       dbClient,
		Repo:     core.TaskRepo,
		Handlers: tasks.Handlers(deps),
		Metrics:  metrics.NewTaskMetrics(prometheus.DefaultRegisterer),
		Alerter:  tasks.NewAlerter(logg, alerts),
		Owner:    instance.GetID(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create task worker", err)
		os.Exit(1)
	}

	params := ServiceParams{
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		Worker:      worker,
		MetricsAddr: cfg.Tasks.MetricsAddr,
		Gatherer:    prometheus.DefaultGatherer,
	}
	if pubsubClient != nil {
		params.PubSub = pubsubClient
	}
	service, err := NewService(params)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting worker")

	if err := service.Run(ctx); err != nil {
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
