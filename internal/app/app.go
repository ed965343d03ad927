package app

import (
	"context"
	"log/slog"

	botapp "github.com/v0idec/event-bot/internal/app/bot"
	metricsapp "github.com/v0idec/event-bot/internal/app/metrics"
	storageapp "github.com/v0idec/event-bot/internal/app/storage"
	redisapp "github.com/v0idec/event-bot/internal/app/storage/redis"
	"github.com/v0idec/event-bot/internal/bot/telegram"
	"github.com/v0idec/event-bot/internal/config"
	"github.com/v0idec/event-bot/internal/kafka"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/lib/logger/sl"
	eventservice "github.com/v0idec/event-bot/internal/services/event"
	"github.com/v0idec/event-bot/internal/services/scheduler"
)

type App struct {
	log          *slog.Logger
	cfg          *config.Config
	bot          *botapp.App
	metrics      *metricsapp.App
	storage      *storageapp.App
	redisStorage *redisapp.App
	scheduler    *scheduler.Scheduler
	producer     *kafka.Producer
	schedulerCtx context.Context
	stopPolling  context.CancelFunc
}

func New(log *slog.Logger, cfg *config.Config) *App {
	metrics := metricsapp.New(log, cfg.Metrics.Port)

	clk := clock.New()

	storage := storageapp.MustCreateApp(cfg.Storage, log, clk)
	redisStorage := redisapp.New(log, cfg.Redis.Addr, cfg.Redis.SessionTTL)

	var producer *kafka.Producer
	var publisher scheduler.AuditPublisher
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = producer
	}

	client, err := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.SendTimeout)
	if err != nil {
		panic(err)
	}

	events := eventservice.New(log, storage.Storage, storage.Storage, storage.Storage, clk)

	deliveryScheduler := scheduler.New(scheduler.Opts{
		Log:       log,
		Provider:  storage.Storage,
		Notifier:  client,
		Publisher: publisher,
		Clock:     clk,
		Metrics: scheduler.Metrics{
			Delivered:     metrics.DeliveredCounter,
			SendFailures:  metrics.SendFailureCounter,
			CycleDuration: metrics.CycleDuration,
		},
		SendTimeout: cfg.Telegram.SendTimeout,
	})

	handlers := telegram.NewHandlers(log, client, events, redisStorage.Storage, clk)
	bot := botapp.New(log, client, handlers)

	schedulerCtx, stopPolling := context.WithCancel(context.Background())

	return &App{
		log:          log,
		cfg:          cfg,
		bot:          bot,
		metrics:      metrics,
		storage:      storage,
		redisStorage: redisStorage,
		scheduler:    deliveryScheduler,
		producer:     producer,
		schedulerCtx: schedulerCtx,
		stopPolling:  stopPolling,
	}
}

func (a *App) MustRun() {
	go a.metrics.MustRun()
	go a.scheduler.Start(a.schedulerCtx, a.cfg.Scheduler.BatchLimit, a.cfg.Scheduler.Interval)
	a.bot.MustRun()
}

func (a *App) Stop() error {
	a.bot.Stop()
	a.scheduler.Stop()
	a.stopPolling()

	if err := a.metrics.Stop(); err != nil {
		a.log.Error("failed to stop metrics server", sl.Err(err))
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Error("failed to close kafka producer", sl.Err(err))
		}
	}

	if err := a.storage.Stop(); err != nil {
		a.log.Error("failed to stop storage", sl.Err(err))
	}

	return a.redisStorage.Stop()
}
