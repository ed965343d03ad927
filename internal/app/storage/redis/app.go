package redisapp

import (
	"log/slog"
	"time"

	"github.com/v0idec/event-bot/internal/storage/redis"
)

type App struct {
	Storage *redis.Storage
	log     *slog.Logger
}

func New(log *slog.Logger, addr string, sessionTTL time.Duration) *App {
	sessionStorage := redis.New(addr, sessionTTL)

	return &App{Storage: sessionStorage, log: log}
}

func (a *App) Stop() error {
	const op = "redisapp.Stop"
	a.log.With(slog.String("op", op)).Info("stopping redis app")
	return a.Storage.Stop()
}
