package botapp

import (
	"context"
	"log/slog"

	"github.com/v0idec/event-bot/internal/bot/telegram"
)

// App runs the long-polling update loop and dispatches into the handlers.
type App struct {
	log      *slog.Logger
	client   *telegram.Client
	handlers *telegram.Handlers
	done     chan struct{}
}

func New(log *slog.Logger, client *telegram.Client, handlers *telegram.Handlers) *App {
	return &App{
		log:      log,
		client:   client,
		handlers: handlers,
		done:     make(chan struct{}),
	}
}

func (a *App) MustRun() {
	a.Run()
}

func (a *App) Run() {
	const op = "botapp.Run"
	log := a.log.With(slog.String("op", op))

	defer close(a.done)

	log.Info("bot is polling for updates", slog.String("username", a.client.Username()))

	ctx := context.Background()
	for update := range a.client.UpdatesChan() {
		a.handlers.HandleUpdate(ctx, update)
	}
}

// Stop closes the update stream and waits for the in-flight update to finish.
func (a *App) Stop() {
	const op = "botapp.Stop"
	a.log.With(slog.String("op", op)).Info("stopping bot")

	a.client.StopReceivingUpdates()
	<-a.done
}
