package storageapp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/v0idec/event-bot/internal/config"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/storage/postgres"
	"github.com/v0idec/event-bot/internal/storage/sqlite"
)

// EventStorage is everything the event service and the scheduler need from
// the durable store. Both drivers implement it.
type EventStorage interface {
	SaveEvent(ctx context.Context, draft models.EventDraft) (models.Event, error)
	Event(ctx context.Context, id, owner int64) (models.Event, error)
	EventsByOwner(ctx context.Context, owner int64) ([]models.Event, error)
	EventsByOwnerBetween(ctx context.Context, owner int64, from, to time.Time) ([]models.Event, error)
	DueEvents(ctx context.Context, asOf time.Time, limit int) ([]models.Event, error)
	MarkDelivered(ctx context.Context, id int64) (bool, error)
	MarkCancelled(ctx context.Context, id, owner int64) (bool, error)
	PurgeResolved(ctx context.Context, owner int64) (int64, error)
}

type App struct {
	Storage EventStorage
	log     *slog.Logger
	closeFn func() error
}

func MustCreateApp(cfg config.StorageConfig, log *slog.Logger, clk clock.Clock) *App {
	app, err := New(cfg, log, clk)
	if err != nil {
		panic(err)
	}

	return app
}

func New(cfg config.StorageConfig, log *slog.Logger, clk clock.Clock) (*App, error) {
	const op = "storageapp.New"

	switch cfg.Driver {
	case config.StorageDriverSQLite:
		storage, err := sqlite.New(cfg.Path, clk)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &App{Storage: storage, log: log, closeFn: storage.Close}, nil
	case config.StorageDriverPostgres:
		storage, err := postgres.New(context.Background(), cfg.PostgresAddr, clk)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		return &App{
			Storage: storage,
			log:     log,
			closeFn: func() error {
				storage.ClosePool()
				return nil
			},
		}, nil
	default:
		return nil, fmt.Errorf("%s: unknown storage driver %q", op, cfg.Driver)
	}
}

func (a *App) Stop() error {
	const op = "storageapp.Stop"
	a.log.With(slog.String("op", op)).Info("stopping storage app")
	return a.closeFn()
}
