package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/lib/logger/sl"
	"github.com/v0idec/event-bot/internal/storage"
)

type EventSaver interface {
	SaveEvent(ctx context.Context, draft models.EventDraft) (models.Event, error)
}

type EventProvider interface {
	Event(ctx context.Context, id, owner int64) (models.Event, error)
	EventsByOwner(ctx context.Context, owner int64) ([]models.Event, error)
	EventsByOwnerBetween(ctx context.Context, owner int64, from, to time.Time) ([]models.Event, error)
}

type EventMutator interface {
	MarkCancelled(ctx context.Context, id, owner int64) (bool, error)
	PurgeResolved(ctx context.Context, owner int64) (int64, error)
}

// Service is the owner-scoped facade over the event store used by the
// command layer. Due times are validated against the injected clock;
// an event at exactly Now() is rejected, only strictly future times pass.
type Service struct {
	log      *slog.Logger
	saver    EventSaver
	provider EventProvider
	mutator  EventMutator
	clock    clock.Clock
}

func New(
	log *slog.Logger,
	saver EventSaver,
	provider EventProvider,
	mutator EventMutator,
	clk clock.Clock,
) *Service {
	return &Service{
		log:      log,
		saver:    saver,
		provider: provider,
		mutator:  mutator,
		clock:    clk,
	}
}

func (s *Service) Create(ctx context.Context, owner int64, title string, dueAt time.Time, att *models.Attachment) (models.Event, error) {
	const op = "event.Create"
	log := s.log.With(slog.String("op", op), slog.Int64("owner", owner))

	title = strings.TrimSpace(title)
	if title == "" {
		return models.Event{}, fmt.Errorf("%s: %w", op, ErrTitleRequired)
	}

	if !dueAt.After(s.clock.Now()) {
		return models.Event{}, fmt.Errorf("%s: %w", op, ErrDueNotFuture)
	}

	event, err := s.saver.SaveEvent(ctx, models.EventDraft{
		Owner:      owner,
		Title:      title,
		DueAt:      dueAt,
		Attachment: att,
	})
	if err != nil {
		log.Error("failed to save event", sl.Err(err))
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("event created", slog.Int64("id", event.ID), slog.Time("due_at", event.DueAt))

	return event, nil
}

func (s *Service) Get(ctx context.Context, owner, id int64) (models.Event, error) {
	const op = "event.Get"

	event, err := s.provider.Event(ctx, id, owner)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			return models.Event{}, fmt.Errorf("%s: %w", op, ErrEventNotFound)
		}

		s.log.With(slog.String("op", op)).Error("failed to get event", sl.Err(err))
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return event, nil
}

// List returns all of the owner's events, every status included, ordered by
// due time then id.
func (s *Service) List(ctx context.Context, owner int64) ([]models.Event, error) {
	const op = "event.List"

	events, err := s.provider.EventsByOwner(ctx, owner)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list events", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// ListDay returns the owner's events due inside the calendar day containing
// day, in day's location.
func (s *Service) ListDay(ctx context.Context, owner int64, day time.Time) ([]models.Event, error) {
	const op = "event.ListDay"

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)

	events, err := s.provider.EventsByOwnerBetween(ctx, owner, from, to)
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to list day events", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return events, nil
}

// Cancel resolves a pending event. The false return covers every miss the
// same way: unknown id, someone else's event, or an already resolved one.
func (s *Service) Cancel(ctx context.Context, owner, id int64) (bool, error) {
	const op = "event.Cancel"
	log := s.log.With(slog.String("op", op), slog.Int64("owner", owner), slog.Int64("id", id))

	cancelled, err := s.mutator.MarkCancelled(ctx, id, owner)
	if err != nil {
		log.Error("failed to cancel event", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if cancelled {
		log.Info("event cancelled")
	}

	return cancelled, nil
}

// Purge removes the owner's delivered and cancelled events.
func (s *Service) Purge(ctx context.Context, owner int64) (int64, error) {
	const op = "event.Purge"
	log := s.log.With(slog.String("op", op), slog.Int64("owner", owner))

	purged, err := s.mutator.PurgeResolved(ctx, owner)
	if err != nil {
		log.Error("failed to purge events", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("events purged", slog.Int64("count", purged))

	return purged, nil
}
