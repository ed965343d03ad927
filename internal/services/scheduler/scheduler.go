package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/lib/logger/sl"
)

// Notifier delivers a rendered reminder to a chat. A false result means the
// recipient rejected or is unreachable; an error means the send could not be
// attempted at all. Neither marks the event delivered.
type Notifier interface {
	Send(ctx context.Context, chatID int64, message string) (bool, error)
}

type EventProvider interface {
	DueEvents(ctx context.Context, asOf time.Time, limit int) ([]models.Event, error)
	MarkDelivered(ctx context.Context, id int64) (bool, error)
}

// AuditPublisher receives a record of every confirmed delivery. Optional.
type AuditPublisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type Metrics struct {
	Delivered     prometheus.Counter
	SendFailures  prometheus.Counter
	CycleDuration prometheus.Observer
}

// Scheduler repeatedly scans for due events and delivers each at most once.
// Delivery is sequential in due order; the conditional MarkDelivered in the
// store is what resolves races with a concurrent cancel.
type Scheduler struct {
	log         *slog.Logger
	provider    EventProvider
	notifier    Notifier
	publisher   AuditPublisher
	clock       clock.Clock
	metrics     Metrics
	sendTimeout time.Duration
	stopChan    chan struct{}
	stopOnce    sync.Once
	done        chan struct{}
}

type Opts struct {
	Log         *slog.Logger
	Provider    EventProvider
	Notifier    Notifier
	Publisher   AuditPublisher
	Clock       clock.Clock
	Metrics     Metrics
	SendTimeout time.Duration
}

func New(opts Opts) *Scheduler {
	return &Scheduler{
		log:         opts.Log,
		provider:    opts.Provider,
		notifier:    opts.Notifier,
		publisher:   opts.Publisher,
		clock:       opts.Clock,
		metrics:     opts.Metrics,
		sendTimeout: opts.SendTimeout,
		stopChan:    make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the polling loop until ctx is cancelled or Stop is called.
// Blocks; run it in its own goroutine.
func (s *Scheduler) Start(ctx context.Context, limit int, interval time.Duration) {
	const op = "scheduler.Start"
	log := s.log.With(slog.String("op", op))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.done)

	log.Info("starting delivery loop",
		slog.Int("limit", limit), slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			log.Info("stopping delivery loop", sl.Err(ctx.Err()))
			return
		case <-s.stopChan:
			log.Info("stopping delivery loop")
			return
		case <-ticker.C:
			s.RunCycle(ctx, limit)
		}
	}
}

// RunCycle performs one scan-and-deliver pass. A storage failure aborts the
// cycle; a failure on one event never blocks the rest of the batch.
func (s *Scheduler) RunCycle(ctx context.Context, limit int) {
	const op = "scheduler.RunCycle"
	log := s.log.With(slog.String("op", op))

	started := time.Now()
	asOf := s.clock.Now()

	due, err := s.provider.DueEvents(ctx, asOf, limit)
	if err != nil {
		log.Error("failed to get due events", sl.Err(err))
		return
	}

	for _, event := range due {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		default:
		}

		s.deliver(ctx, event)
	}

	if s.metrics.CycleDuration != nil {
		s.metrics.CycleDuration.Observe(time.Since(started).Seconds())
	}
}

// deliver attempts one notification and, on confirmed send, records the
// delivery. Once the send succeeds the pending/delivered decision is always
// finished, even if shutdown is already in progress.
func (s *Scheduler) deliver(ctx context.Context, event models.Event) {
	const op = "scheduler.deliver"
	log := s.log.With(slog.String("op", op), slog.Int64("id", event.ID), slog.Int64("owner", event.Owner))

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	sent, err := s.notifier.Send(sendCtx, event.Owner, render(event))
	if err != nil {
		// Transport failure: leave pending, next cycle retries.
		log.Error("failed to send notification", sl.Err(err))
		if s.metrics.SendFailures != nil {
			s.metrics.SendFailures.Inc()
		}
		return
	}

	if !sent {
		log.Warn("notification rejected by recipient")
		if s.metrics.SendFailures != nil {
			s.metrics.SendFailures.Inc()
		}
		return
	}

	// Once the send has gone out the pending/delivered decision must
	// complete even if ctx was cancelled mid-send.
	delivered, err := s.provider.MarkDelivered(context.WithoutCancel(ctx), event.ID)
	if err != nil {
		log.Error("failed to mark event delivered", sl.Err(err))
		return
	}

	if !delivered {
		// Lost the race to a cancel or another scheduler; already resolved.
		log.Debug("event already resolved elsewhere")
		return
	}

	log.Info("event delivered")
	if s.metrics.Delivered != nil {
		s.metrics.Delivered.Inc()
	}

	s.publishAudit(ctx, event)
}

func (s *Scheduler) publishAudit(ctx context.Context, event models.Event) {
	const op = "scheduler.publishAudit"

	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(struct {
		EventID     int64     `json:"event_id"`
		Owner       int64     `json:"owner"`
		Title       string    `json:"title"`
		DueAt       time.Time `json:"due_at"`
		DeliveredAt time.Time `json:"delivered_at"`
	}{
		EventID:     event.ID,
		Owner:       event.Owner,
		Title:       event.Title,
		DueAt:       event.DueAt,
		DeliveredAt: s.clock.Now(),
	})
	if err != nil {
		s.log.With(slog.String("op", op)).Error("failed to marshal audit record", sl.Err(err))
		return
	}

	if err := s.publisher.Publish(ctx, []byte(uuid.NewString()), payload); err != nil {
		s.log.With(slog.String("op", op)).Error("failed to publish audit record", sl.Err(err))
	}
}

// Stop signals the loop to exit and waits for it to finish its in-flight
// event decision.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.done
}

func render(event models.Event) string {
	message := "⏰ " + event.DueAt.Format("02.01.2006 15:04") + ": " + event.Title
	if event.Attachment != nil {
		name := event.Attachment.Name
		if name == "" {
			name = string(event.Attachment.Kind)
		}
		message += "\n📎 " + name
	}
	return message
}
