package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/storage"
	"github.com/v0idec/event-bot/internal/storage/sqlite"
)

const testOwner int64 = 100500

func newTestStorage(t *testing.T) *sqlite.Storage {
	t.Helper()
	return newTestStorageWithClock(t, clock.New())
}

func newTestStorageWithClock(t *testing.T, clk clock.Clock) *sqlite.Storage {
	t.Helper()

	s, err := sqlite.New(filepath.Join(t.TempDir(), "events.db"), clk)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func saveEvent(t *testing.T, s *sqlite.Storage, owner int64, title string, dueAt time.Time) models.Event {
	t.Helper()

	event, err := s.SaveEvent(context.Background(), models.EventDraft{
		Owner: owner,
		Title: title,
		DueAt: dueAt,
	})
	require.NoError(t, err)

	return event
}

func TestSaveEvent_AssignsIDAndPending(t *testing.T) {
	s := newTestStorage(t)

	dueAt := time.Now().Add(time.Hour).Truncate(time.Second)
	event := saveEvent(t, s, testOwner, "dentist", dueAt)

	assert.NotZero(t, event.ID)
	assert.Equal(t, models.StatusPending, event.Status)
	assert.Equal(t, testOwner, event.Owner)
	assert.True(t, event.DueAt.Equal(dueAt))
	assert.False(t, event.CreatedAt.IsZero())
	assert.True(t, event.DeliveredAt.IsZero())
}

func TestSaveEvent_AttachmentRoundTrip(t *testing.T) {
	s := newTestStorage(t)

	event, err := s.SaveEvent(context.Background(), models.EventDraft{
		Owner: testOwner,
		Title: "send report",
		DueAt: time.Now().Add(time.Hour),
		Attachment: &models.Attachment{
			FileID: "BQACAgIAAxkBAAIB",
			Kind:   models.AttachmentDocument,
			Name:   "report.pdf",
		},
	})
	require.NoError(t, err)

	got, err := s.Event(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "BQACAgIAAxkBAAIB", got.Attachment.FileID)
	assert.Equal(t, models.AttachmentDocument, got.Attachment.Kind)
	assert.Equal(t, "report.pdf", got.Attachment.Name)
}

func TestTimestampsStampedFromClock(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFake(now)
	s := newTestStorageWithClock(t, clk)

	event := saveEvent(t, s, testOwner, "dated", now.Add(time.Hour))
	assert.True(t, event.CreatedAt.Equal(now), "created_at %v, want %v", event.CreatedAt, now)

	clk.Advance(time.Minute)

	ok, err := s.MarkDelivered(context.Background(), event.ID)
	require.NoError(t, err)
	require.True(t, ok)

	got, err := s.Event(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	assert.True(t, got.DeliveredAt.Equal(now.Add(time.Minute)),
		"delivered_at %v, want %v", got.DeliveredAt, now.Add(time.Minute))
}

func TestEvent_NotFound(t *testing.T) {
	s := newTestStorage(t)

	event := saveEvent(t, s, testOwner, "mine", time.Now().Add(time.Hour))

	_, err := s.Event(context.Background(), event.ID+1, testOwner)
	assert.ErrorIs(t, err, storage.ErrEventNotFound)

	// Someone else's event looks exactly like a missing one.
	_, err = s.Event(context.Background(), event.ID, testOwner+1)
	assert.ErrorIs(t, err, storage.ErrEventNotFound)
}

func TestEventsByOwner_OrderedByDueThenID(t *testing.T) {
	s := newTestStorage(t)

	base := time.Now().Truncate(time.Second)
	// Inserted out of due order on purpose.
	later := saveEvent(t, s, testOwner, "later", base.Add(2*time.Hour))
	earlier := saveEvent(t, s, testOwner, "earlier", base.Add(time.Hour))
	tieFirst := saveEvent(t, s, testOwner, "tie first", base.Add(3*time.Hour))
	tieSecond := saveEvent(t, s, testOwner, "tie second", base.Add(3*time.Hour))
	saveEvent(t, s, testOwner+1, "other owner", base.Add(time.Minute))

	events, err := s.EventsByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, earlier.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)
	assert.Equal(t, tieFirst.ID, events[2].ID)
	assert.Equal(t, tieSecond.ID, events[3].ID)
}

func TestEventsByOwnerBetween(t *testing.T) {
	s := newTestStorage(t)

	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	inside := saveEvent(t, s, testOwner, "inside", day.Add(14*time.Hour))
	saveEvent(t, s, testOwner, "day before", day.Add(-time.Hour))
	saveEvent(t, s, testOwner, "day after", day.Add(25*time.Hour))

	events, err := s.EventsByOwnerBetween(context.Background(), testOwner, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, inside.ID, events[0].ID)
}

func TestDueEvents_OnlyPendingAndDue(t *testing.T) {
	s := newTestStorage(t)

	now := time.Now().Truncate(time.Second)
	due := saveEvent(t, s, testOwner, "due", now.Add(-time.Minute))
	delivered := saveEvent(t, s, testOwner, "already delivered", now.Add(-2*time.Minute))
	cancelled := saveEvent(t, s, testOwner, "cancelled", now.Add(-3*time.Minute))
	saveEvent(t, s, testOwner, "not yet due", now.Add(time.Hour))

	ok, err := s.MarkDelivered(context.Background(), delivered.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.MarkCancelled(context.Background(), cancelled.ID, testOwner)
	require.NoError(t, err)
	require.True(t, ok)

	events, err := s.DueEvents(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, due.ID, events[0].ID)
}

func TestDueEvents_EarliestFirst(t *testing.T) {
	s := newTestStorage(t)

	now := time.Now().Truncate(time.Second)
	second := saveEvent(t, s, testOwner, "second", now.Add(-time.Minute))
	first := saveEvent(t, s, testOwner, "first", now.Add(-time.Hour))

	events, err := s.DueEvents(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
}

func TestMarkDelivered_SecondCallIsNoOp(t *testing.T) {
	s := newTestStorage(t)

	event := saveEvent(t, s, testOwner, "once only", time.Now().Add(-time.Minute))

	ok, err := s.MarkDelivered(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MarkDelivered(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.Event(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, got.Status)
	assert.False(t, got.DeliveredAt.IsZero())
}

func TestMarkCancelled_OwnerScoped(t *testing.T) {
	s := newTestStorage(t)

	event := saveEvent(t, s, testOwner, "to cancel", time.Now().Add(time.Hour))

	ok, err := s.MarkCancelled(context.Background(), event.ID, testOwner+1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkCancelled(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	assert.True(t, ok)

	// Terminal state: neither transition applies anymore.
	ok, err = s.MarkCancelled(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MarkDelivered(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurgeResolved_KeepsPending(t *testing.T) {
	s := newTestStorage(t)

	pending := saveEvent(t, s, testOwner, "pending", time.Now().Add(time.Hour))
	delivered := saveEvent(t, s, testOwner, "delivered", time.Now().Add(-time.Hour))
	cancelled := saveEvent(t, s, testOwner, "cancelled", time.Now().Add(time.Hour))

	ok, err := s.MarkDelivered(context.Background(), delivered.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.MarkCancelled(context.Background(), cancelled.ID, testOwner)
	require.NoError(t, err)
	require.True(t, ok)

	purged, err := s.PurgeResolved(context.Background(), testOwner)
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	events, err := s.EventsByOwner(context.Background(), testOwner)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, pending.ID, events[0].ID)
}

func TestConcurrentCancelAndDeliver_ExactlyOneWins(t *testing.T) {
	s := newTestStorage(t)

	event := saveEvent(t, s, testOwner, "contested", time.Now().Add(-time.Minute))

	deliverOK := make(chan bool, 1)
	cancelOK := make(chan bool, 1)

	go func() {
		ok, err := s.MarkDelivered(context.Background(), event.ID)
		assert.NoError(t, err)
		deliverOK <- ok
	}()
	go func() {
		ok, err := s.MarkCancelled(context.Background(), event.ID, testOwner)
		assert.NoError(t, err)
		cancelOK <- ok
	}()

	delivered := <-deliverOK
	cancelled := <-cancelOK

	assert.NotEqual(t, delivered, cancelled, "exactly one transition must win")

	got, err := s.Event(context.Background(), event.ID, testOwner)
	require.NoError(t, err)
	if delivered {
		assert.Equal(t, models.StatusDelivered, got.Status)
	} else {
		assert.Equal(t, models.StatusCancelled, got.Status)
	}
}

func TestEventNotFoundIsNotWrappedAway(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Event(context.Background(), 42, testOwner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrEventNotFound))
}
