package event_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	eventservice "github.com/v0idec/event-bot/internal/services/event"
	"github.com/v0idec/event-bot/internal/storage"
)

type fakeStore struct {
	saved       []models.EventDraft
	events      map[int64]models.Event
	nextID      int64
	betweenFrom time.Time
	betweenTo   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[int64]models.Event), nextID: 1}
}

func (f *fakeStore) SaveEvent(_ context.Context, draft models.EventDraft) (models.Event, error) {
	f.saved = append(f.saved, draft)

	event := models.Event{
		ID:         f.nextID,
		Owner:      draft.Owner,
		Title:      draft.Title,
		DueAt:      draft.DueAt,
		Status:     models.StatusPending,
		CreatedAt:  time.Now(),
		Attachment: draft.Attachment,
	}
	f.events[event.ID] = event
	f.nextID++

	return event, nil
}

func (f *fakeStore) Event(_ context.Context, id, owner int64) (models.Event, error) {
	event, ok := f.events[id]
	if !ok || event.Owner != owner {
		return models.Event{}, storage.ErrEventNotFound
	}
	return event, nil
}

func (f *fakeStore) EventsByOwner(_ context.Context, owner int64) ([]models.Event, error) {
	var events []models.Event
	for _, event := range f.events {
		if event.Owner == owner {
			events = append(events, event)
		}
	}
	return events, nil
}

func (f *fakeStore) EventsByOwnerBetween(_ context.Context, owner int64, from, to time.Time) ([]models.Event, error) {
	f.betweenFrom, f.betweenTo = from, to
	return nil, nil
}

func (f *fakeStore) MarkCancelled(_ context.Context, id, owner int64) (bool, error) {
	event, ok := f.events[id]
	if !ok || event.Owner != owner || event.Status != models.StatusPending {
		return false, nil
	}
	event.Status = models.StatusCancelled
	f.events[id] = event
	return true, nil
}

func (f *fakeStore) PurgeResolved(_ context.Context, owner int64) (int64, error) {
	var purged int64
	for id, event := range f.events {
		if event.Owner == owner && event.Status != models.StatusPending {
			delete(f.events, id)
			purged++
		}
	}
	return purged, nil
}

func newTestService(store *fakeStore, clk clock.Clock) *eventservice.Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return eventservice.New(log, store, store, store, clk)
}

func TestCreate_StrictlyFutureDue(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := newTestService(store, clock.NewFake(now))

	_, err := service.Create(context.Background(), 1, "too late", now.Add(-time.Minute), nil)
	assert.ErrorIs(t, err, eventservice.ErrDueNotFuture)

	// Exactly now is rejected too: only strictly future passes.
	_, err = service.Create(context.Background(), 1, "right now", now, nil)
	assert.ErrorIs(t, err, eventservice.ErrDueNotFuture)

	assert.Empty(t, store.saved)
}

func TestCreate_TitleRequired(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := newTestService(store, clock.NewFake(now))

	_, err := service.Create(context.Background(), 1, "", now.Add(time.Hour), nil)
	assert.ErrorIs(t, err, eventservice.ErrTitleRequired)

	_, err = service.Create(context.Background(), 1, "   ", now.Add(time.Hour), nil)
	assert.ErrorIs(t, err, eventservice.ErrTitleRequired)

	assert.Empty(t, store.saved)
}

func TestCreate_HappyPath(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := newTestService(store, clock.NewFake(now))

	dueAt := now.Add(time.Hour)
	event, err := service.Create(context.Background(), 1, "  dentist  ", dueAt, nil)
	require.NoError(t, err)

	assert.Equal(t, "dentist", event.Title)
	assert.Equal(t, models.StatusPending, event.Status)
	assert.True(t, event.DueAt.Equal(dueAt))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "dentist", store.saved[0].Title)
}

func TestGet_TranslatesNotFound(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store, clock.New())

	_, err := service.Get(context.Background(), 1, 42)
	assert.ErrorIs(t, err, eventservice.ErrEventNotFound)
}

func TestListDay_CalendarDayBounds(t *testing.T) {
	store := newFakeStore()
	service := newTestService(store, clock.New())

	day := time.Date(2025, 6, 15, 17, 45, 3, 0, time.UTC)
	_, err := service.ListDay(context.Background(), 1, day)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), store.betweenFrom)
	assert.Equal(t, time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC), store.betweenTo)
}

func TestCancel_Delegates(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := newTestService(store, clock.NewFake(now))

	event, err := service.Create(context.Background(), 1, "cancel me", now.Add(time.Hour), nil)
	require.NoError(t, err)

	cancelled, err := service.Cancel(context.Background(), 1, event.ID)
	require.NoError(t, err)
	assert.True(t, cancelled)

	// Already resolved, unknown id, foreign owner: all plain false.
	cancelled, err = service.Cancel(context.Background(), 1, event.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)

	cancelled, err = service.Cancel(context.Background(), 2, event.ID)
	require.NoError(t, err)
	assert.False(t, cancelled)
}

func TestPurge_Delegates(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := newTestService(store, clock.NewFake(now))

	event, err := service.Create(context.Background(), 1, "resolved", now.Add(time.Hour), nil)
	require.NoError(t, err)

	_, err = service.Cancel(context.Background(), 1, event.ID)
	require.NoError(t, err)

	purged, err := service.Purge(context.Background(), 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)
}
