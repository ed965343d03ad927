package telegram

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0idec/event-bot/internal/domain/models"
)

func TestParseDueAt(t *testing.T) {
	got, err := ParseDueAt("150624 1430")
	require.NoError(t, err)

	want := time.Date(2024, 6, 15, 14, 30, 0, 0, time.Local)
	assert.True(t, got.Equal(want), "got %v, want %v", got, want)

	// Surrounding whitespace is tolerated.
	got, err = ParseDueAt("  150624 1430 ")
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestParseDueAt_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"tomorrow",
		"15.06.24 14:30",
		"150624",
		"320624 1430",
		"150624 2560",
	} {
		_, err := ParseDueAt(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestFormatEvent(t *testing.T) {
	event := models.Event{
		ID:     7,
		Title:  "dentist",
		DueAt:  time.Date(2025, 6, 15, 14, 30, 0, 0, time.Local),
		Status: models.StatusPending,
	}

	got := formatEvent(event)
	assert.Contains(t, got, "🆔 7")
	assert.Contains(t, got, "⏰ 15.06.2025 14:30: dentist")
	assert.NotContains(t, got, "📎")

	event.Status = models.StatusDelivered
	assert.Contains(t, formatEvent(event), "✅")

	event.Status = models.StatusCancelled
	assert.Contains(t, formatEvent(event), "❌")

	event.Attachment = &models.Attachment{Kind: models.AttachmentPhoto}
	assert.Contains(t, formatEvent(event), "📎 photo")

	event.Attachment.Name = "scan.jpg"
	assert.Contains(t, formatEvent(event), "📎 scan.jpg")
}

func TestFormatEventPage(t *testing.T) {
	var events []models.Event
	for i := 1; i <= 7; i++ {
		events = append(events, models.Event{
			ID:     int64(i),
			Title:  fmt.Sprintf("event %d", i),
			DueAt:  time.Date(2025, 6, 15, 10+i, 0, 0, 0, time.Local),
			Status: models.StatusPending,
		})
	}

	text, keyboard := formatEventPage(events, 0)
	assert.Contains(t, text, "page 1/2")
	assert.Contains(t, text, "event 1")
	assert.Contains(t, text, "event 5")
	assert.NotContains(t, text, "event 6")
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 1)
	assert.Equal(t, "page:1", *keyboard.InlineKeyboard[0][0].CallbackData)

	text, keyboard = formatEventPage(events, 1)
	assert.Contains(t, text, "page 2/2")
	assert.Contains(t, text, "event 6")
	assert.Contains(t, text, "event 7")
	assert.NotContains(t, text, "event 5")
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 1)
	assert.Equal(t, "page:0", *keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestFormatEventPage_ClampsPage(t *testing.T) {
	events := []models.Event{{
		ID:     1,
		Title:  "only one",
		DueAt:  time.Date(2025, 6, 15, 10, 0, 0, 0, time.Local),
		Status: models.StatusPending,
	}}

	text, keyboard := formatEventPage(events, 99)
	assert.Contains(t, text, "page 1/1")
	assert.Contains(t, text, "only one")
	assert.Empty(t, keyboard.InlineKeyboard)

	text, _ = formatEventPage(events, -5)
	assert.Contains(t, text, "page 1/1")
}
