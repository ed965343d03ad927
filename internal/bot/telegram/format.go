package telegram

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/v0idec/event-bot/internal/domain/models"
)

// Input format kept from the previous version of the bot: DDMMYY HHMM,
// e.g. "150624 1430".
const (
	dueAtInputLayout   = "020106 1504"
	dueAtDisplayLayout = "02.01.2006 15:04"

	eventsPerPage = 5
)

func ParseDueAt(s string) (time.Time, error) {
	return time.ParseInLocation(dueAtInputLayout, strings.TrimSpace(s), time.Local)
}

func FormatDueAt(t time.Time) string {
	return t.Format(dueAtDisplayLayout)
}

func formatEvent(event models.Event) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🆔 %d\n%s %s: %s\n", event.ID, statusIcon(event.Status), FormatDueAt(event.DueAt), event.Title)
	if event.Attachment != nil {
		name := event.Attachment.Name
		if name == "" {
			name = string(event.Attachment.Kind)
		}
		fmt.Fprintf(&b, "📎 %s\n", name)
	}

	return b.String()
}

func statusIcon(status models.Status) string {
	switch status {
	case models.StatusDelivered:
		return "✅"
	case models.StatusCancelled:
		return "❌"
	default:
		return "⏰"
	}
}

// formatEventPage renders one page of the owner's event list together with
// prev/next navigation when more pages exist.
func formatEventPage(events []models.Event, page int) (string, tgbotapi.InlineKeyboardMarkup) {
	totalPages := (len(events) + eventsPerPage - 1) / eventsPerPage
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * eventsPerPage
	end := start + eventsPerPage
	if end > len(events) {
		end = len(events)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your events (page %d/%d):\n\n", page+1, totalPages)
	for _, event := range events[start:end] {
		b.WriteString(formatEvent(event))
		b.WriteString("\n")
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️", fmt.Sprintf("page:%d", page-1)))
	}
	if end < len(events) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("➡️", fmt.Sprintf("page:%d", page+1)))
	}

	keyboard := tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
	if len(nav) > 0 {
		keyboard.InlineKeyboard = append(keyboard.InlineKeyboard, nav)
	}

	return b.String(), keyboard
}
