package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/lib/logger/sl"
	eventservice "github.com/v0idec/event-bot/internal/services/event"
	"github.com/v0idec/event-bot/internal/storage"
)

const helpText = `📅 Event reminder bot

Available commands:
/add - add an event
/list - list your events
/today - events due today
/file - fetch an event's attachment
/cancel - cancel a pending event
/purge - remove delivered and cancelled events

Date format: DDMMYY HHMM (e.g. 150624 1430)`

type EventService interface {
	Create(ctx context.Context, owner int64, title string, dueAt time.Time, att *models.Attachment) (models.Event, error)
	Get(ctx context.Context, owner, id int64) (models.Event, error)
	List(ctx context.Context, owner int64) ([]models.Event, error)
	ListDay(ctx context.Context, owner int64, day time.Time) ([]models.Event, error)
	Cancel(ctx context.Context, owner, id int64) (bool, error)
	Purge(ctx context.Context, owner int64) (int64, error)
}

type SessionStore interface {
	Session(ctx context.Context, chatID int64) (models.Session, error)
	SaveSession(ctx context.Context, chatID int64, session models.Session) error
	RemoveSession(ctx context.Context, chatID int64) error
}

// Handlers maps incoming updates onto EventService calls, tracking the
// multi-step /add, /file and /cancel conversations in the session store.
type Handlers struct {
	log       *slog.Logger
	client    *Client
	events    EventService
	sessions  SessionStore
	validator *validator.Validate
	clock     clock.Clock
}

func NewHandlers(
	log *slog.Logger,
	client *Client,
	events EventService,
	sessions SessionStore,
	clk clock.Clock,
) *Handlers {
	return &Handlers{
		log:       log,
		client:    client,
		events:    events,
		sessions:  sessions,
		validator: validator.New(),
		clock:     clk,
	}
}

func (h *Handlers) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message != nil {
		h.handleMessage(ctx, update.Message)
	}

	if update.CallbackQuery != nil {
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *Handlers) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		h.handleCommand(ctx, msg)
		return
	}

	chatID := msg.Chat.ID

	session, err := h.sessions.Session(ctx, chatID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			h.reply(chatID, "Press /start for the command list")
			return
		}

		h.log.Error("failed to load session", sl.Err(err))
		h.reply(chatID, "⚠️ Something went wrong, try again")
		return
	}

	switch session.State {
	case models.StateAwaitDueAt:
		h.handleDueAtInput(ctx, msg, session)
	case models.StateAwaitTitle:
		h.handleTitleInput(ctx, msg, session)
	case models.StateAwaitFile:
		h.handleFileInput(ctx, msg, session)
	case models.StateAwaitFileID:
		h.handleFileIDInput(ctx, msg)
	case models.StateAwaitCancelID:
		h.handleCancelIDInput(ctx, msg)
	default:
		h.reply(chatID, "Press /start for the command list")
	}
}

func (h *Handlers) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		h.reply(chatID, helpText)
	case "add":
		h.startSession(ctx, chatID, models.Session{State: models.StateAwaitDueAt})
		h.reply(chatID, "📆 Enter the event date and time (DDMMYY HHMM, e.g. 150624 1430):")
	case "list":
		h.sendList(ctx, chatID)
	case "today":
		h.sendToday(ctx, chatID)
	case "file":
		h.startSession(ctx, chatID, models.Session{State: models.StateAwaitFileID})
		h.reply(chatID, "Enter the event ID to fetch its file:")
	case "cancel":
		h.startSession(ctx, chatID, models.Session{State: models.StateAwaitCancelID})
		h.reply(chatID, "Enter the event ID to cancel:")
	case "purge":
		h.handlePurge(ctx, chatID)
	case "skip":
		h.handleSkip(ctx, msg)
	default:
		h.reply(chatID, "Unknown command, press /start for the command list")
	}
}

func (h *Handlers) handleDueAtInput(ctx context.Context, msg *tgbotapi.Message, session models.Session) {
	chatID := msg.Chat.ID

	dueAt, err := ParseDueAt(msg.Text)
	if err != nil {
		h.reply(chatID, "❌ Wrong format! Use DDMMYY HHMM (e.g. 150624 1430)")
		return
	}

	if !dueAt.After(h.clock.Now()) {
		h.reply(chatID, "❌ The date must be in the future!")
		return
	}

	session.State = models.StateAwaitTitle
	session.DueAt = dueAt
	h.saveSession(ctx, chatID, session)

	h.reply(chatID, "✏️ Enter the event description:")
}

func (h *Handlers) handleTitleInput(ctx context.Context, msg *tgbotapi.Message, session models.Session) {
	chatID := msg.Chat.ID

	title := strings.TrimSpace(msg.Text)
	if err := h.validator.Var(title, "required,max=4000"); err != nil {
		h.reply(chatID, "❌ The description must not be empty")
		return
	}

	session.State = models.StateAwaitFile
	session.Title = title
	h.saveSession(ctx, chatID, session)

	h.reply(chatID, "📎 Attach a file (document/photo/audio/voice) or press /skip")
}

func (h *Handlers) handleFileInput(ctx context.Context, msg *tgbotapi.Message, session models.Session) {
	chatID := msg.Chat.ID

	att := extractAttachment(msg)
	if att == nil {
		h.reply(chatID, "❌ Unsupported attachment, send a document/photo/audio/voice or press /skip")
		return
	}

	h.createEvent(ctx, chatID, session, att)
}

func (h *Handlers) handleSkip(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	session, err := h.sessions.Session(ctx, chatID)
	if err != nil || session.State != models.StateAwaitFile {
		h.reply(chatID, "Nothing to skip, press /start for the command list")
		return
	}

	h.createEvent(ctx, chatID, session, nil)
}

func (h *Handlers) createEvent(ctx context.Context, chatID int64, session models.Session, att *models.Attachment) {
	event, err := h.events.Create(ctx, chatID, session.Title, session.DueAt, att)
	if err != nil {
		switch {
		case errors.Is(err, eventservice.ErrDueNotFuture):
			h.reply(chatID, "❌ The date must be in the future! Start over with /add")
		case errors.Is(err, eventservice.ErrTitleRequired):
			h.reply(chatID, "❌ The description must not be empty. Start over with /add")
		default:
			h.log.Error("failed to create event", sl.Err(err))
			h.reply(chatID, "⚠️ Failed to save the event, try again")
			return
		}

		h.clearSession(ctx, chatID)
		return
	}

	h.clearSession(ctx, chatID)

	confirmation := fmt.Sprintf("✅ Event %d saved! You will be reminded at %s", event.ID, FormatDueAt(event.DueAt))
	if event.Attachment != nil {
		confirmation += " (with a file)"
	}
	h.reply(chatID, confirmation)
}

func (h *Handlers) handleFileIDInput(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	id, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		h.reply(chatID, "❌ Enter a numeric event ID")
		return
	}

	h.clearSession(ctx, chatID)

	event, err := h.events.Get(ctx, chatID, id)
	if err != nil {
		if errors.Is(err, eventservice.ErrEventNotFound) {
			h.reply(chatID, "❌ Event not found")
			return
		}

		h.log.Error("failed to get event", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to fetch the event, try again")
		return
	}

	if event.Attachment == nil {
		h.reply(chatID, "📭 This event has no file")
		return
	}

	caption := event.Attachment.Name
	if caption == "" {
		caption = fmt.Sprintf("File from event %d", event.ID)
	}

	if err := h.client.SendAttachment(chatID, *event.Attachment, caption); err != nil {
		h.log.Error("failed to send attachment", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to send the file")
	}
}

func (h *Handlers) handleCancelIDInput(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	id, err := strconv.ParseInt(strings.TrimSpace(msg.Text), 10, 64)
	if err != nil {
		h.reply(chatID, "❌ Enter a numeric event ID")
		return
	}

	h.clearSession(ctx, chatID)

	cancelled, err := h.events.Cancel(ctx, chatID, id)
	if err != nil {
		h.log.Error("failed to cancel event", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to cancel the event, try again")
		return
	}

	if !cancelled {
		h.reply(chatID, "❌ Nothing to cancel: no such pending event")
		return
	}

	h.reply(chatID, fmt.Sprintf("✅ Event %d cancelled", id))
}

func (h *Handlers) handlePurge(ctx context.Context, chatID int64) {
	purged, err := h.events.Purge(ctx, chatID)
	if err != nil {
		h.log.Error("failed to purge events", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to purge events, try again")
		return
	}

	h.reply(chatID, fmt.Sprintf("🧹 Removed %d resolved events", purged))
}

func (h *Handlers) sendList(ctx context.Context, chatID int64) {
	events, err := h.events.List(ctx, chatID)
	if err != nil {
		h.log.Error("failed to list events", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to list events, try again")
		return
	}

	if len(events) == 0 {
		h.reply(chatID, "📭 No saved events")
		return
	}

	text, keyboard := formatEventPage(events, 0)
	if err := h.client.SendMessageWithKeyboard(chatID, text, keyboard); err != nil {
		h.log.Error("failed to send event list", sl.Err(err))
	}
}

func (h *Handlers) sendToday(ctx context.Context, chatID int64) {
	now := h.clock.Now()

	events, err := h.events.ListDay(ctx, chatID, now)
	if err != nil {
		h.log.Error("failed to list today's events", sl.Err(err))
		h.reply(chatID, "⚠️ Failed to list events, try again")
		return
	}

	if len(events) == 0 {
		h.reply(chatID, fmt.Sprintf("📭 No events today (%s)", now.Format("02.01.2006")))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Events today (%s):\n\n", now.Format("02.01.2006"))
	for _, event := range events {
		b.WriteString(formatEvent(event))
		b.WriteString("\n")
	}

	h.reply(chatID, b.String())
}

func (h *Handlers) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	if err := h.client.AnswerCallback(cb.ID); err != nil {
		h.log.Error("failed to answer callback", sl.Err(err))
	}

	chatID := cb.Message.Chat.ID

	page, ok := strings.CutPrefix(cb.Data, "page:")
	if !ok {
		return
	}

	pageNum, err := strconv.Atoi(page)
	if err != nil {
		return
	}

	events, err := h.events.List(ctx, chatID)
	if err != nil {
		h.log.Error("failed to list events", sl.Err(err))
		return
	}

	if len(events) == 0 {
		return
	}

	text, keyboard := formatEventPage(events, pageNum)
	if err := h.client.EditMessage(chatID, cb.Message.MessageID, text, keyboard); err != nil {
		h.log.Error("failed to edit event list", sl.Err(err))
	}
}

func (h *Handlers) startSession(ctx context.Context, chatID int64, session models.Session) {
	h.saveSession(ctx, chatID, session)
}

func (h *Handlers) saveSession(ctx context.Context, chatID int64, session models.Session) {
	if err := h.sessions.SaveSession(ctx, chatID, session); err != nil {
		h.log.Error("failed to save session", sl.Err(err))
	}
}

func (h *Handlers) clearSession(ctx context.Context, chatID int64) {
	if err := h.sessions.RemoveSession(ctx, chatID); err != nil {
		h.log.Error("failed to remove session", sl.Err(err))
	}
}

func (h *Handlers) reply(chatID int64, text string) {
	if err := h.client.SendMessage(chatID, text); err != nil {
		h.log.Error("failed to send message", slog.Int64("chat_id", chatID), sl.Err(err))
	}
}

func extractAttachment(msg *tgbotapi.Message) *models.Attachment {
	switch {
	case msg.Document != nil:
		return &models.Attachment{
			FileID: msg.Document.FileID,
			Kind:   models.AttachmentDocument,
			Name:   msg.Document.FileName,
		}
	case len(msg.Photo) > 0:
		// Telegram sends several sizes, the last one is the largest.
		return &models.Attachment{
			FileID: msg.Photo[len(msg.Photo)-1].FileID,
			Kind:   models.AttachmentPhoto,
		}
	case msg.Audio != nil:
		return &models.Attachment{
			FileID: msg.Audio.FileID,
			Kind:   models.AttachmentAudio,
			Name:   msg.Audio.Title,
		}
	case msg.Voice != nil:
		return &models.Attachment{
			FileID: msg.Voice.FileID,
			Kind:   models.AttachmentVoice,
		}
	default:
		return nil
	}
}
