package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/v0idec/event-bot/internal/domain/models"
)

// Client wraps the Bot API. Every outgoing call is bounded by the HTTP
// client timeout set at construction.
type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(token string, timeout time.Duration) (*Client, error) {
	const op = "telegram.NewClient"

	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Client{bot: bot}, nil
}

// Username returns the bot's own account name, as reported by getMe.
func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Send implements the scheduler's Notifier contract: (false, nil) when the
// recipient rejected the message (blocked the bot, deleted the chat),
// (false, err) when the send could not be attempted.
func (c *Client) Send(ctx context.Context, chatID int64, message string) (bool, error) {
	const op = "telegram.Send"

	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func (c *Client) SendMessage(chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (c *Client) SendMessageWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := c.bot.Send(msg)
	return err
}

func (c *Client) EditMessage(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	_, err := c.bot.Send(edit)
	return err
}

// SendAttachment re-sends a stored file by its Telegram file id.
func (c *Client) SendAttachment(chatID int64, att models.Attachment, caption string) error {
	const op = "telegram.SendAttachment"

	file := tgbotapi.FileID(att.FileID)

	var msg tgbotapi.Chattable
	switch att.Kind {
	case models.AttachmentDocument:
		doc := tgbotapi.NewDocument(chatID, file)
		doc.Caption = caption
		msg = doc
	case models.AttachmentPhoto:
		photo := tgbotapi.NewPhoto(chatID, file)
		photo.Caption = caption
		msg = photo
	case models.AttachmentAudio:
		audio := tgbotapi.NewAudio(chatID, file)
		audio.Caption = caption
		msg = audio
	case models.AttachmentVoice:
		voice := tgbotapi.NewVoice(chatID, file)
		voice.Caption = caption
		msg = voice
	default:
		return fmt.Errorf("%s: unknown attachment kind %q", op, att.Kind)
	}

	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) AnswerCallback(callbackID string) error {
	_, err := c.bot.Request(tgbotapi.NewCallback(callbackID, ""))
	return err
}

func (c *Client) UpdatesChan() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopReceivingUpdates() {
	c.bot.StopReceivingUpdates()
}
