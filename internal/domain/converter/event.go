package converter

import (
	"time"

	"github.com/v0idec/event-bot/internal/domain/models"
	storageModel "github.com/v0idec/event-bot/internal/storage/model"
)

func ToEventFromStorage(storageEvent storageModel.Event) models.Event {
	event := models.Event{
		ID:        storageEvent.ID,
		Owner:     storageEvent.Owner,
		Title:     storageEvent.Title,
		DueAt:     time.Unix(storageEvent.DueAt, 0),
		Status:    models.Status(storageEvent.Status),
		CreatedAt: time.Unix(storageEvent.CreatedAt, 0),
	}

	if storageEvent.DeliveredAt.Valid {
		event.DeliveredAt = time.Unix(storageEvent.DeliveredAt.Int64, 0)
	}

	if storageEvent.FileID.Valid {
		event.Attachment = &models.Attachment{
			FileID: storageEvent.FileID.String,
			Kind:   models.AttachmentKind(storageEvent.FileKind.String),
			Name:   storageEvent.FileName.String,
		}
	}

	return event
}

func ToEventsFromStorage(storageEvents []storageModel.Event) []models.Event {
	events := make([]models.Event, len(storageEvents))
	for i, event := range storageEvents {
		events[i] = ToEventFromStorage(event)
	}

	return events
}
