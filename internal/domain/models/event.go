package models

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type AttachmentKind string

const (
	AttachmentDocument AttachmentKind = "document"
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentAudio    AttachmentKind = "audio"
	AttachmentVoice    AttachmentKind = "voice"
)

// Attachment is a Telegram file reference stored together with an event.
type Attachment struct {
	FileID string
	Kind   AttachmentKind
	Name   string
}

// Event is a user-requested reminder. Status moves one way only:
// pending -> delivered or pending -> cancelled.
type Event struct {
	ID          int64
	Owner       int64
	Title       string
	DueAt       time.Time
	Status      Status
	CreatedAt   time.Time
	DeliveredAt time.Time // zero unless Status == StatusDelivered
	Attachment  *Attachment
}

// EventDraft carries the caller-supplied fields of an event before the
// storage assigns id and created_at.
type EventDraft struct {
	Owner      int64
	Title      string
	DueAt      time.Time
	Attachment *Attachment
}
