package models

import "time"

type SessionState string

const (
	StateAwaitDueAt    SessionState = "await_due_at"
	StateAwaitTitle    SessionState = "await_title"
	StateAwaitFile     SessionState = "await_file"
	StateAwaitFileID   SessionState = "await_file_id"
	StateAwaitCancelID SessionState = "await_cancel_id"
)

// Session is the per-chat conversation state of the command layer.
type Session struct {
	State SessionState `json:"state"`
	DueAt time.Time    `json:"due_at,omitempty"`
	Title string       `json:"title,omitempty"`
}
