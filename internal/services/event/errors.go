package event

import "errors"

var (
	ErrTitleRequired = errors.New("title is required")
	ErrDueNotFuture  = errors.New("due time must be in the future")
	ErrEventNotFound = errors.New("event not found")
)
