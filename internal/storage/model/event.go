package model

import "database/sql"

// Event is the persisted row shape. Timestamps are unix seconds so that
// due-time ordering and comparisons stay deterministic across drivers.
type Event struct {
	ID          int64          `db:"id"`
	Owner       int64          `db:"owner_id"`
	Title       string         `db:"title"`
	DueAt       int64          `db:"due_at"`
	Status      string         `db:"status"`
	CreatedAt   int64          `db:"created_at"`
	DeliveredAt sql.NullInt64  `db:"delivered_at"`
	FileID      sql.NullString `db:"file_id"`
	FileKind    sql.NullString `db:"file_kind"`
	FileName    sql.NullString `db:"file_name"`
}
