package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/v0idec/event-bot/internal/domain/converter"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/storage"
	storageModel "github.com/v0idec/event-bot/internal/storage/model"
)

const eventColumns = "id,owner_id,title,due_at,status,created_at,delivered_at,file_id,file_kind,file_name"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	owner_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	due_at INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at INTEGER NOT NULL,
	delivered_at INTEGER,
	file_id TEXT,
	file_kind TEXT,
	file_name TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_status_due ON events(status, due_at);
CREATE INDEX IF NOT EXISTS idx_events_owner_due ON events(owner_id, due_at);
`

type Storage struct {
	db    *sql.DB
	clock clock.Clock
}

// New opens the database at storagePath and makes sure the schema exists.
// WAL mode keeps the scheduler's polling from blocking foreground writes.
// created_at and delivered_at are stamped from clk.
func New(storagePath string, clk clock.Clock) (*Storage, error) {
	const op = "storage.sqlite.New"

	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db, clock: clk}, nil
}

func (s *Storage) SaveEvent(ctx context.Context, draft models.EventDraft) (models.Event, error) {
	const op = "storage.sqlite.SaveEvent"

	stmt, err := s.db.Prepare(`INSERT INTO events(owner_id,title,due_at,status,created_at,file_id,file_kind,file_name)
		VALUES(?,?,?,'pending',?,?,?,?) RETURNING ` + eventColumns)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	fileID, fileKind, fileName := attachmentColumns(draft.Attachment)

	row := stmt.QueryRowContext(ctx,
		draft.Owner,
		draft.Title,
		draft.DueAt.Unix(),
		s.clock.Now().Unix(),
		fileID,
		fileKind,
		fileName,
	)

	stored, err := scanEvent(row)
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventFromStorage(stored), nil
}

func (s *Storage) Event(ctx context.Context, id, owner int64) (models.Event, error) {
	const op = "storage.sqlite.Event"

	stmt, err := s.db.Prepare("SELECT " + eventColumns + " FROM events WHERE id=? AND owner_id=?")
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}
	defer stmt.Close()

	stored, err := scanEvent(stmt.QueryRowContext(ctx, id, owner))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Event{}, fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
		}
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventFromStorage(stored), nil
}

func (s *Storage) EventsByOwner(ctx context.Context, owner int64) ([]models.Event, error) {
	const op = "storage.sqlite.EventsByOwner"

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE owner_id=? ORDER BY due_at,id", owner)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventsFromStorage(events), nil
}

func (s *Storage) EventsByOwnerBetween(ctx context.Context, owner int64, from, to time.Time) ([]models.Event, error) {
	const op = "storage.sqlite.EventsByOwnerBetween"

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE owner_id=? AND due_at>=? AND due_at<? ORDER BY due_at,id",
		owner, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventsFromStorage(events), nil
}

// DueEvents returns pending events with due_at <= asOf, earliest due first,
// insertion order breaking ties.
func (s *Storage) DueEvents(ctx context.Context, asOf time.Time, limit int) ([]models.Event, error) {
	const op = "storage.sqlite.DueEvents"

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE status='pending' AND due_at<=? ORDER BY due_at,id LIMIT ?",
		asOf.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventsFromStorage(events), nil
}

// MarkDelivered transitions pending -> delivered. The conditional UPDATE is a
// single atomic statement; a false return means another transition won first.
func (s *Storage) MarkDelivered(ctx context.Context, id int64) (bool, error) {
	const op = "storage.sqlite.MarkDelivered"

	res, err := s.db.ExecContext(ctx,
		"UPDATE events SET status='delivered', delivered_at=? WHERE id=? AND status='pending'",
		s.clock.Now().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return affected > 0, nil
}

// MarkCancelled transitions pending -> cancelled, only for the owning chat.
func (s *Storage) MarkCancelled(ctx context.Context, id, owner int64) (bool, error) {
	const op = "storage.sqlite.MarkCancelled"

	res, err := s.db.ExecContext(ctx,
		"UPDATE events SET status='cancelled' WHERE id=? AND owner_id=? AND status='pending'",
		id, owner)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return affected > 0, nil
}

// PurgeResolved deletes an owner's delivered and cancelled rows. Pending rows
// are never touched.
func (s *Storage) PurgeResolved(ctx context.Context, owner int64) (int64, error) {
	const op = "storage.sqlite.PurgeResolved"

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE owner_id=? AND status!='pending'", owner)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return purged, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func attachmentColumns(att *models.Attachment) (fileID, fileKind, fileName sql.NullString) {
	if att == nil {
		return fileID, fileKind, fileName
	}

	fileID = sql.NullString{String: att.FileID, Valid: true}
	fileKind = sql.NullString{String: string(att.Kind), Valid: true}
	if att.Name != "" {
		fileName = sql.NullString{String: att.Name, Valid: true}
	}

	return fileID, fileKind, fileName
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (storageModel.Event, error) {
	var event storageModel.Event
	err := row.Scan(
		&event.ID,
		&event.Owner,
		&event.Title,
		&event.DueAt,
		&event.Status,
		&event.CreatedAt,
		&event.DeliveredAt,
		&event.FileID,
		&event.FileKind,
		&event.FileName,
	)
	return event, err
}

func scanEvents(rows *sql.Rows) ([]storageModel.Event, error) {
	var events []storageModel.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
