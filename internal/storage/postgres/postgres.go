package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/v0idec/event-bot/internal/domain/converter"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/lib/clock"
	"github.com/v0idec/event-bot/internal/storage"
	storageModel "github.com/v0idec/event-bot/internal/storage/model"
)

const eventColumns = "id,owner_id,title,due_at,status,created_at,delivered_at,file_id,file_kind,file_name"

type Storage struct {
	dbpool *pgxpool.Pool
	clock  clock.Clock
}

func New(ctx context.Context, dbAddr string, clk clock.Clock) (*Storage, error) {
	const op = "storage.postgres.New"

	dbpool, err := pgxpool.New(ctx, dbAddr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{dbpool: dbpool, clock: clk}, nil
}

func (s *Storage) SaveEvent(ctx context.Context, draft models.EventDraft) (models.Event, error) {
	const op = "storage.postgres.SaveEvent"

	query := `INSERT INTO events(owner_id,title,due_at,status,created_at,file_id,file_kind,file_name)
		VALUES(@owner,@title,@dueAt,'pending',@createdAt,@fileID,@fileKind,@fileName)
		RETURNING ` + eventColumns

	var fileID, fileKind, fileName *string
	if draft.Attachment != nil {
		fileID = &draft.Attachment.FileID
		kind := string(draft.Attachment.Kind)
		fileKind = &kind
		if draft.Attachment.Name != "" {
			fileName = &draft.Attachment.Name
		}
	}

	args := pgx.NamedArgs{
		"owner":     draft.Owner,
		"title":     draft.Title,
		"dueAt":     draft.DueAt.Unix(),
		"createdAt": s.clock.Now().Unix(),
		"fileID":    fileID,
		"fileKind":  fileKind,
		"fileName":  fileName,
	}

	stored, err := scanEvent(s.dbpool.QueryRow(ctx, query, args))
	if err != nil {
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventFromStorage(stored), nil
}

func (s *Storage) Event(ctx context.Context, id, owner int64) (models.Event, error) {
	const op = "storage.postgres.Event"

	query := "SELECT " + eventColumns + " FROM events WHERE id=$1 AND owner_id=$2"

	stored, err := scanEvent(s.dbpool.QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Event{}, fmt.Errorf("%s: %w", op, storage.ErrEventNotFound)
		}
		return models.Event{}, fmt.Errorf("%s: %w", op, err)
	}

	return converter.ToEventFromStorage(stored), nil
}

func (s *Storage) EventsByOwner(ctx context.Context, owner int64) ([]models.Event, error) {
	const op = "storage.postgres.EventsByOwner"

	query := "SELECT " + eventColumns + " FROM events WHERE owner_id=$1 ORDER BY due_at,id"

	rows, err := s.dbpool.Query(ctx, query, owner)
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
	const op = "storage.postgres.EventsByOwnerBetween"

	query := "SELECT " + eventColumns + " FROM events WHERE owner_id=$1 AND due_at>=$2 AND due_at<$3 ORDER BY due_at,id"

	rows, err := s.dbpool.Query(ctx, query, owner, from.Unix(), to.Unix())
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

func (s *Storage) DueEvents(ctx context.Context, asOf time.Time, limit int) ([]models.Event, error) {
	const op = "storage.postgres.DueEvents"

	query := "SELECT " + eventColumns + " FROM events WHERE status='pending' AND due_at<=$1 ORDER BY due_at,id LIMIT $2"

	rows, err := s.dbpool.Query(ctx, query, asOf.Unix(), limit)
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

func (s *Storage) MarkDelivered(ctx context.Context, id int64) (bool, error) {
	const op = "storage.postgres.MarkDelivered"

	tag, err := s.dbpool.Exec(ctx,
		"UPDATE events SET status='delivered', delivered_at=$1 WHERE id=$2 AND status='pending'",
		s.clock.Now().Unix(), id)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *Storage) MarkCancelled(ctx context.Context, id, owner int64) (bool, error) {
	const op = "storage.postgres.MarkCancelled"

	tag, err := s.dbpool.Exec(ctx,
		"UPDATE events SET status='cancelled' WHERE id=$1 AND owner_id=$2 AND status='pending'",
		id, owner)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *Storage) PurgeResolved(ctx context.Context, owner int64) (int64, error) {
	const op = "storage.postgres.PurgeResolved"

	tag, err := s.dbpool.Exec(ctx,
		"DELETE FROM events WHERE owner_id=$1 AND status!='pending'", owner)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (s *Storage) ClosePool() {
	s.dbpool.Close()
}

func scanEvent(row pgx.Row) (storageModel.Event, error) {
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

func scanEvents(rows pgx.Rows) ([]storageModel.Event, error) {
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
