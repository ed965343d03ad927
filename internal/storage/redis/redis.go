package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/v0idec/event-bot/internal/domain/models"
	"github.com/v0idec/event-bot/internal/storage"
)

// Storage keeps per-chat conversation state. Sessions expire on their own so
// an abandoned /add flow does not stick around forever.
type Storage struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr string, ttl time.Duration) *Storage {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	return &Storage{client: client, ttl: ttl}
}

func (s *Storage) Session(ctx context.Context, chatID int64) (models.Session, error) {
	const op = "storage.redis.Session"

	data, err := s.client.Get(ctx, sessionKey(chatID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Session{}, fmt.Errorf("%s: %w", op, storage.ErrSessionNotFound)
		}
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return models.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	return session, nil
}

func (s *Storage) SaveSession(ctx context.Context, chatID int64, session models.Session) error {
	const op = "storage.redis.SaveSession"

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = s.client.Set(ctx, sessionKey(chatID), string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) RemoveSession(ctx context.Context, chatID int64) error {
	const op = "storage.redis.RemoveSession"

	if err := s.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Storage) Stop() error {
	const op = "storage.redis.Stop"

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("session:%d", chatID)
}
