package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/v0idec/event-bot/internal/storage"
	"github.com/v0idec/event-bot/internal/storage/redis"
)

func TestSession_TransportErrorIsNotNotFound(t *testing.T) {
	// Nothing listens on this address; the read must surface the transport
	// error instead of reporting a missing session.
	s := redis.New("127.0.0.1:1", time.Minute)
	t.Cleanup(func() { _ = s.Stop() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Session(ctx, 42)
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrSessionNotFound)
}
