package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingMarker = "pending"

// Store records keys in Redis with a TTL. It serves two callers: Kafka
// consumers deduplicating redelivered offsets, and the HTTP middleware
// replaying responses for repeated Idempotency-Key requests.
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// Processed reports whether MarkProcessed has recorded key.
func (s *Store) Processed(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records key once its message has been handled.
func (s *Store) MarkProcessed(ctx context.Context, key string) error {
	return s.rdb.Set(ctx, key, "1", s.ttl).Err()
}

// Begin claims key for a request in flight. When the key exists it returns
// the stored response, or ErrInFlight while the first request is running.
func (s *Store) Begin(ctx context.Context, key string) ([]byte, error) {
	ok, err := s.rdb.SetNX(ctx, key, pendingMarker, s.ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	val, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SetNX and Get; treat as in flight so the client retries.
		return nil, ErrInFlight
	}
	if err != nil {
		return nil, err
	}
	if string(val) == pendingMarker {
		return nil, ErrInFlight
	}
	return val, nil
}

func (s *Store) Complete(ctx context.Context, key string, response []byte) error {
	return s.rdb.Set(ctx, key, response, s.ttl).Err()
}

// Release drops the claim so a failed request can be retried with the same key.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
