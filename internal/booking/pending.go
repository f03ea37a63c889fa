package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingIntent remembers the therapist a user asked for while a time is
// still missing.
type PendingIntent struct {
	UserID      string    `json:"userId"`
	TherapistID string    `json:"therapistId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// PendingStore holds short-lived pending intents.
type PendingStore interface {
	Put(ctx context.Context, intent PendingIntent) error
	Get(ctx context.Context, userID string) (*PendingIntent, error)
	Clear(ctx context.Context, userID string) error
}

// RedisPendingStore keeps pending intents in Redis with a TTL.
type RedisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPendingStore(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	if client == nil {
		panic("booking: redis client required")
	}
	return &RedisPendingStore{client: client, ttl: ttl}
}

func (s *RedisPendingStore) Put(ctx context.Context, intent PendingIntent) error {
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("booking: encode pending intent: %w", err)
	}
	if err := s.client.Set(ctx, pendingKey(intent.UserID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: store pending intent: %w", err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, userID string) (*PendingIntent, error) {
	raw, err := s.client.Get(ctx, pendingKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load pending intent: %w", err)
	}
	var intent PendingIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("booking: decode pending intent: %w", err)
	}
	return &intent, nil
}

func (s *RedisPendingStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, pendingKey(userID)).Err(); err != nil {
		return fmt.Errorf("booking: clear pending intent: %w", err)
	}
	return nil
}

func pendingKey(userID string) string {
	return "booking:pending:" + userID
}
