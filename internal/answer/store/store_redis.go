package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kbv/internal/answer/models"
	"kbv/pkg/platform/sentinel"
)

const (
	resultKeyPrefix = "kbv:answer-result:"
	minTTL          = time.Minute
)

// RedisStore keeps answer results as JSON strings expiring with the session.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, clock: time.Now}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.AnswerResultItem, error) {
	data, err := s.client.Get(ctx, resultKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get answer result: %v", sentinel.ErrUnavailable, err)
	}
	var item models.AnswerResultItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode answer result: %w", err)
	}
	return &item, nil
}

// Create uses SETNX; the first scored result for a session is final.
func (s *RedisStore) Create(ctx context.Context, item *models.AnswerResultItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal answer result: %w", err)
	}
	ttl := item.ExpiresAt.Sub(s.clock())
	if ttl < minTTL {
		ttl = minTTL
	}
	ok, err := s.client.SetNX(ctx, resultKeyPrefix+item.SessionID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: create answer result: %v", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}
