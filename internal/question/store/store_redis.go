package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"kbv/internal/question/models"
	"kbv/pkg/platform/sentinel"
)

const (
	resultKeyPrefix = "kbv:question-result:"
	answerKeyPrefix = "kbv:saved-answers:"

	// minTTL keeps a record written against an already expired session
	// long enough for the current step to read it back.
	minTTL = time.Minute

	markAnsweredAttempts = 3
)

// RedisStore keeps question results as JSON strings and saved answers as a
// per-session hash. Both expire with the session.
type RedisStore struct {
	client *redis.Client
	clock  func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithClock sets the clock used to derive TTLs.
func WithClock(clock func() time.Time) RedisStoreOption {
	return func(s *RedisStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewRedisStore(client *redis.Client, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{client: client, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*models.QuestionResultItem, error) {
	data, err := s.client.Get(ctx, resultKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get question result: %v", sentinel.ErrUnavailable, err)
	}
	var item models.QuestionResultItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("decode question result: %w", err)
	}
	return &item, nil
}

// Create uses SETNX so a second write for the session never replaces the first.
func (s *RedisStore) Create(ctx context.Context, item *models.QuestionResultItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshal question result: %w", err)
	}
	ok, err := s.client.SetNX(ctx, resultKeyPrefix+item.SessionID, data, s.ttl(item.ExpiresAt)).Result()
	if err != nil {
		return fmt.Errorf("%w: create question result: %v", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

// MarkAnswered flips one flag under WATCH so concurrent writers cannot lose
// each other's updates. The key keeps its TTL.
func (s *RedisStore) MarkAnswered(ctx context.Context, sessionID, questionKey string) error {
	key := resultKeyPrefix + sessionID
	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var item models.QuestionResultItem
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("decode question result: %w", err)
		}
		if !item.MarkAnswered(questionKey) {
			return sentinel.ErrNotFound
		}
		updated, err := json.Marshal(&item)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}

	var err error
	for range markAnsweredAttempts {
		err = s.client.Watch(ctx, update, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil, errors.Is(err, sentinel.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: mark answered: %v", sentinel.ErrUnavailable, err)
	}
}

func (s *RedisStore) SaveAnswer(ctx context.Context, answer models.SavedAnswer) error {
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("marshal saved answer: %w", err)
	}
	key := answerKeyPrefix + answer.SessionID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, answer.QuestionKey, data)
	pipe.Expire(ctx, key, s.ttl(answer.ExpiresAt))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: save answer: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) ListAnswers(ctx context.Context, sessionID string) ([]models.SavedAnswer, error) {
	fields, err := s.client.HGetAll(ctx, answerKeyPrefix+sessionID).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list answers: %v", sentinel.ErrUnavailable, err)
	}
	out := make([]models.SavedAnswer, 0, len(fields))
	for _, raw := range fields {
		var a models.SavedAnswer
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode saved answer: %w", err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionKey < out[j].QuestionKey })
	return out, nil
}

func (s *RedisStore) ttl(expiresAt time.Time) time.Duration {
	ttl := expiresAt.Sub(s.clock())
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
