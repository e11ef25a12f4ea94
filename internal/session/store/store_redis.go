package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"kbv/internal/session/models"
	"kbv/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix  = "kbv:session:"
	identityKeyPrefix = "kbv:person-identity:"
)

// RedisStore reads sessions and identities written by the upstream
// collaborator as JSON documents.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var sess models.Session
	if err := s.getJSON(ctx, sessionKeyPrefix+sessionID, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) GetPersonIdentity(ctx context.Context, sessionID string) (*models.PersonIdentity, error) {
	var identity models.PersonIdentity
	if err := s.getJSON(ctx, identityKeyPrefix+sessionID, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// Put writes a session and identity. The upstream collaborator owns these
// records; Put exists for seeding and integration tests.
func (s *RedisStore) Put(ctx context.Context, session *models.Session, identity *models.PersonIdentity) error {
	pipe := s.client.TxPipeline()
	sessData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	pipe.Set(ctx, sessionKeyPrefix+session.SessionID, sessData, 0)
	if !session.ExpiresAt.IsZero() {
		pipe.ExpireAt(ctx, sessionKeyPrefix+session.SessionID, session.ExpiresAt)
	}
	if identity != nil {
		idData, err := json.Marshal(identity)
		if err != nil {
			return fmt.Errorf("marshal person identity: %w", err)
		}
		pipe.Set(ctx, identityKeyPrefix+session.SessionID, idData, 0)
		if !session.ExpiresAt.IsZero() {
			pipe.ExpireAt(ctx, identityKeyPrefix+session.SessionID, session.ExpiresAt)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *RedisStore) getJSON(ctx context.Context, key string, dst any) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
