package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	answerservice "kbv/internal/answer/service"
	answerstore "kbv/internal/answer/store"
	"kbv/internal/platform/config"
	"kbv/internal/platform/postgres"
	"kbv/internal/platform/redis"
	questionservice "kbv/internal/question/service"
	questionstore "kbv/internal/question/store"
	sessionstore "kbv/internal/session/store"
)

// questionStore is what both the question and answer services need from the
// question record store.
type questionStore interface {
	questionservice.ResultStore
	questionservice.AnswerStore
}

type stores struct {
	questions questionStore
	answers   answerservice.ResultStore
	sessions  questionservice.SessionReader
	db        *sql.DB
	redis     *redis.Client
}

// buildStores opens the configured backend. Sessions are read from Redis when
// it is configured, whatever backend holds derived records.
func buildStores(ctx context.Context, cfg config.Config, log *slog.Logger) (*stores, error) {
	s := &stores{}

	rc, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s.redis = rc
	if rc != nil {
		s.sessions = sessionstore.NewRedisStore(rc.Client)
		log.Info("session store", "backend", "redis")
	} else {
		s.sessions = sessionstore.NewInMemoryStore()
		log.Warn("session store", "backend", "memory")
	}

	switch cfg.Store {
	case config.StoreRedis:
		if rc == nil {
			return nil, fmt.Errorf("store backend redis requires REDIS_URL")
		}
		s.questions = questionstore.NewRedisStore(rc.Client)
		s.answers = answerstore.NewRedisStore(rc.Client)
	case config.StorePostgres:
		if err := postgres.Migrate(cfg.Postgres.URL); err != nil {
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.db = db
		s.questions = questionstore.NewPostgresStore(db)
		s.answers = answerstore.NewPostgresStore(db)
	default:
		s.questions = questionstore.NewInMemoryStore()
		s.answers = answerstore.NewInMemoryStore()
	}
	log.Info("record store", "backend", string(cfg.Store))
	return s, nil
}

// health pings every open backend.
func (s *stores) health(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Health(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

func (s *stores) close() {
	if s.redis != nil {
		_ = s.redis.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
