package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kbv/internal/question/models"
	"kbv/pkg/platform/sentinel"
)

// PostgresStore persists question results and saved answers. Expired rows
// are invisible to reads.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresClock sets the clock used to hide expired rows.
func WithPostgresClock(clock func() time.Time) PostgresStoreOption {
	return func(s *PostgresStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewPostgresStore(db *sql.DB, opts ...PostgresStoreOption) *PostgresStore {
	s := &PostgresStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.QuestionResultItem, error) {
	var (
		item      models.QuestionResultItem
		questions []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, correlation_id, expires_at, questions
		FROM question_results
		WHERE session_id = $1 AND expires_at > $2
	`, sessionID, s.clock()).Scan(&item.SessionID, &item.CorrelationID, &item.ExpiresAt, &questions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get question result: %v", sentinel.ErrUnavailable, err)
	}
	if err := json.Unmarshal(questions, &item.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &item, nil
}

// Create inserts item. A live row for the session is left untouched; an
// expired row that has not been purged yet is replaced.
func (s *PostgresStore) Create(ctx context.Context, item *models.QuestionResultItem) error {
	questions, err := json.Marshal(item.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO question_results (session_id, correlation_id, expires_at, questions)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			correlation_id = EXCLUDED.correlation_id,
			expires_at = EXCLUDED.expires_at,
			questions = EXCLUDED.questions
		WHERE question_results.expires_at <= $5
	`, item.SessionID, item.CorrelationID, item.ExpiresAt, questions, s.clock())
	if err != nil {
		return fmt.Errorf("%w: create question result: %v", sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create question result: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

// MarkAnswered rewrites only the answered flag of the matching array element.
func (s *PostgresStore) MarkAnswered(ctx context.Context, sessionID, questionKey string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE question_results
		SET questions = (
			SELECT jsonb_agg(
				CASE WHEN q->>'questionKey' = $2
					THEN jsonb_set(q, '{answered}', 'true'::jsonb)
					ELSE q
				END ORDER BY pos)
			FROM jsonb_array_elements(questions) WITH ORDINALITY AS t(q, pos)
		)
		WHERE session_id = $1
			AND expires_at > $3
			AND questions @> jsonb_build_array(jsonb_build_object('questionKey', $2::text))
	`, sessionID, questionKey, s.clock())
	if err != nil {
		return fmt.Errorf("%w: mark answered: %v", sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark answered: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, answer models.SavedAnswer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO saved_answers (session_id, question_key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, question_key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at
	`, answer.SessionID, answer.QuestionKey, answer.Value, answer.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%w: save answer: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) ListAnswers(ctx context.Context, sessionID string) ([]models.SavedAnswer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, question_key, value, expires_at
		FROM saved_answers
		WHERE session_id = $1 AND expires_at > $2
		ORDER BY question_key
	`, sessionID, s.clock())
	if err != nil {
		return nil, fmt.Errorf("%w: list answers: %v", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.SavedAnswer
	for rows.Next() {
		var a models.SavedAnswer
		if err := rows.Scan(&a.SessionID, &a.QuestionKey, &a.Value, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan saved answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return out, nil
}
