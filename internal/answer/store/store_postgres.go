package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"kbv/internal/answer/models"
	"kbv/pkg/platform/sentinel"
)

// PostgresStore persists answer results. Expired rows are invisible to reads.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresStoreOption configures a PostgresStore.
type PostgresStoreOption func(*PostgresStore)

// WithPostgresClock sets the clock used to hide and replace expired rows.
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

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*models.AnswerResultItem, error) {
	var (
		item    models.AnswerResultItem
		answers []byte
		checks  sql.NullInt64
		failed  sql.NullInt64
		cis     pq.StringArray
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, correlation_id, expires_at, answers, verification_score,
			check_details_count, failed_check_details_count, contra_indicators
		FROM answer_results
		WHERE session_id = $1 AND expires_at > $2
	`, sessionID, s.clock()).Scan(
		&item.SessionID, &item.CorrelationID, &item.ExpiresAt, &answers, &item.VerificationScore,
		&checks, &failed, &cis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get answer result: %v", sentinel.ErrUnavailable, err)
	}
	if err := json.Unmarshal(answers, &item.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	item.CheckDetailsCount = nullableInt(checks)
	item.FailedCheckDetailsCount = nullableInt(failed)
	if len(cis) > 0 {
		item.ContraIndicators = []string(cis)
	}
	return &item, nil
}

// Create inserts item. A live row for the session is final; an expired row
// that has not been purged yet is replaced.
func (s *PostgresStore) Create(ctx context.Context, item *models.AnswerResultItem) error {
	answers, err := json.Marshal(item.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var cis any
	if len(item.ContraIndicators) > 0 {
		cis = pq.Array(item.ContraIndicators)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO answer_results (
			session_id, correlation_id, expires_at, answers, verification_score,
			check_details_count, failed_check_details_count, contra_indicators
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO UPDATE SET
			correlation_id = EXCLUDED.correlation_id,
			expires_at = EXCLUDED.expires_at,
			answers = EXCLUDED.answers,
			verification_score = EXCLUDED.verification_score,
			check_details_count = EXCLUDED.check_details_count,
			failed_check_details_count = EXCLUDED.failed_check_details_count,
			contra_indicators = EXCLUDED.contra_indicators
		WHERE answer_results.expires_at <= $9
	`, item.SessionID, item.CorrelationID, item.ExpiresAt, answers, item.VerificationScore,
		item.CheckDetailsCount, item.FailedCheckDetailsCount, cis, s.clock())
	if err != nil {
		return fmt.Errorf("%w: create answer result: %v", sentinel.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create answer result: %w", err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
