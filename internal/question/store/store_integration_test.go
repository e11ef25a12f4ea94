//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"kbv/internal/platform/postgres"
	"kbv/internal/question/models"
	"kbv/pkg/platform/sentinel"
	"kbv/pkg/testutil/containers"
)

// store is the surface both durable backends share.
type store interface {
	Get(ctx context.Context, sessionID string) (*models.QuestionResultItem, error)
	Create(ctx context.Context, item *models.QuestionResultItem) error
	MarkAnswered(ctx context.Context, sessionID, questionKey string) error
	SaveAnswer(ctx context.Context, answer models.SavedAnswer) error
	ListAnswers(ctx context.Context, sessionID string) ([]models.SavedAnswer, error)
}

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store store
	reset func()
}

func TestRedisStoreSuite(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	suite.Run(t, &StoreSuite{
		store: NewRedisStore(rc.Client),
		reset: func() { _ = rc.FlushAll(context.Background()) },
	})
}

func TestPostgresStoreSuite(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	if err := postgres.Migrate(pc.URL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	suite.Run(t, &StoreSuite{
		store: NewPostgresStore(pc.DB),
		reset: func() { _ = pc.Truncate(context.Background(), "question_results", "saved_answers") },
	})
}

func TestPostgresStore_ReplacesExpiredResult(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	require.NoError(t, postgres.Migrate(pc.URL))
	ctx := context.Background()
	now := time.Now()
	st := NewPostgresStore(pc.DB, WithPostgresClock(func() time.Time { return now }))

	stale := newItem("s-1", "tc-amount")
	stale.ExpiresAt = now.Add(time.Minute)
	require.NoError(t, st.Create(ctx, stale))

	live := newItem("s-1", "rti-payslip-income-tax", "sa-payment-details")
	live.CorrelationID = "corr-second"
	live.ExpiresAt = now.Add(3 * time.Hour)
	assert.ErrorIs(t, st.Create(ctx, live), sentinel.ErrConflict, "a live row is never replaced")

	now = now.Add(2 * time.Minute)
	_, err := st.Get(ctx, "s-1")
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	require.NoError(t, st.Create(ctx, live))
	got, err := st.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "corr-second", got.CorrelationID)
	assert.Len(t, got.Questions, 2)
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.reset()
}

func (s *StoreSuite) TestCreateIsConditional() {
	s.Require().NoError(s.store.Create(s.ctx, newItem("s-1", "tc-amount", "sa-payment-details")))
	s.ErrorIs(s.store.Create(s.ctx, newItem("s-1", "rti-payslip-income-tax")), sentinel.ErrConflict)

	got, err := s.store.Get(s.ctx, "s-1")
	s.Require().NoError(err)
	s.Equal("corr-s-1", got.CorrelationID)
	s.Require().Len(got.Questions, 2)
	s.Equal("tc-amount", got.Questions[0].QuestionKey)
}

func (s *StoreSuite) TestEmptyRecordIsStored() {
	s.Require().NoError(s.store.Create(s.ctx, newItem("s-1")))

	got, err := s.store.Get(s.ctx, "s-1")
	s.Require().NoError(err)
	s.True(got.IsEmpty())
}

func (s *StoreSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *StoreSuite) TestMarkAnsweredKeepsOrder() {
	s.Require().NoError(s.store.Create(s.ctx, newItem("s-1", "tc-amount", "sa-payment-details", "rti-payslip-income-tax")))

	s.Require().NoError(s.store.MarkAnswered(s.ctx, "s-1", "sa-payment-details"))
	s.ErrorIs(s.store.MarkAnswered(s.ctx, "s-1", "unknown"), sentinel.ErrNotFound)
	s.ErrorIs(s.store.MarkAnswered(s.ctx, "s-2", "tc-amount"), sentinel.ErrNotFound)

	got, err := s.store.Get(s.ctx, "s-1")
	s.Require().NoError(err)
	for i, q := range got.Questions {
		s.Equal(i, q.Order)
		s.Equal(q.QuestionKey == "sa-payment-details", q.Answered)
	}
}

func (s *StoreSuite) TestConcurrentMarkAnsweredLosesNothing() {
	keys := []string{"tc-amount", "sa-payment-details", "rti-payslip-income-tax"}
	s.Require().NoError(s.store.Create(s.ctx, newItem("s-1", keys...)))

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.MarkAnswered(s.ctx, "s-1", k))
		}()
	}
	wg.Wait()

	got, err := s.store.Get(s.ctx, "s-1")
	s.Require().NoError(err)
	s.True(got.AllAnswered())
}

func (s *StoreSuite) TestSavedAnswersOverwritePerKey() {
	exp := time.Now().Add(time.Hour)
	s.Require().NoError(s.store.SaveAnswer(s.ctx, models.SavedAnswer{SessionID: "s-1", QuestionKey: "tc-amount", Value: "1", ExpiresAt: exp}))
	s.Require().NoError(s.store.SaveAnswer(s.ctx, models.SavedAnswer{SessionID: "s-1", QuestionKey: "sa-payment-details", Value: "2", ExpiresAt: exp}))
	s.Require().NoError(s.store.SaveAnswer(s.ctx, models.SavedAnswer{SessionID: "s-1", QuestionKey: "tc-amount", Value: "3", ExpiresAt: exp}))

	answers, err := s.store.ListAnswers(s.ctx, "s-1")
	s.Require().NoError(err)
	s.Require().Len(answers, 2)
	s.Equal("sa-payment-details", answers[0].QuestionKey)
	s.Equal("3", answers[1].Value)

	none, err := s.store.ListAnswers(s.ctx, "s-2")
	s.Require().NoError(err)
	s.Empty(none)
}
