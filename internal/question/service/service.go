// Package service retrieves questions at most once per session and tracks
// which of them the subject has answered.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"kbv/internal/audit"
	"kbv/internal/question"
	"kbv/internal/question/metrics"
	"kbv/internal/question/models"
	sessionmodels "kbv/internal/session/models"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/sentinel"
	"kbv/pkg/requestcontext"
)

// ResultStore persists one QuestionResultItem per session. Create must not
// replace a live record and reports sentinel.ErrConflict instead.
type ResultStore interface {
	Get(ctx context.Context, sessionID string) (*models.QuestionResultItem, error)
	Create(ctx context.Context, item *models.QuestionResultItem) error
	MarkAnswered(ctx context.Context, sessionID, questionKey string) error
}

// AnswerStore holds answers until the set is complete.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, answer models.SavedAnswer) error
	ListAnswers(ctx context.Context, sessionID string) ([]models.SavedAnswer, error)
}

// SessionReader reads the session and claimed identity.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*sessionmodels.Session, error)
	GetPersonIdentity(ctx context.Context, sessionID string) (*sessionmodels.PersonIdentity, error)
}

// QuestionSource is the third-party question lookup.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, bearer, nino string) (*models.QuestionSet, error)
}

// AuditEmitter records verification checkpoints.
type AuditEmitter interface {
	Emit(ctx context.Context, name audit.EventName, sess *sessionmodels.Session, opts ...audit.EventOption) error
}

// Service implements question retrieval, next-question lookup and answer saving.
type Service struct {
	results   ResultStore
	answers   AnswerStore
	sessions  SessionReader
	source    QuestionSource
	filter    *question.FilterEngine
	auditor   AuditEmitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	recordTTL time.Duration
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRecordTTL sets the lifetime of records for sessions without an expiry.
func WithRecordTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.recordTTL = ttl
	}
}

func New(
	results ResultStore,
	answers AnswerStore,
	sessions SessionReader,
	source QuestionSource,
	filter *question.FilterEngine,
	auditor AuditEmitter,
	opts ...Option,
) *Service {
	s := &Service{
		results:   results,
		answers:   answers,
		sessions:  sessions,
		source:    source,
		filter:    filter,
		auditor:   auditor,
		logger:    slog.Default(),
		recordTTL: 2 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RetrieveRequest names the session and carries the question source credential.
type RetrieveRequest struct {
	SessionID string
	Bearer    string
}

// Retrieve calls the question source at most once per session. A persisted
// record, even an empty one, is authoritative for every later call.
func (s *Service) Retrieve(ctx context.Context, req RetrieveRequest) (models.Outcome, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	if strings.TrimSpace(req.Bearer) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "bearer credential is required")
	}

	sess, identity, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(identity.NINO) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "national insurance number is required")
	}

	existing, err := s.results.Get(ctx, req.SessionID)
	switch {
	case err == nil:
		s.metrics.IncCacheHit()
		return s.outcome(existing, models.OutcomeAlreadyRetrieved), nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to read question result")
	}
	s.metrics.IncCacheMiss()

	s.emit(ctx, audit.EventStart, sess)
	s.emit(ctx, audit.EventRequestSent, sess, audit.WithNINO(identity.NINO))

	set, err := s.source.FetchQuestions(ctx, req.Bearer, identity.NINO)
	if err != nil {
		s.logger.WarnContext(ctx, "question source call failed",
			"session_id", req.SessionID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", err
	}

	selection := s.filter.Filter(set.Questions)
	now := requestcontext.Now(ctx)
	item := models.NewQuestionResultItem(req.SessionID, set.CorrelationID, sess.ExpiryOr(now, s.recordTTL), selection.Questions)

	if err := s.results.Create(ctx, item); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to save question result")
		}
		// a concurrent retrieval won; its record is the authoritative one
		winner, getErr := s.results.Get(ctx, req.SessionID)
		if getErr != nil {
			return "", dErrors.Wrap(getErr, dErrors.CodeInternal, "failed to read question result")
		}
		return s.outcome(winner, models.OutcomeAlreadyRetrieved), nil
	}

	s.logger.InfoContext(ctx, "questions retrieved",
		"session_id", req.SessionID,
		"correlation_id", set.CorrelationID,
		"candidates", len(set.Questions),
		"selected", len(selection.Questions),
		"coverage", selection.Coverage,
	)

	if selection.Insufficient() {
		s.emit(ctx, audit.EventThinFileEncountered, sess)
	}
	return s.outcome(item, models.OutcomeSufficient), nil
}

// outcome returns InsufficientQuestions for an empty record and nonEmpty otherwise.
func (s *Service) outcome(item *models.QuestionResultItem, nonEmpty models.Outcome) models.Outcome {
	out := nonEmpty
	if item.IsEmpty() {
		out = models.OutcomeInsufficient
	}
	s.metrics.IncOutcome(string(out))
	return out
}

// NextQuestion returns the unanswered question with the lowest order, or nil
// when every question is answered or none were selected.
func (s *Service) NextQuestion(ctx context.Context, sessionID string) (*models.Question, error) {
	item, err := s.getItem(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, ok := item.NextUnanswered()
	if !ok {
		return nil, nil
	}
	return &models.Question{QuestionKey: next.QuestionKey, Info: next.Info}, nil
}

// SaveAnswerRequest is one submitted answer.
type SaveAnswerRequest struct {
	SessionID   string
	QuestionKey string
	Value       string
}

// SaveAnswer stores value against the next unanswered question. An answer for
// any other question is a state conflict and changes nothing.
func (s *Service) SaveAnswer(ctx context.Context, req SaveAnswerRequest) error {
	if strings.TrimSpace(req.QuestionKey) == "" {
		return dErrors.New(dErrors.CodeValidation, "question key is required")
	}
	if strings.TrimSpace(req.Value) == "" {
		return dErrors.New(dErrors.CodeValidation, "answer value is required")
	}
	item, err := s.getItem(ctx, req.SessionID)
	if err != nil {
		return err
	}

	next, ok := item.NextUnanswered()
	if !ok || next.QuestionKey != req.QuestionKey {
		s.metrics.IncAnswerConflict()
		s.logger.InfoContext(ctx, "answer does not match next question",
			"session_id", req.SessionID,
			"question_key", req.QuestionKey,
		)
		return dErrors.New(dErrors.CodeStateConflict, "answer is not for the next unanswered question")
	}

	err = s.answers.SaveAnswer(ctx, models.SavedAnswer{
		SessionID:   req.SessionID,
		QuestionKey: req.QuestionKey,
		Value:       req.Value,
		ExpiresAt:   item.ExpiresAt,
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save answer")
	}
	if err := s.results.MarkAnswered(ctx, req.SessionID, req.QuestionKey); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark question answered")
	}
	s.metrics.IncAnswerSaved()
	return nil
}

func (s *Service) getItem(ctx context.Context, sessionID string) (*models.QuestionResultItem, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	item, err := s.results.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeValidation, "questions not retrieved for session")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read question result")
	}
	return item, nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*sessionmodels.Session, *sessionmodels.PersonIdentity, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "session not found")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read session")
	}
	identity, err := s.sessions.GetPersonIdentity(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "person identity not found")
	}
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read person identity")
	}
	return sess, identity, nil
}

// emit never fails the step; the emitter already logged the cause.
func (s *Service) emit(ctx context.Context, name audit.EventName, sess *sessionmodels.Session, opts ...audit.EventOption) {
	_ = s.auditor.Emit(ctx, name, sess, opts...)
}
