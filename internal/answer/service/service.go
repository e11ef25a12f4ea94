// Package service submits a session's complete answer set to the verifier and
// records the scored outcome exactly once.
package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"kbv/internal/answer/metrics"
	"kbv/internal/answer/models"
	"kbv/internal/audit"
	questionmodels "kbv/internal/question/models"
	sessionmodels "kbv/internal/session/models"
	dErrors "kbv/pkg/domain-errors"
	platformaudit "kbv/pkg/platform/audit"
	"kbv/pkg/platform/sentinel"
	"kbv/pkg/requestcontext"
)

// ResultStore persists one AnswerResultItem per session. Create must not
// replace an existing record and reports sentinel.ErrConflict instead.
type ResultStore interface {
	Get(ctx context.Context, sessionID string) (*models.AnswerResultItem, error)
	Create(ctx context.Context, item *models.AnswerResultItem) error
}

// QuestionReader reads the retrieved questions for a session.
type QuestionReader interface {
	Get(ctx context.Context, sessionID string) (*questionmodels.QuestionResultItem, error)
}

// SavedAnswerReader lists the answers saved so far.
type SavedAnswerReader interface {
	ListAnswers(ctx context.Context, sessionID string) ([]questionmodels.SavedAnswer, error)
}

// SessionReader reads the session and claimed identity.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*sessionmodels.Session, error)
	GetPersonIdentity(ctx context.Context, sessionID string) (*sessionmodels.PersonIdentity, error)
}

// AnswerVerifier is the third-party scoring endpoint.
type AnswerVerifier interface {
	VerifyAnswers(ctx context.Context, bearer string, req models.VerifyRequest) ([]models.AnswerResult, error)
}

// AuditEmitter records verification checkpoints.
type AuditEmitter interface {
	Emit(ctx context.Context, name audit.EventName, sess *sessionmodels.Session, opts ...audit.EventOption) error
}

// Service scores complete answer sets.
type Service struct {
	results   ResultStore
	questions QuestionReader
	answers   SavedAnswerReader
	sessions  SessionReader
	verifier  AnswerVerifier
	auditor   AuditEmitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
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

func New(
	results ResultStore,
	questions QuestionReader,
	answers SavedAnswerReader,
	sessions SessionReader,
	verifier AnswerVerifier,
	auditor AuditEmitter,
	opts ...Option,
) *Service {
	s := &Service{
		results:   results,
		questions: questions,
		answers:   answers,
		sessions:  sessions,
		verifier:  verifier,
		auditor:   auditor,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest names the session and carries the verifier credential.
type SubmitRequest struct {
	SessionID string
	Bearer    string
}

// Submit forwards the answer set once every question is answered. A nil item
// with a nil error means "not ready yet". A session already scored returns a
// StateConflict error together with the stored item.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*models.AnswerResultItem, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	if strings.TrimSpace(req.Bearer) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "bearer credential is required")
	}

	existing, err := s.results.Get(ctx, req.SessionID)
	switch {
	case err == nil:
		s.metrics.IncAlreadyScored()
		return existing, dErrors.New(dErrors.CodeStateConflict, "answers already scored for session")
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read answer result")
	}

	questions, err := s.questions.Get(ctx, req.SessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeValidation, "questions not retrieved for session")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read question result")
	}
	if !questions.AllAnswered() {
		s.metrics.IncNotReady()
		return nil, nil
	}

	sess, identity, err := s.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(identity.NINO) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "national insurance number is required")
	}

	submitted, err := s.collectAnswers(ctx, questions)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, audit.EventRequestSent, sess, audit.WithNINO(identity.NINO))

	scored, err := s.verifier.VerifyAnswers(ctx, req.Bearer, models.VerifyRequest{
		CorrelationID: questions.CorrelationID,
		NINO:          identity.NINO,
		Answers:       submitted,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "answer verifier call failed",
			"session_id", req.SessionID,
			"correlation_id", questions.CorrelationID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, err
	}

	item := models.NewAnswerResultItem(req.SessionID, questions.CorrelationID, questions.ExpiresAt, scored)
	if err := s.results.Create(ctx, item); err != nil {
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save answer result")
		}
		winner, getErr := s.results.Get(ctx, req.SessionID)
		if getErr != nil {
			return nil, dErrors.Wrap(getErr, dErrors.CodeInternal, "failed to read answer result")
		}
		s.metrics.IncAlreadyScored()
		return winner, dErrors.New(dErrors.CodeStateConflict, "answers already scored for session")
	}

	tally := item.Tally()
	outcome := audit.OutcomeFor(item.VerificationScore)
	s.metrics.ObserveOutcome(outcome, tally.Correct)
	s.emit(ctx, audit.EventResponseReceived, sess, audit.WithExtensions(responseExtensions(tally, outcome)))

	s.logger.InfoContext(ctx, "answers scored",
		"session_id", req.SessionID,
		"correlation_id", item.CorrelationID,
		"verification_score", item.VerificationScore,
		"correct", tally.Correct,
		"incorrect", tally.Incorrect,
	)
	return item, nil
}

// collectAnswers orders saved answers by question order. An answered
// question without a saved answer means the records disagree.
func (s *Service) collectAnswers(ctx context.Context, questions *questionmodels.QuestionResultItem) ([]models.SubmittedAnswer, error) {
	saved, err := s.answers.ListAnswers(ctx, questions.SessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list saved answers")
	}
	byKey := make(map[string]string, len(saved))
	for _, a := range saved {
		byKey[a.QuestionKey] = a.Value
	}

	ordered := slices.Clone(questions.Questions)
	slices.SortFunc(ordered, func(a, b questionmodels.QuestionState) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]models.SubmittedAnswer, 0, len(ordered))
	for _, q := range ordered {
		value, ok := byKey[q.QuestionKey]
		if !ok {
			return nil, dErrors.New(dErrors.CodeStateConflict, "no saved answer for answered question "+q.QuestionKey)
		}
		out = append(out, models.SubmittedAnswer{QuestionKey: q.QuestionKey, Value: value})
	}
	return out, nil
}

func responseExtensions(t models.Tally, outcome string) *platformaudit.Extensions {
	total, correct, incorrect := t.Total(), t.Correct, t.Incorrect
	return &platformaudit.Extensions{
		Outcome:                         outcome,
		TotalQuestionsAsked:             &total,
		TotalQuestionsAnsweredCorrect:   &correct,
		TotalQuestionsAnsweredIncorrect: &incorrect,
	}
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

func (s *Service) emit(ctx context.Context, name audit.EventName, sess *sessionmodels.Session, opts ...audit.EventOption) {
	_ = s.auditor.Emit(ctx, name, sess, opts...)
}
