// Package service assembles the verifiable credential for a scored session
// and signs it on request.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	answermodels "kbv/internal/answer/models"
	"kbv/internal/audit"
	"kbv/internal/credential/metrics"
	"kbv/internal/credential/models"
	sessionmodels "kbv/internal/session/models"
	"kbv/internal/signing"
	dErrors "kbv/pkg/domain-errors"
	platformaudit "kbv/pkg/platform/audit"
	"kbv/pkg/platform/sentinel"
	"kbv/pkg/requestcontext"
)

// AnswerReader reads the scored outcome.
type AnswerReader interface {
	Get(ctx context.Context, sessionID string) (*answermodels.AnswerResultItem, error)
}

// SessionReader reads the session and claimed identity.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID string) (*sessionmodels.Session, error)
	GetPersonIdentity(ctx context.Context, sessionID string) (*sessionmodels.PersonIdentity, error)
}

// AuditEmitter records verification checkpoints.
type AuditEmitter interface {
	Emit(ctx context.Context, name audit.EventName, sess *sessionmodels.Session, opts ...audit.EventOption) error
}

// TokenSigner signs a header and claims pair. *signing.Service satisfies it.
type TokenSigner interface {
	Token(ctx context.Context, header, claims any, keyID string) (string, error)
}

// Service builds and signs credentials.
type Service struct {
	answers  AnswerReader
	sessions SessionReader
	auditor  AuditEmitter
	signer   TokenSigner
	issuer   string
	keyID    string
	newID    func() string
	logger   *slog.Logger
	metrics  *metrics.Metrics
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

// WithIDGenerator replaces the random identifier source. Tests only.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(answers AnswerReader, sessions SessionReader, auditor AuditEmitter, signer TokenSigner, issuer, keyID string, opts ...Option) *Service {
	s := &Service{
		answers:  answers,
		sessions: sessions,
		auditor:  auditor,
		signer:   signer,
		issuer:   issuer,
		keyID:    keyID,
		newID:    uuid.NewString,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assembled is an unsigned credential plus any audit warnings raised while
// building it.
type Assembled struct {
	Credential *models.VerifiableCredential
	Warnings   []string
}

// Issued is a signed credential.
type Issued struct {
	JWT      string
	Warnings []string
}

// Assemble builds the credential from the stored answer result and claimed
// identity, then emits VC_ISSUED followed by END. Audit failures become
// warnings and never block the credential.
func (s *Service) Assemble(ctx context.Context, sessionID string) (*Assembled, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "session id is required")
	}
	result, err := s.answers.Get(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "no answer result for session")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read answer result")
	}
	sess, identity, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	evidence := BuildEvidence(result)
	vc := &models.VerifiableCredential{
		Sub: urn(s.newID()),
		Nbf: requestcontext.Now(ctx).Unix(),
		Iss: s.issuer,
		Jti: urn(s.newID()),
		VC: models.VC{
			Type:              []string{models.TypeVerifiableCredential, models.TypeIdentityCheckCredential},
			CredentialSubject: BuildSubject(identity),
			Evidence:          []models.Evidence{evidence},
		},
	}
	s.metrics.IncIssued(strconv.Itoa(result.VerificationScore))

	tally := result.Tally()
	outcome := audit.OutcomeFor(result.VerificationScore)
	var warnings []string
	if err := s.auditor.Emit(ctx, audit.EventVCIssued, sess,
		audit.WithNINO(identity.NINO),
		audit.WithExtensions(issuedExtensions(s.issuer, evidence, tally, outcome)),
	); err != nil {
		warnings = append(warnings, "audit event "+string(audit.EventVCIssued)+" not emitted: "+err.Error())
	}
	if err := s.auditor.Emit(ctx, audit.EventEnd, sess,
		audit.WithExtensions(countExtensions(tally, outcome)),
	); err != nil {
		warnings = append(warnings, "audit event "+string(audit.EventEnd)+" not emitted: "+err.Error())
	}
	if len(warnings) > 0 {
		s.metrics.IncAuditWarning()
	}

	s.logger.InfoContext(ctx, "credential assembled",
		"session_id", sessionID,
		"correlation_id", result.CorrelationID,
		"jti", vc.Jti,
		"verification_score", result.VerificationScore,
		"audit_warnings", len(warnings),
	)
	return &Assembled{Credential: vc, Warnings: warnings}, nil
}

// Issue assembles the credential and signs it with the ES256 header.
func (s *Service) Issue(ctx context.Context, sessionID string) (*Issued, error) {
	assembled, err := s.Assemble(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	token, err := s.signer.Token(ctx, signing.NewHeader(s.keyID), assembled.Credential, s.keyID)
	if err != nil {
		return nil, err
	}
	return &Issued{JWT: token, Warnings: assembled.Warnings}, nil
}

// BuildEvidence maps a scored result to the evidence block. Check detail
// arrays are omitted when their count is zero.
func BuildEvidence(result *answermodels.AnswerResultItem) models.Evidence {
	ci := result.ContraIndicators
	if ci == nil {
		ci = []string{}
	}
	return models.Evidence{
		Type:               models.EvidenceTypeIdentityCheck,
		Txn:                result.CorrelationID,
		VerificationScore:  result.VerificationScore,
		CI:                 ci,
		CheckDetails:       models.NewCheckDetails(result.Checks()),
		FailedCheckDetails: models.NewCheckDetails(result.FailedChecks()),
	}
}

// BuildSubject copies the claimed identity without normalisation.
func BuildSubject(identity *sessionmodels.PersonIdentity) models.CredentialSubject {
	subject := models.CredentialSubject{
		Name:      identity.Names,
		BirthDate: identity.BirthDates,
	}
	if identity.NINO != "" {
		subject.SocialSecurityRecord = []models.SocialSecurityRecord{{PersonalNumber: identity.NINO}}
	}
	return subject
}

func urn(id string) string {
	return "urn:uuid:" + id
}

func countExtensions(t answermodels.Tally, outcome string) *platformaudit.Extensions {
	total, correct, incorrect := t.Total(), t.Correct, t.Incorrect
	return &platformaudit.Extensions{
		Outcome:                         outcome,
		TotalQuestionsAsked:             &total,
		TotalQuestionsAnsweredCorrect:   &correct,
		TotalQuestionsAnsweredIncorrect: &incorrect,
	}
}

func issuedExtensions(issuer string, evidence models.Evidence, t answermodels.Tally, outcome string) *platformaudit.Extensions {
	ext := countExtensions(t, outcome)
	ext.Issuer = issuer
	ext.Evidence = []models.Evidence{evidence}
	return ext
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
