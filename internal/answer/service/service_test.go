package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks AnswerVerifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"kbv/internal/answer/models"
	"kbv/internal/answer/service/mocks"
	"kbv/internal/answer/store"
	"kbv/internal/audit"
	questionmodels "kbv/internal/question/models"
	questionstore "kbv/internal/question/store"
	sessionstore "kbv/internal/session/store"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/audit/publisher"
	"kbv/pkg/platform/audit/sink/memory"
	"kbv/pkg/requestcontext"
	"kbv/pkg/testutil"
)

const (
	sessionID = "session-1"
	bearer    = "token"
)

type SubmitSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	verifier  *mocks.MockAnswerVerifier
	results   *store.InMemoryStore
	questions *questionstore.InMemoryStore
	sink      *memory.Sink
	svc       *Service
}

func TestSubmitSuite(t *testing.T) {
	suite.Run(t, new(SubmitSuite))
}

func (s *SubmitSuite) SetupTest() {
	s.now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.verifier = mocks.NewMockAnswerVerifier(gomock.NewController(s.T()))
	s.results = store.NewInMemoryStore()
	s.questions = questionstore.NewInMemoryStore()
	s.sink = memory.New()

	sessions := sessionstore.NewInMemoryStore()
	sessions.Put(testutil.NewSession(sessionID, s.now), testutil.NewPersonIdentity(sessionID))

	emitter := audit.NewEmitter(publisher.NewPublisher(s.sink), "https://issuer.example")
	s.svc = New(s.results, s.questions, s.questions, sessions, s.verifier, emitter)
}

// seedAnswered stores questions in order and answers the first n of them.
func (s *SubmitSuite) seedAnswered(n int, keys ...string) {
	var qs []questionmodels.Question
	for _, k := range keys {
		qs = append(qs, questionmodels.Question{QuestionKey: k})
	}
	s.Require().NoError(s.questions.Create(s.ctx,
		questionmodels.NewQuestionResultItem(sessionID, "corr-1", s.now.Add(time.Hour), qs)))
	for _, k := range keys[:n] {
		s.Require().NoError(s.questions.SaveAnswer(s.ctx, questionmodels.SavedAnswer{SessionID: sessionID, QuestionKey: k, Value: "ans-" + k}))
		s.Require().NoError(s.questions.MarkAnswered(s.ctx, sessionID, k))
	}
}

func (s *SubmitSuite) submit() (*models.AnswerResultItem, error) {
	return s.svc.Submit(s.ctx, SubmitRequest{SessionID: sessionID, Bearer: bearer})
}

func (s *SubmitSuite) TestNotReadyIsANoOp() {
	s.seedAnswered(1, "tc-amount", "sa-payment-details")

	item, err := s.submit()
	s.Require().NoError(err)
	s.Nil(item)
	s.Empty(s.sink.Events())
}

func (s *SubmitSuite) TestScoresOnceInQuestionOrder() {
	keys := []string{"rti-p60-payment-for-year", "sa-payment-details", "tc-amount"}
	s.seedAnswered(3, keys...)

	s.verifier.EXPECT().
		VerifyAnswers(gomock.Any(), bearer, models.VerifyRequest{
			CorrelationID: "corr-1",
			NINO:          "AA000003D",
			Answers: []models.SubmittedAnswer{
				{QuestionKey: keys[0], Value: "ans-" + keys[0]},
				{QuestionKey: keys[1], Value: "ans-" + keys[1]},
				{QuestionKey: keys[2], Value: "ans-" + keys[2]},
			},
		}).
		Return([]models.AnswerResult{
			{QuestionKey: keys[0], Score: models.ScoreCorrect},
			{QuestionKey: keys[1], Score: models.ScoreCorrect},
			{QuestionKey: keys[2], Score: models.ScoreCorrect},
		}, nil).
		Times(1)

	item, err := s.submit()
	s.Require().NoError(err)
	s.Equal(2, item.VerificationScore)
	s.Nil(item.ContraIndicators)
	s.Equal(3, item.Checks())
	s.Nil(item.FailedCheckDetailsCount)
	s.Equal(s.now.Add(time.Hour), item.ExpiresAt)

	s.Equal([]string{string(audit.EventRequestSent), string(audit.EventResponseReceived)}, s.sink.Names())
	received := s.sink.Events()[1]
	s.Require().NotNil(received.Extensions)
	s.Equal("Authenticated", received.Extensions.Outcome)
	s.Equal(3, *received.Extensions.TotalQuestionsAsked)
	s.Equal(3, *received.Extensions.TotalQuestionsAnsweredCorrect)
	s.Equal(0, *received.Extensions.TotalQuestionsAnsweredIncorrect)
	s.Nil(received.Restricted)

	again, err := s.submit()
	s.True(dErrors.HasCode(err, dErrors.CodeStateConflict))
	s.Equal(item.VerificationScore, again.VerificationScore)
	s.Len(s.sink.Events(), 2, "a repeated submit emits nothing")
}

func (s *SubmitSuite) TestFailureAttachesContraIndicator() {
	s.seedAnswered(2, "tc-amount", "sa-payment-details")
	s.verifier.EXPECT().VerifyAnswers(gomock.Any(), bearer, gomock.Any()).Return([]models.AnswerResult{
		{QuestionKey: "tc-amount", Score: models.ScoreCorrect},
		{QuestionKey: "sa-payment-details", Score: models.ScoreIncorrect},
	}, nil)

	item, err := s.submit()
	s.Require().NoError(err)
	s.Equal(0, item.VerificationScore)
	s.Equal([]string{"V03"}, item.ContraIndicators)
	s.Equal(1, item.Checks())
	s.Equal(1, item.FailedChecks())
	s.Equal("Not Authenticated", s.sink.Events()[1].Extensions.Outcome)
}

func (s *SubmitSuite) TestVerifierFailureWritesNothing() {
	s.seedAnswered(2, "tc-amount", "sa-payment-details")
	s.verifier.EXPECT().VerifyAnswers(gomock.Any(), bearer, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "answers request was malformed or the NINO did not match"))

	_, err := s.submit()
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, getErr := s.results.Get(s.ctx, sessionID)
	s.Error(getErr)
	s.Equal([]string{string(audit.EventRequestSent)}, s.sink.Names())
}

func (s *SubmitSuite) TestPreconditions() {
	_, err := s.svc.Submit(s.ctx, SubmitRequest{Bearer: bearer})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Submit(s.ctx, SubmitRequest{SessionID: sessionID})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.submit()
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "questions not retrieved")
}
