// Package e2e runs the orchestrator-facing journey against an in-process
// server with in-memory stores, a fake question source and a local signer.
package e2e

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"time"

	answerhandler "kbv/internal/answer/handler"
	answermodels "kbv/internal/answer/models"
	answerservice "kbv/internal/answer/service"
	answerstore "kbv/internal/answer/store"
	"kbv/internal/audit"
	credentialhandler "kbv/internal/credential/handler"
	credentialservice "kbv/internal/credential/service"
	"kbv/internal/hmrc"
	"kbv/internal/question"
	questionhandler "kbv/internal/question/handler"
	questionmodels "kbv/internal/question/models"
	questionservice "kbv/internal/question/service"
	questionstore "kbv/internal/question/store"
	sessionstore "kbv/internal/session/store"
	"kbv/internal/signing"
	httptransport "kbv/internal/transport/http"
	"kbv/pkg/platform/audit/publisher"
	"kbv/pkg/platform/audit/sink/memory"
	"kbv/pkg/testutil"
)

const (
	issuer        = "https://review-k.example"
	keyID         = "e2e-key"
	correctAnswer = "right"
)

// TestContext is the per-scenario world.
type TestContext struct {
	API      *httptest.Server
	HMRC     *httptest.Server
	Sessions *sessionstore.InMemoryStore
	Sink     *memory.Sink
	Signer   *signing.LocalSigner

	SessionID    string
	Offered      []string
	SourceCalls  atomic.Int32
	LastResponse *http.Response
	LastBody     []byte
}

// NewTestContext starts the fake question source and the API.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		Sessions: sessionstore.NewInMemoryStore(),
		Sink:     memory.New(),
	}
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	if tc.Signer, err = signing.NewLocalSigner(key); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /questions", tc.serveQuestions)
	mux.HandleFunc("POST /answers", serveAnswers)
	tc.HMRC = httptest.NewServer(mux)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	questions := questionstore.NewInMemoryStore()
	answers := answerstore.NewInMemoryStore()
	emitter := audit.NewEmitter(publisher.NewPublisher(tc.Sink), issuer)
	signer := signing.NewService(tc.Signer)

	questionSvc := questionservice.New(questions, questions, tc.Sessions,
		hmrc.NewQuestionsClient(tc.HMRC.URL+"/questions"),
		question.NewFilterEngine(question.DefaultCatalog),
		emitter)
	answerSvc := answerservice.New(answers, questions, questions, tc.Sessions,
		hmrc.NewAnswersClient(tc.HMRC.URL+"/answers"), emitter)
	credentialSvc := credentialservice.New(answers, tc.Sessions, emitter, signer, issuer, keyID)

	tc.API = httptest.NewServer(httptransport.NewRouter(nil,
		questionhandler.New(questionSvc, log),
		answerhandler.New(answerSvc, log),
		credentialhandler.New(credentialSvc, log),
	))
	return tc, nil
}

// Close stops both servers.
func (tc *TestContext) Close() {
	tc.API.Close()
	tc.HMRC.Close()
}

// SeedSession stores a session and claimed identity.
func (tc *TestContext) SeedSession(sessionID, nino string) {
	identity := testutil.NewPersonIdentity(sessionID)
	identity.NINO = nino
	tc.Sessions.Put(testutil.NewSession(sessionID, time.Now()), identity)
	tc.SessionID = sessionID
}

// Do sends a step request for the current session and records the response.
func (tc *TestContext) Do(method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}
	req, err := http.NewRequest(method, tc.API.URL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("session-id", tc.SessionID)
	req.Header.Set("Authorization", "Bearer e2e-token")
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.API.Client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.LastResponse = resp
	tc.LastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) serveQuestions(w http.ResponseWriter, _ *http.Request) {
	tc.SourceCalls.Add(1)
	set := questionmodels.QuestionSet{CorrelationID: "corr-e2e"}
	for _, k := range tc.Offered {
		set.Questions = append(set.Questions, questionmodels.Question{QuestionKey: k})
	}
	writeJSON(w, set)
}

// serveAnswers scores an answer correct when its value is correctAnswer.
func serveAnswers(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Answers []answermodels.SubmittedAnswer `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results := make([]answermodels.AnswerResult, 0, len(body.Answers))
	for _, a := range body.Answers {
		score := answermodels.ScoreIncorrect
		if a.Value == correctAnswer {
			score = answermodels.ScoreCorrect
		}
		results = append(results, answermodels.AnswerResult{QuestionKey: a.QuestionKey, Score: score})
	}
	writeJSON(w, results)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
