package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kbv/internal/question/models"
	"kbv/internal/question/service"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/httputil"
	"kbv/pkg/requestcontext"
)

const (
	componentRetrieve = "QuestionRetrieval"
	componentNext     = "NextQuestion"
	componentSave     = "SaveAnswer"
)

// Service defines the question operations exposed to the orchestrator.
type Service interface {
	Retrieve(ctx context.Context, req service.RetrieveRequest) (models.Outcome, error)
	NextQuestion(ctx context.Context, sessionID string) (*models.Question, error)
	SaveAnswer(ctx context.Context, req service.SaveAnswerRequest) error
}

// Handler wires question endpoints to the question service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts question endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/question", h.HandleRetrieve)
	r.Get("/question", h.HandleNextQuestion)
	r.Post("/answer", h.HandleSaveAnswer)
}

// HandleRetrieve handles POST /question.
func (h *Handler) HandleRetrieve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	sessionID := httputil.SessionID(r)

	outcome, err := h.service.Retrieve(ctx, service.RetrieveRequest{
		SessionID: sessionID,
		Bearer:    httputil.BearerToken(r),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "question retrieval failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"retryable", dErrors.IsRetryable(err),
			"error", err,
		)
		httputil.WriteFailure(w, componentRetrieve, err)
		return
	}

	h.logger.InfoContext(ctx, "question retrieval completed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"outcome", outcome,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, RetrieveResponse{Outcome: outcome})
}

// HandleNextQuestion handles GET /question. 204 means no more questions.
func (h *Handler) HandleNextQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := httputil.SessionID(r)

	next, err := h.service.NextQuestion(ctx, sessionID)
	if err != nil {
		h.logger.WarnContext(ctx, "next question lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteFailure(w, componentNext, err)
		return
	}
	if next == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, next)
}

// HandleSaveAnswer handles POST /answer. A conflicting answer is a no-op
// reported as an empty success body so orchestrator retries are harmless.
func (h *Handler) HandleSaveAnswer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := httputil.SessionID(r)

	req, ok := httputil.DecodeJSON[SaveAnswerRequest](w, r, h.logger, componentSave)
	if !ok {
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteFailure(w, componentSave, err)
		return
	}

	err := h.service.SaveAnswer(ctx, service.SaveAnswerRequest{
		SessionID:   sessionID,
		QuestionKey: req.QuestionKey,
		Value:       req.Value,
	})
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusOK, SaveAnswerResponse{QuestionKey: req.QuestionKey})
	case dErrors.HasCode(err, dErrors.CodeStateConflict):
		h.logger.InfoContext(ctx, "answer ignored",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"question_key", req.QuestionKey,
		)
		httputil.WriteJSON(w, http.StatusOK, SaveAnswerResponse{})
	default:
		h.logger.ErrorContext(ctx, "save answer failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteFailure(w, componentSave, err)
	}
}
