package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kbv/internal/answer/models"
	"kbv/internal/answer/service"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/httputil"
	"kbv/pkg/requestcontext"
)

const componentSubmit = "AnswerSubmission"

// Service defines the scoring operation.
type Service interface {
	Submit(ctx context.Context, req service.SubmitRequest) (*models.AnswerResultItem, error)
}

// Handler wires the submit endpoint to the answer service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts answer endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/submit", h.HandleSubmit)
}

// HandleSubmit handles POST /submit. A session scored earlier returns its
// stored result so orchestrator retries see the same outcome.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	sessionID := httputil.SessionID(r)

	item, err := h.service.Submit(ctx, service.SubmitRequest{
		SessionID: sessionID,
		Bearer:    httputil.BearerToken(r),
	})
	if err != nil && !(dErrors.HasCode(err, dErrors.CodeStateConflict) && item != nil) {
		h.logger.ErrorContext(ctx, "answer submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"retryable", dErrors.IsRetryable(err),
			"error", err,
		)
		httputil.WriteFailure(w, componentSubmit, err)
		return
	}

	h.logger.InfoContext(ctx, "answer submission handled",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"scored", item != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromItem(item))
}
