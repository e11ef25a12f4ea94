package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kbv/internal/credential/models"
	"kbv/internal/credential/service"
	"kbv/internal/signing"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/httputil"
	"kbv/pkg/requestcontext"
)

const componentIssuer = "CredentialIssuer"

// Service defines the credential operations exposed to the orchestrator.
type Service interface {
	Assemble(ctx context.Context, sessionID string) (*service.Assembled, error)
	Issue(ctx context.Context, sessionID string) (*service.Issued, error)
}

// AssembleResponse carries the unsigned credential claims.
type AssembleResponse struct {
	Credential *models.VerifiableCredential `json:"credential"`
	Warnings   []string                     `json:"warnings,omitempty"`
}

// IssueResponse carries the signed credential.
type IssueResponse struct {
	JWT      string   `json:"jwt"`
	Warnings []string `json:"warnings,omitempty"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credential", h.HandleAssemble)
	r.Post("/credential/issue", h.HandleIssue)
}

// HandleAssemble handles POST /credential and returns the unsigned claims.
func (h *Handler) HandleAssemble(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := httputil.SessionID(r)

	assembled, err := h.service.Assemble(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, sessionID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AssembleResponse{
		Credential: assembled.Credential,
		Warnings:   assembled.Warnings,
	})
}

// HandleIssue handles POST /credential/issue.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	sessionID := httputil.SessionID(r)

	issued, err := h.service.Issue(ctx, sessionID)
	if err != nil {
		h.fail(ctx, w, sessionID, err)
		return
	}

	h.logger.InfoContext(ctx, "credential issued",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"audit_warnings", len(issued.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, IssueResponse{JWT: issued.JWT, Warnings: issued.Warnings})
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, sessionID string, err error) {
	component := componentIssuer
	if dErrors.HasCode(err, dErrors.CodeSigning) {
		component = signing.Component
	}
	h.logger.ErrorContext(ctx, "credential issuance failed",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID,
		"component", component,
		"error", err,
	)
	httputil.WriteFailure(w, component, err)
}
