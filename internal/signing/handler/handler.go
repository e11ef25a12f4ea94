// Package handler exposes the JWS signing service to the orchestrator so it
// can sign any header and claims pair with the configured key.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kbv/internal/signing"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/httputil"
	"kbv/pkg/requestcontext"
)

// Signer produces a compact JWS or a structured failure.
type Signer interface {
	Sign(ctx context.Context, header, claims any, keyID string) signing.Result
}

// SignRequest is the body of POST /jwt/sign. Header defaults to the ES256
// header for the configured key.
type SignRequest struct {
	Header json.RawMessage `json:"header,omitempty"`
	Claims json.RawMessage `json:"claims"`
}

type SignResponse struct {
	JWT string `json:"jwt"`
}

type Handler struct {
	signer Signer
	keyID  string
	logger *slog.Logger
	guards []func(http.Handler) http.Handler
}

// New builds the handler. guards wrap the signing route only.
func New(signer Signer, keyID string, logger *slog.Logger, guards ...func(http.Handler) http.Handler) *Handler {
	return &Handler{signer: signer, keyID: keyID, logger: logger, guards: guards}
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.guards...).Post("/jwt/sign", h.HandleSign)
}

// HandleSign handles POST /jwt/sign.
func (h *Handler) HandleSign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[SignRequest](w, r, h.logger, signing.Component)
	if !ok {
		return
	}
	if len(req.Claims) == 0 {
		httputil.WriteFailure(w, signing.Component, dErrors.New(dErrors.CodeValidation, "claims are required"))
		return
	}

	var header any = signing.NewHeader(h.keyID)
	if len(req.Header) > 0 {
		header = req.Header
	}
	res := h.signer.Sign(ctx, header, req.Claims, h.keyID)
	if !res.OK() {
		h.logger.ErrorContext(ctx, "jws signing request failed",
			"request_id", requestcontext.RequestID(ctx),
			"failure", res.Failure.Error,
		)
		httputil.WriteJSON(w, httputil.StatusForCode(res.Code), res.Failure)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, SignResponse{JWT: res.Token})
}
