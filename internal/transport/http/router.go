package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/httputil"
	"kbv/pkg/platform/middleware/metadata"
	"kbv/pkg/platform/middleware/requesttime"
	"kbv/pkg/platform/stepresult"
)

const componentRouter = "Router"

// Registrar mounts one module's endpoints.
type Registrar interface {
	Register(r chi.Router)
}

// HealthFunc reports whether backing stores are reachable.
type HealthFunc func(ctx context.Context) error

// NewRouter wires the orchestrator-facing endpoints behind the request
// metadata and request time middlewares. Handlers stay thin and delegate to
// the module services.
func NewRouter(health HealthFunc, registrars ...Registrar) http.Handler {
	r := chi.NewRouter()
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, failure("no such step"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, failure("method not allowed"))
	})
	r.Get("/healthz", healthz(health))

	for _, reg := range registrars {
		reg.Register(r)
	}
	return r
}

func healthz(health HealthFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable,
					stepresult.FromError("Health", dErrors.Wrap(err, dErrors.CodeDependency, "store unavailable")))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func failure(msg string) map[string]string {
	return map[string]string{"error": componentRouter + " : " + msg}
}
