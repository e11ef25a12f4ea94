package admin

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"kbv/pkg/testutil"
)

func TestRequireAdminToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name     string
		expected string
		sent     string
		status   int
	}{
		{name: "matching token", expected: "secret", sent: "secret", status: http.StatusNoContent},
		{name: "wrong token", expected: "secret", sent: "nope", status: http.StatusUnauthorized},
		{name: "missing token", expected: "secret", sent: "", status: http.StatusUnauthorized},
		{name: "unconfigured token", expected: "", sent: "", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodPost, "/jwt/sign")
			if tt.sent != "" {
				req.Header.Set(TokenHeader, tt.sent)
			}
			rr := testutil.DoRequest(RequireAdminToken(tt.expected, logger)(ok), req)
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}
