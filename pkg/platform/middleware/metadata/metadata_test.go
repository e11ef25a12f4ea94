package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"kbv/pkg/requestcontext"
)

func TestClientIPFromRequest(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"first forwarded entry", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.2:443", "198.51.100.1"},
		{"real ip header", map[string]string{"X-Real-IP": " 198.51.100.2 "}, "10.0.0.2:443", "198.51.100.2"},
		{"remote addr without port", nil, "192.0.2.10:51234", "192.0.2.10"},
		{"ipv6 remote addr", nil, "[::1]:8080", "[::1]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIPFromRequest(r))
		})
	}
}

func TestClientMetadata(t *testing.T) {
	var gotID, gotIP string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = requestcontext.RequestID(r.Context())
		gotIP = requestcontext.ClientIP(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	r.Header.Set("X-Forwarded-For", "198.51.100.7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, "req-42", gotID)
	assert.Equal(t, "198.51.100.7", gotIP)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
}
