// Package testutil holds request builders and response assertions shared by handler tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbv/pkg/platform/stepresult"
)

// NewJSONRequest marshals body and builds a JSON request for path.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err, "marshal request body")
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewRequest builds a request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody builds a JSON request from a raw body.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req through handler.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the recorded body into T. The body stays readable.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "unmarshal response: %s", rr.Body.String())
	return &out
}

// AssertJSONContains asserts the top-level field key of the body equals expected.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, expected any) {
	t.Helper()
	body := UnmarshalResponse[map[string]any](t, rr)
	assert.Equal(t, expected, (*body)[key], "unexpected value for key %q", key)
}

// AssertFailure asserts status and a "<component> : <message>" failure body.
func AssertFailure(t *testing.T, rr *httptest.ResponseRecorder, status int, component string) stepresult.Failure {
	t.Helper()
	assert.Equal(t, status, rr.Code, "unexpected status code")
	failure := UnmarshalResponse[stepresult.Failure](t, rr)
	assert.True(t, strings.HasPrefix(failure.Error, component+" : "),
		"failure %q does not name component %q", failure.Error, component)
	return *failure
}
