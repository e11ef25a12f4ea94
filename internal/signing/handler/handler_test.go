package handler

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbv/internal/signing"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/middleware/admin"
	"kbv/pkg/testutil"
)

func newRouter(t *testing.T, keyID string, guards ...func(http.Handler) http.Handler) (chi.Router, *signing.LocalSigner) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	local, err := signing.NewLocalSigner(key)
	require.NoError(t, err)

	r := chi.NewRouter()
	New(signing.NewService(local), keyID, slog.New(slog.NewTextHandler(io.Discard, nil)), guards...).Register(r)
	return r, local
}

type rejectingSigner struct{}

func (rejectingSigner) Sign(context.Context, string, []byte, signing.MessageType) ([]byte, error) {
	return nil, dErrors.New(dErrors.CodeSigning, "signing service error: key disabled")
}

func TestHandleSign(t *testing.T) {
	testutil.Given(t, "claims without a header", func(t *testing.T) {
		r, local := newRouter(t, "kid-1")
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{"claims":{"iss":"https://issuer.example"}}`)

		rr := testutil.DoRequest(r, req)

		testutil.Then(t, "a verifiable ES256 token is returned", func(t *testing.T) {
			require.Equal(t, http.StatusOK, rr.Code)
			resp := testutil.UnmarshalResponse[SignResponse](t, rr)
			claims, err := signing.Verify(resp.JWT, local.PublicKey())
			require.NoError(t, err)
			assert.Equal(t, "https://issuer.example", claims["iss"])
		})
	})

	testutil.Given(t, "no claims", func(t *testing.T) {
		r, _ := newRouter(t, "kid-1")
		rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{}`))

		testutil.Then(t, "a validation failure is returned", func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.JSONEq(t, `{"error":"JwtSigningService : claims are required"}`, rr.Body.String())
		})
	})

	testutil.Given(t, "no configured key id", func(t *testing.T) {
		r, _ := newRouter(t, "")
		rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{"claims":{"a":1}}`))

		testutil.Then(t, "the failure is structured", func(t *testing.T) {
			failure := testutil.AssertFailure(t, rr, http.StatusBadRequest, signing.Component)
			assert.Equal(t, "JwtSigningService : signing key id is required", failure.Error)
		})
	})

	testutil.Given(t, "a signer that rejects the key", func(t *testing.T) {
		r := chi.NewRouter()
		svc := signing.NewService(rejectingSigner{}, signing.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
		New(svc, "kid-1", slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)

		rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{"claims":{"a":1}}`))

		testutil.Then(t, "the signing result failure is rendered", func(t *testing.T) {
			failure := testutil.AssertFailure(t, rr, http.StatusInternalServerError, signing.Component)
			assert.Equal(t, "JwtSigningService : signing service error: key disabled", failure.Error)
		})
	})

	testutil.Given(t, "a guarded route", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		r, _ := newRouter(t, "kid-1", admin.RequireAdminToken("secret", logger))

		testutil.When(t, "the admin token is missing", func(t *testing.T) {
			rr := testutil.DoRequest(r, testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{"claims":{"a":1}}`))

			testutil.Then(t, "the request is rejected", func(t *testing.T) {
				assert.Equal(t, http.StatusUnauthorized, rr.Code)
			})
		})

		testutil.When(t, "the admin token matches", func(t *testing.T) {
			req := testutil.NewRequestWithBody(t, http.MethodPost, "/jwt/sign", `{"claims":{"a":1}}`)
			req.Header.Set(admin.TokenHeader, "secret")
			rr := testutil.DoRequest(r, req)

			testutil.Then(t, "the claims are signed", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rr.Code)
			})
		})
	})
}
