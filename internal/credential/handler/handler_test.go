package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"kbv/internal/credential/handler/mocks"
	"kbv/internal/credential/models"
	"kbv/internal/credential/service"
	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/credential-mocks.go -package=mocks Service

func newRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	svc := mocks.NewMockService(gomock.NewController(t))
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestHandleIssue(t *testing.T) {
	issue := func(t *testing.T) *http.Request {
		return testutil.WithSession(testutil.NewRequest(t, http.MethodPost, "/credential/issue"), "s-1")
	}

	testutil.Given(t, "a scored session", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Issue(gomock.Any(), "s-1").Return(&service.Issued{JWT: "h.p.s"}, nil)

		rr := testutil.DoRequest(r, issue(t))

		testutil.Then(t, "the signed credential is returned", func(t *testing.T) {
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.JSONEq(t, `{"jwt":"h.p.s"}`, rr.Body.String())
		})
	})

	testutil.Given(t, "audit emission failed", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Issue(gomock.Any(), "s-1").
			Return(&service.Issued{JWT: "h.p.s", Warnings: []string{"audit event not emitted"}}, nil)

		rr := testutil.DoRequest(r, issue(t))

		testutil.Then(t, "the credential is still returned with a warning", func(t *testing.T) {
			assert.Equal(t, http.StatusOK, rr.Code)
			testutil.AssertJSONContains(t, rr, "jwt", "h.p.s")
			testutil.AssertJSONContains(t, rr, "warnings", []any{"audit event not emitted"})
		})
	})

	testutil.Given(t, "the signing service rejects the request", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Issue(gomock.Any(), "s-1").
			Return(nil, dErrors.New(dErrors.CodeSigning, "signing service error: key disabled"))

		rr := testutil.DoRequest(r, issue(t))

		testutil.Then(t, "the failure names the signing component", func(t *testing.T) {
			assert.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"error":"JwtSigningService : signing service error: key disabled"}`, rr.Body.String())
		})
	})

	testutil.Given(t, "no answer result", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Issue(gomock.Any(), "s-1").
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "no answer result for session"))

		rr := testutil.DoRequest(r, issue(t))

		testutil.Then(t, "the failure names the issuer", func(t *testing.T) {
			failure := testutil.AssertFailure(t, rr, http.StatusInternalServerError, "CredentialIssuer")
			assert.Equal(t, "CredentialIssuer : no answer result for session", failure.Error)
		})
	})
}

func TestHandleAssemble(t *testing.T) {
	testutil.Given(t, "a scored session", func(t *testing.T) {
		r, svc := newRouter(t)
		vc := &models.VerifiableCredential{Iss: "https://issuer.example", Jti: "urn:uuid:1"}
		svc.EXPECT().Assemble(gomock.Any(), "s-1").Return(&service.Assembled{Credential: vc}, nil)

		rr := testutil.DoRequest(r, testutil.WithSession(testutil.NewRequest(t, http.MethodPost, "/credential"), "s-1"))

		testutil.Then(t, "the unsigned claims are returned", func(t *testing.T) {
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), `"iss":"https://issuer.example"`)
			assert.NotContains(t, rr.Body.String(), "warnings")
		})
	})

	testutil.Given(t, "a missing session header", func(t *testing.T) {
		r, svc := newRouter(t)
		svc.EXPECT().Assemble(gomock.Any(), "").
			Return(nil, dErrors.New(dErrors.CodeValidation, "session id is required"))

		rr := testutil.DoRequest(r, testutil.NewRequest(t, http.MethodPost, "/credential"))

		testutil.Then(t, "a bad request is returned", func(t *testing.T) {
			testutil.AssertFailure(t, rr, http.StatusBadRequest, "CredentialIssuer")
		})
	})
}
