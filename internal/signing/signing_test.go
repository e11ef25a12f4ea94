package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kbv/pkg/domain-errors"
)

func newLocalSigner(t *testing.T) *LocalSigner {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	signer, err := NewLocalSigner(key)
	require.NoError(t, err)
	return signer
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSigner remembers the message type of the last call.
type recordingSigner struct {
	inner    Signer
	lastType MessageType
	lastLen  int
}

func (r *recordingSigner) Sign(ctx context.Context, keyID string, message []byte, mt MessageType) ([]byte, error) {
	r.lastType = mt
	r.lastLen = len(message)
	return r.inner.Sign(ctx, keyID, message, mt)
}

type signerFunc func(ctx context.Context, keyID string, message []byte, mt MessageType) ([]byte, error)

func (f signerFunc) Sign(ctx context.Context, keyID string, message []byte, mt MessageType) ([]byte, error) {
	return f(ctx, keyID, message, mt)
}

func TestDERToJOSE(t *testing.T) {
	signer := newLocalSigner(t)
	digest := sha256.Sum256([]byte("payload"))

	der, err := ecdsa.SignASN1(rand.Reader, signer.key, digest[:])
	require.NoError(t, err)

	jose, err := DERToJOSE(der, p256Size)
	require.NoError(t, err)
	require.Len(t, jose, 64)

	r := new(big.Int).SetBytes(jose[:32])
	s := new(big.Int).SetBytes(jose[32:])
	assert.True(t, ecdsa.Verify(signer.PublicKey(), digest[:], r, s))

	_, err = DERToJOSE([]byte{0x30, 0x01}, p256Size)
	assert.Error(t, err)
	_, err = DERToJOSE(append(der, 0x00), p256Size)
	assert.Error(t, err, "trailing bytes are rejected")
}

func TestSelectMessageType(t *testing.T) {
	assert.Equal(t, MessageRaw, SelectMessageType(0))
	assert.Equal(t, MessageRaw, SelectMessageType(4095))
	assert.Equal(t, MessageDigest, SelectMessageType(4096))
}

// claimsOfInputLength finds a header and claims pair whose signing input is exactly n bytes.
func claimsOfInputLength(t *testing.T, n int) (Header, map[string]any) {
	t.Helper()
	for kidLen := 1; kidLen < 8; kidLen++ {
		header := NewHeader(strings.Repeat("k", kidLen))
		h, err := encodeSegment(header)
		require.NoError(t, err)
		for pad := 0; pad < n; pad++ {
			claims := map[string]any{"pad": strings.Repeat("x", pad)}
			c, err := encodeSegment(claims)
			require.NoError(t, err)
			total := len(h) + 1 + len(c)
			if total == n {
				return header, claims
			}
			if total > n {
				break
			}
		}
	}
	t.Fatalf("no header/claims pair with signing input of %d bytes", n)
	return Header{}, nil
}

func TestService_ModeBoundary(t *testing.T) {
	for _, tc := range []struct {
		inputLen int
		want     MessageType
		msgLen   int
	}{
		{4095, MessageRaw, 4095},
		{4096, MessageDigest, sha256.Size},
	} {
		rec := &recordingSigner{inner: newLocalSigner(t)}
		svc := NewService(rec, WithLogger(quietLogger()))
		header, claims := claimsOfInputLength(t, tc.inputLen)

		res := svc.Sign(context.Background(), header, claims, header.Kid)

		require.True(t, res.OK(), "%+v", res.Failure)
		assert.Equal(t, tc.want, rec.lastType, "input of %d bytes", tc.inputLen)
		assert.Equal(t, tc.msgLen, rec.lastLen)
	}
}

func TestService_RoundTrip(t *testing.T) {
	signer := newLocalSigner(t)
	m := NewMetrics(prometheus.NewRegistry())
	svc := NewService(signer, WithLogger(quietLogger()), WithMetrics(m))

	for name, size := range map[string]int{"raw": 10, "digest": 6000} {
		t.Run(name, func(t *testing.T) {
			claims := map[string]any{
				"sub":  "urn:uuid:1",
				"nbf":  float64(1700000000),
				"blob": strings.Repeat("a", size),
				"vc":   map[string]any{"type": []any{"VerifiableCredential", "IdentityCheckCredential"}},
			}

			res := svc.Sign(context.Background(), NewHeader("key-1"), claims, "key-1")
			require.True(t, res.OK(), "%+v", res.Failure)
			assert.Len(t, strings.Split(res.Token, "."), 3)

			got, err := Verify(res.Token, signer.PublicKey())
			require.NoError(t, err)
			assert.Equal(t, claims, map[string]any(got))
		})
	}

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Requests.WithLabelValues("RAW", "ok")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.Requests.WithLabelValues("DIGEST", "ok")))
}

func TestService_Header(t *testing.T) {
	svc := NewService(newLocalSigner(t), WithLogger(quietLogger()))

	res := svc.Sign(context.Background(), NewHeader("key-1"), map[string]any{"a": 1}, "key-1")
	require.True(t, res.OK())

	raw, err := base64.RawURLEncoding.DecodeString(strings.Split(res.Token, ".")[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"alg":"ES256","typ":"JWT","kid":"key-1"}`, string(raw))
}

func TestService_FailuresAreResults(t *testing.T) {
	cases := map[string]struct {
		signer Signer
		keyID  string
		want   string
		code   dErrors.Code
	}{
		"signer error": {
			signer: signerFunc(func(context.Context, string, []byte, MessageType) ([]byte, error) {
				return nil, dErrors.New(dErrors.CodeSigning, "signing service returned no signature")
			}),
			keyID: "k",
			want:  "JwtSigningService : signing service returned no signature",
			code:  dErrors.CodeSigning,
		},
		"empty signature": {
			signer: signerFunc(func(context.Context, string, []byte, MessageType) ([]byte, error) {
				return nil, nil
			}),
			keyID: "k",
			want:  "JwtSigningService : signer returned no signature",
			code:  dErrors.CodeSigning,
		},
		"garbage signature": {
			signer: signerFunc(func(context.Context, string, []byte, MessageType) ([]byte, error) {
				return []byte("not der"), nil
			}),
			keyID: "k",
			want:  "JwtSigningService : signer returned an unparsable signature: invalid DER ECDSA signature",
			code:  dErrors.CodeSigning,
		},
		"panic": {
			signer: signerFunc(func(context.Context, string, []byte, MessageType) ([]byte, error) {
				panic("boom")
			}),
			keyID: "k",
			want:  "JwtSigningService : boom",
			code:  dErrors.CodeSigning,
		},
		"missing key id": {
			signer: newLocalSigner(t),
			want:   "JwtSigningService : signing key id is required",
			code:   dErrors.CodeValidation,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := NewService(tc.signer, WithLogger(quietLogger())).
				Sign(context.Background(), NewHeader(tc.keyID), map[string]any{"a": 1}, tc.keyID)

			assert.False(t, res.OK())
			assert.Empty(t, res.Token)
			assert.Equal(t, tc.want, res.Failure.Error)
			assert.Equal(t, tc.code, res.Code)
		})
	}

	t.Run("unencodable claims", func(t *testing.T) {
		res := NewService(newLocalSigner(t), WithLogger(quietLogger())).
			Sign(context.Background(), NewHeader("k"), map[string]any{"c": make(chan int)}, "k")
		require.False(t, res.OK())
		assert.True(t, strings.HasPrefix(res.Failure.Error, "JwtSigningService : failed to encode claims"))
	})
}

func TestLocalSigner(t *testing.T) {
	signer := newLocalSigner(t)

	_, err := signer.Sign(context.Background(), "k", []byte("short"), MessageDigest)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeSigning))

	der, err := x509.MarshalPKCS8PrivateKey(signer.key)
	require.NoError(t, err)
	parsed, err := NewLocalSignerFromPEM(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	require.NoError(t, err)
	assert.True(t, parsed.PublicKey().Equal(signer.PublicKey()))

	_, err = NewLocalSignerFromPEM([]byte("not pem"))
	assert.Error(t, err)
}

func TestRemoteSigner(t *testing.T) {
	local := newLocalSigner(t)

	t.Run("signs through the service", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sign", r.URL.Path)
			var req signRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "key-1", req.KeyID)
			assert.Equal(t, AlgorithmECDSASHA256, req.SigningAlgorithm)

			msg, err := base64.StdEncoding.DecodeString(req.Message)
			require.NoError(t, err)
			sig, err := local.Sign(r.Context(), req.KeyID, msg, req.MessageType)
			require.NoError(t, err)

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(signResponse{Signature: base64.StdEncoding.EncodeToString(sig)})
		}))
		defer srv.Close()

		svc := NewService(NewRemoteSigner(srv.URL, 0), WithLogger(quietLogger()))
		res := svc.Sign(context.Background(), NewHeader("key-1"), map[string]any{"sub": "x"}, "key-1")
		require.True(t, res.OK(), "%+v", res.Failure)

		claims, err := Verify(res.Token, local.PublicKey())
		require.NoError(t, err)
		assert.Equal(t, "x", claims["sub"])
	})

	for name, tc := range map[string]struct {
		status      int
		contentType string
		body        string
		want        string
	}{
		"missing signature": {http.StatusOK, "application/json", `{}`, "signing service returned no signature"},
		"non json error":    {http.StatusBadGateway, "text/plain", "bad gateway", "signing service returned a non-JSON response (status 502)"},
		"json error":        {http.StatusBadRequest, "application/json", `{"message":"key disabled"}`, "signing service error: key disabled"},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := NewRemoteSigner(srv.URL, 0).Sign(context.Background(), "k", []byte("m"), MessageRaw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeSigning))
			assert.Equal(t, tc.want, err.Error())
		})
	}

	t.Run("unreachable service", func(t *testing.T) {
		_, err := NewRemoteSigner("http://127.0.0.1:1", 0).Sign(context.Background(), "k", []byte("m"), MessageRaw)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDependency))
		assert.False(t, errors.Is(err, context.Canceled))
	})
}
