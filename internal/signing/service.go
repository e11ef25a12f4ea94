// Package signing produces compact ES256 JWS tokens through an external or
// local ECDSA P-256 signer.
package signing

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/platform/stepresult"
)

// Component names signing failures in the orchestrator result.
const Component = "JwtSigningService"

// MaxRawMessageSize is the largest signing input sent for raw signing. The
// signing service rejects larger raw messages, so they are digested first.
const MaxRawMessageSize = 4095

// SelectMessageType picks raw signing below 4096 bytes and digest signing at
// or above it.
func SelectMessageType(signingInputLen int) MessageType {
	if signingInputLen > MaxRawMessageSize {
		return MessageDigest
	}
	return MessageRaw
}

// Header is the protected JWS header.
type Header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ,omitempty"`
	Kid string `json:"kid,omitempty"`
}

// NewHeader returns the ES256 header for keyID.
func NewHeader(keyID string) Header {
	return Header{Alg: "ES256", Typ: "JWT", Kid: keyID}
}

// Result is either a compact JWS or a failure. It is never both.
// Code classifies the failure for transports that need a status.
type Result struct {
	Token   string
	Failure *stepresult.Failure
	Code    dErrors.Code
}

// OK reports whether a token was produced.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Service signs arbitrary header/claims pairs.
type Service struct {
	signer  Signer
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(signer Signer, opts ...Option) *Service {
	s := &Service{
		signer: signer,
		logger: slog.Default(),
		tracer: otel.Tracer("kbv/internal/signing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign returns header.payload.signature. Every failure, including a panic in
// the signer, is folded into Result.Failure.
func (s *Service) Sign(ctx context.Context, header, claims any, keyID string) Result {
	token, err := s.Token(ctx, header, claims, keyID)
	if err != nil {
		failure := stepresult.FromError(Component, err)
		return Result{Failure: &failure, Code: dErrors.CodeOf(err)}
	}
	return Result{Token: token}
}

// Token is Sign for in-process callers that want the coded error.
func (s *Service) Token(ctx context.Context, header, claims any, keyID string) (token string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dErrors.New(dErrors.CodeSigning, fmt.Sprintf("%v", r))
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "jws signing failed", "key_id", keyID, "error", err)
		}
	}()
	return s.sign(ctx, header, claims, keyID)
}

func (s *Service) sign(ctx context.Context, header, claims any, keyID string) (string, error) {
	if keyID == "" {
		return "", dErrors.New(dErrors.CodeValidation, "signing key id is required")
	}
	encodedHeader, err := encodeSegment(header)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "failed to encode header")
	}
	encodedClaims, err := encodeSegment(claims)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "failed to encode claims")
	}
	signingInput := encodedHeader + "." + encodedClaims

	mode := SelectMessageType(len(signingInput))
	message := []byte(signingInput)
	if mode == MessageDigest {
		sum := sha256.Sum256(message)
		message = sum[:]
	}

	ctx, span := s.tracer.Start(ctx, "signing.sign", trace.WithAttributes(
		attribute.String("signing.message_type", string(mode)),
		attribute.Int("signing.input_bytes", len(signingInput)),
	))
	defer span.End()

	start := time.Now()
	der, err := s.signer.Sign(ctx, keyID, message, mode)
	if err != nil {
		s.metrics.observe(mode, "error", time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "sign failed")
		return "", err
	}
	if len(der) == 0 {
		s.metrics.observe(mode, "error", time.Since(start).Seconds())
		span.SetStatus(codes.Error, "empty signature")
		return "", dErrors.New(dErrors.CodeSigning, "signer returned no signature")
	}
	sig, err := DERToJOSE(der, p256Size)
	if err != nil {
		s.metrics.observe(mode, "error", time.Since(start).Seconds())
		span.SetStatus(codes.Error, "bad signature encoding")
		return "", dErrors.Wrap(err, dErrors.CodeSigning, "signer returned an unparsable signature")
	}
	s.metrics.observe(mode, "ok", time.Since(start).Seconds())

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

func encodeSegment(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}
