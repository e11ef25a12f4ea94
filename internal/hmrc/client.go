// Package hmrc calls the tax authority's question source and answer verifier.
//
// Every non-200 or non-JSON response becomes a coded dependency error:
//
//	401 -> CodeUnauthorized (credential rejected)
//	404 -> CodeNotFound (malformed request or NINO mismatch)
//	any other status, transport failure or timeout -> CodeDependency
//
// Nothing is retried here; the orchestrator owns retry and backoff.
package hmrc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "kbv/pkg/domain-errors"
	"kbv/pkg/requestcontext"
)

const (
	endpointQuestions = "questions"
	endpointAnswers   = "answers"

	// maxErrorBody bounds how much of an error response is kept for logs.
	maxErrorBody = 512
)

// client holds the transport shared by both endpoints.
type client struct {
	http      *http.Client
	userAgent string
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
}

// Option configures a client.
type Option func(*client)

// WithHTTPClient replaces the HTTP client. Its timeout is the call timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *client) {
		c.http = h
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *client) {
		c.http = &http.Client{Timeout: d}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *client) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *client) {
		c.metrics = m
	}
}

func newClient(opts ...Option) client {
	c := client{
		http:      &http.Client{Timeout: 10 * time.Second},
		userAgent: "kbv-credential-issuer",
		logger:    slog.Default(),
		tracer:    otel.Tracer("kbv/internal/hmrc"),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// postJSON sends body to url and decodes a 200 JSON response into out.
func (c *client) postJSON(ctx context.Context, endpoint, url, bearer string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "hmrc."+endpoint, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	payload, err := json.Marshal(body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode "+endpoint+" request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build "+endpoint+" request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.observe(endpoint, 0, time.Since(start).Seconds())
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport error")
		return dErrors.Wrap(err, dErrors.CodeDependency, endpoint+" request failed")
	}
	defer resp.Body.Close()
	c.metrics.observe(endpoint, resp.StatusCode, time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "hmrc call returned error status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"request_id", requestcontext.RequestID(ctx),
			"body", string(snippet),
		)
		span.SetStatus(codes.Error, resp.Status)
		return statusError(endpoint, resp.StatusCode)
	}

	if !isJSON(resp.Header.Get("Content-Type")) {
		span.SetStatus(codes.Error, "unexpected content type")
		return dErrors.New(dErrors.CodeDependency,
			fmt.Sprintf("%s returned unexpected content type %q", endpoint, resp.Header.Get("Content-Type")))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		span.SetStatus(codes.Error, "malformed body")
		return dErrors.Wrap(err, dErrors.CodeDependency, endpoint+" returned a malformed body")
	}
	return nil
}

func statusError(endpoint string, status int) error {
	switch status {
	case http.StatusUnauthorized:
		return dErrors.New(dErrors.CodeUnauthorized, endpoint+" rejected the bearer credential")
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, endpoint+" request was malformed or the NINO did not match")
	default:
		return dErrors.New(dErrors.CodeDependency, fmt.Sprintf("%s returned status %d", endpoint, status))
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
