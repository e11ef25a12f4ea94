package signing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	dErrors "kbv/pkg/domain-errors"
)

// RemoteSigner calls the external asymmetric signing service.
type RemoteSigner struct {
	baseURL string
	http    *http.Client
}

// RemoteOption configures a RemoteSigner.
type RemoteOption func(*RemoteSigner)

// WithHTTPClient replaces the HTTP client used for signing calls.
func WithHTTPClient(h *http.Client) RemoteOption {
	return func(s *RemoteSigner) {
		s.http = h
	}
}

func NewRemoteSigner(baseURL string, timeout time.Duration, opts ...RemoteOption) *RemoteSigner {
	s := &RemoteSigner{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type signRequest struct {
	KeyID            string      `json:"keyId"`
	Message          string      `json:"message"`
	MessageType      MessageType `json:"messageType"`
	SigningAlgorithm string      `json:"signingAlgorithm"`
}

type signResponse struct {
	Signature string `json:"signature"`
	Message   string `json:"message"`
}

// Sign requests a DER signature over message.
func (s *RemoteSigner) Sign(ctx context.Context, keyID string, message []byte, messageType MessageType) ([]byte, error) {
	payload, err := json.Marshal(signRequest{
		KeyID:            keyID,
		Message:          base64.StdEncoding.EncodeToString(message),
		MessageType:      messageType,
		SigningAlgorithm: AlgorithmECDSASHA256,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode sign request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/sign", bytes.NewReader(payload))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build sign request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "signing service request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to read signing service response")
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	var out signResponse
	if mediaType != "application/json" || json.Unmarshal(body, &out) != nil {
		return nil, dErrors.New(dErrors.CodeSigning,
			fmt.Sprintf("signing service returned a non-JSON response (status %d)", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, dErrors.New(dErrors.CodeSigning, "signing service error: "+msg)
	}
	if out.Signature == "" {
		return nil, dErrors.New(dErrors.CodeSigning, "signing service returned no signature")
	}
	sig, err := base64.StdEncoding.DecodeString(out.Signature)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "signing service returned an undecodable signature")
	}
	return sig, nil
}
