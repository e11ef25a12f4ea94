package signing

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	dErrors "kbv/pkg/domain-errors"
)

// MessageType tells the signer whether message is the raw signing input or
// its SHA-256 digest.
type MessageType string

const (
	MessageRaw    MessageType = "RAW"
	MessageDigest MessageType = "DIGEST"
)

// AlgorithmECDSASHA256 is the only signing algorithm used.
const AlgorithmECDSASHA256 = "ECDSA_SHA_256"

// Signer produces a DER-encoded ECDSA P-256 / SHA-256 signature.
type Signer interface {
	Sign(ctx context.Context, keyID string, message []byte, messageType MessageType) ([]byte, error)
}

// LocalSigner signs with an in-process P-256 key. It honours the same raw and
// digest contract as the remote signing service.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalSigner wraps a P-256 private key.
func NewLocalSigner(key *ecdsa.PrivateKey) (*LocalSigner, error) {
	if key == nil || key.Curve != elliptic.P256() {
		return nil, errors.New("local signer requires a P-256 key")
	}
	return &LocalSigner{key: key}, nil
}

// NewLocalSignerFromPEM parses a PKCS#8 or SEC 1 EC private key.
func NewLocalSignerFromPEM(data []byte) (*LocalSigner, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block found in signing key")
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return NewLocalSigner(key)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse signing key: %w", err)
	}
	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("signing key is not an ECDSA key")
	}
	return NewLocalSigner(key)
}

// PublicKey returns the verification key.
func (s *LocalSigner) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

func (s *LocalSigner) Sign(_ context.Context, _ string, message []byte, messageType MessageType) ([]byte, error) {
	var digest []byte
	switch messageType {
	case MessageRaw:
		sum := sha256.Sum256(message)
		digest = sum[:]
	case MessageDigest:
		if len(message) != sha256.Size {
			return nil, dErrors.New(dErrors.CodeSigning, "digest must be a SHA-256 hash")
		}
		digest = message
	default:
		return nil, dErrors.New(dErrors.CodeSigning, "unknown message type "+string(messageType))
	}
	sig, err := ecdsa.SignASN1(rand.Reader, s.key, digest)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "local signing failed")
	}
	return sig, nil
}
