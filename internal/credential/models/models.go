package models

import (
	sessionmodels "kbv/internal/session/models"
)

// Credential types.
const (
	TypeVerifiableCredential    = "VerifiableCredential"
	TypeIdentityCheckCredential = "IdentityCheckCredential"
	EvidenceTypeIdentityCheck   = "IdentityCheck"
)

// CheckDetail describes one knowledge-based check.
type CheckDetail struct {
	CheckMethod     string `json:"checkMethod"`
	KBVResponseMode string `json:"kbvResponseMode"`
	KBVQuality      int    `json:"kbvQuality"`
}

// KBVCheck is the record used for every passed or failed question.
var KBVCheck = CheckDetail{CheckMethod: "kbv", KBVResponseMode: "free_text", KBVQuality: 2}

// Evidence is the outcome of the knowledge-based check.
type Evidence struct {
	Type               string        `json:"type"`
	Txn                string        `json:"txn"`
	VerificationScore  int           `json:"verificationScore"`
	CI                 []string      `json:"ci"`
	CheckDetails       []CheckDetail `json:"checkDetails,omitempty"`
	FailedCheckDetails []CheckDetail `json:"failedCheckDetails,omitempty"`
}

// SocialSecurityRecord carries the NINO.
type SocialSecurityRecord struct {
	PersonalNumber string `json:"personalNumber"`
}

// CredentialSubject is the claimed identity, passed through unmodified.
type CredentialSubject struct {
	Name                 []sessionmodels.Name      `json:"name"`
	BirthDate            []sessionmodels.BirthDate `json:"birthDate"`
	SocialSecurityRecord []SocialSecurityRecord    `json:"socialSecurityRecord,omitempty"`
}

// VC is the "vc" claim.
type VC struct {
	Type              []string          `json:"type"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Evidence          []Evidence        `json:"evidence"`
}

// VerifiableCredential is the unsigned JWT claims set.
type VerifiableCredential struct {
	Sub string `json:"sub"`
	Nbf int64  `json:"nbf"`
	Iss string `json:"iss"`
	Jti string `json:"jti"`
	VC  VC     `json:"vc"`
}

// NewCheckDetails returns n identical KBV check records, or nil when n is zero.
func NewCheckDetails(n int) []CheckDetail {
	if n <= 0 {
		return nil
	}
	out := make([]CheckDetail, n)
	for i := range out {
		out[i] = KBVCheck
	}
	return out
}
