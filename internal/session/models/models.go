// Package models holds the session and claimed identity a verification
// attempt runs against. Both are created by an upstream collaborator and are
// read-only here.
package models

import "time"

// Session is one verification attempt.
type Session struct {
	SessionID           string    `json:"sessionId"`
	ClientID            string    `json:"clientId"`
	Subject             string    `json:"subject"`
	State               string    `json:"state"`
	ClientSessionID     string    `json:"clientSessionId"`
	ClientIPAddress     string    `json:"clientIpAddress"`
	RedirectURI         string    `json:"redirectUri"`
	PersistentSessionID string    `json:"persistentSessionId"`
	AttemptCount        int       `json:"attemptCount"`
	CreatedAt           time.Time `json:"createdAt"`
	ExpiresAt           time.Time `json:"expiresAt"`
}

// ExpiryOr returns ExpiresAt, or now+ttl when the session carries none.
func (s *Session) ExpiryOr(now time.Time, ttl time.Duration) time.Time {
	if s.ExpiresAt.IsZero() {
		return now.Add(ttl)
	}
	return s.ExpiresAt
}

// PersonIdentity is the identity claimed for the session.
type PersonIdentity struct {
	SessionID  string      `json:"sessionId"`
	NINO       string      `json:"nino,omitempty"`
	Names      []Name      `json:"names"`
	BirthDates []BirthDate `json:"birthDates"`
	Addresses  []Address   `json:"addresses,omitempty"`
}

// Name is a list of typed name parts, passed through unmodified.
type Name struct {
	NameParts []NamePart `json:"nameParts"`
}

// NamePart is a single name component such as GivenName or FamilyName.
type NamePart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// BirthDate is an ISO-8601 date string.
type BirthDate struct {
	Value string `json:"value"`
}

// Address is a postal address from the claimed address history.
type Address struct {
	UPRN            string `json:"uprn,omitempty"`
	BuildingName    string `json:"buildingName,omitempty"`
	BuildingNumber  string `json:"buildingNumber,omitempty"`
	StreetName      string `json:"streetName,omitempty"`
	AddressLocality string `json:"addressLocality,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	AddressCountry  string `json:"addressCountry,omitempty"`
	ValidFrom       string `json:"validFrom,omitempty"`
	ValidUntil      string `json:"validUntil,omitempty"`
}
