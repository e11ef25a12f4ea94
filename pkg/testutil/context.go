package testutil

import (
	"net/http"
	"time"

	"kbv/internal/session/models"
)

// SessionHeader is the header the orchestrator uses to name the session.
const SessionHeader = "session-id"

// WithSession sets the session header on req.
func WithSession(req *http.Request, sessionID string) *http.Request {
	req.Header.Set(SessionHeader, sessionID)
	return req
}

// WithBearer sets a bearer credential on req.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// NewSession returns a fully populated session expiring an hour after now.
func NewSession(sessionID string, now time.Time) *models.Session {
	return &models.Session{
		SessionID:           sessionID,
		ClientID:            "ipv-core",
		Subject:             "urn:fdc:gov.uk:2022:subject-" + sessionID,
		State:               "state",
		ClientSessionID:     "journey-" + sessionID,
		ClientIPAddress:     "192.0.2.10",
		RedirectURI:         "https://orchestrator.example/callback",
		PersistentSessionID: "persistent-" + sessionID,
		AttemptCount:        1,
		CreatedAt:           now,
		ExpiresAt:           now.Add(time.Hour),
	}
}

// NewPersonIdentity returns a claimed identity with a NINO, one name and one birth date.
func NewPersonIdentity(sessionID string) *models.PersonIdentity {
	return &models.PersonIdentity{
		SessionID: sessionID,
		NINO:      "AA000003D",
		Names: []models.Name{{
			NameParts: []models.NamePart{
				{Type: "GivenName", Value: "Kenneth"},
				{Type: "FamilyName", Value: "Decerqueira"},
			},
		}},
		BirthDates: []models.BirthDate{{Value: "1965-07-08"}},
		Addresses: []models.Address{{
			BuildingNumber:  "8",
			StreetName:      "HADLEY ROAD",
			AddressLocality: "BATH",
			PostalCode:      "BA2 5AA",
			AddressCountry:  "GB",
		}},
	}
}
