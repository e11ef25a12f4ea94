// Package audit defines the append-only audit record emitted at each
// verification checkpoint, and the sink contract records are sent through.
package audit

import (
	"context"
	"time"
)

// Event is an immutable audit record. It is emitted, never read back.
type Event struct {
	Timestamp   int64       `json:"timestamp"`
	TimestampMs int64       `json:"event_timestamp_ms"`
	EventName   string      `json:"event_name"`
	ComponentID string      `json:"component_id"`
	User        User        `json:"user"`
	Restricted  *Restricted `json:"restricted,omitempty"`
	Extensions  *Extensions `json:"extensions,omitempty"`
}

// User identifies the journey the event belongs to. All fields are required.
type User struct {
	UserID               string `json:"user_id"`
	IPAddress            string `json:"ip_address"`
	SessionID            string `json:"session_id"`
	PersistentSessionID  string `json:"persistent_session_id"`
	GovukSigninJourneyID string `json:"govuk_signin_journey_id"`
}

// Restricted carries PII that must only ever appear in the audit trail.
type Restricted struct {
	SocialSecurityRecord []PersonalNumber `json:"socialSecurityRecord,omitempty"`
}

// PersonalNumber wraps a NINO.
type PersonalNumber struct {
	PersonalNumber string `json:"personalNumber"`
}

// Extensions carries aggregate outcome data. Per-answer detail is never included.
type Extensions struct {
	Issuer                          string `json:"iss,omitempty"`
	Evidence                        any    `json:"evidence,omitempty"`
	Outcome                         string `json:"outcome,omitempty"`
	TotalQuestionsAsked             *int   `json:"totalQuestionsAsked,omitempty"`
	TotalQuestionsAnsweredCorrect   *int   `json:"totalQuestionsAnsweredCorrect,omitempty"`
	TotalQuestionsAnsweredIncorrect *int   `json:"totalQuestionsAnsweredIncorrect,omitempty"`
}

// Stamp sets both timestamp resolutions from t.
func (e *Event) Stamp(t time.Time) {
	e.Timestamp = t.Unix()
	e.TimestampMs = t.UnixMilli()
}

// Sink accepts one event per call.
type Sink interface {
	Send(ctx context.Context, event Event) error
}
