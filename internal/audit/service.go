// Package audit builds KBV audit records from the session and hands them to
// the event publisher at each verification checkpoint.
package audit

import (
	"context"
	"log/slog"

	"kbv/internal/session/models"
	dErrors "kbv/pkg/domain-errors"
	platformaudit "kbv/pkg/platform/audit"
	"kbv/pkg/requestcontext"
)

// Publisher accepts built events. *publisher.Publisher satisfies it.
type Publisher interface {
	Emit(ctx context.Context, event platformaudit.Event) error
}

// Emitter builds and sends audit events. Events from one caller are sent in
// call order; the publisher preserves that order through to the sink.
type Emitter struct {
	publisher   Publisher
	componentID string
	logger      *slog.Logger
}

// Option configures the Emitter.
type Option func(*Emitter)

// WithLogger sets the logger used for swallowed emission failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Emitter) {
		e.logger = logger
	}
}

// NewEmitter creates an emitter stamping every event with componentID.
func NewEmitter(publisher Publisher, componentID string, opts ...Option) *Emitter {
	e := &Emitter{
		publisher:   publisher,
		componentID: componentID,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EventOption adds optional blocks to a single event.
type EventOption func(*platformaudit.Event)

// WithNINO adds the restricted block carrying the subject's NINO.
func WithNINO(nino string) EventOption {
	return func(ev *platformaudit.Event) {
		if nino == "" {
			return
		}
		ev.Restricted = &platformaudit.Restricted{
			SocialSecurityRecord: []platformaudit.PersonalNumber{{PersonalNumber: nino}},
		}
	}
}

// WithExtensions adds the extensions block.
func WithExtensions(ext *platformaudit.Extensions) EventOption {
	return func(ev *platformaudit.Event) {
		ev.Extensions = ext
	}
}

// Build assembles an event for sess. Every field of the user block is
// required; a missing one is a caller error.
func (e *Emitter) Build(ctx context.Context, name EventName, sess *models.Session, opts ...EventOption) (platformaudit.Event, error) {
	if sess == nil {
		return platformaudit.Event{}, dErrors.New(dErrors.CodeInvariantViolation, "audit event requires a session")
	}
	user := platformaudit.User{
		UserID:               sess.Subject,
		IPAddress:            sess.ClientIPAddress,
		SessionID:            sess.SessionID,
		PersistentSessionID:  sess.PersistentSessionID,
		GovukSigninJourneyID: sess.ClientSessionID,
	}
	if missing := missingUserField(user); missing != "" {
		return platformaudit.Event{}, dErrors.New(dErrors.CodeInvariantViolation, "audit user block missing "+missing)
	}

	ev := platformaudit.Event{
		EventName:   string(name),
		ComponentID: e.componentID,
		User:        user,
	}
	ev.Stamp(requestcontext.Now(ctx))
	for _, opt := range opts {
		opt(&ev)
	}
	return ev, nil
}

// Emit builds and sends an event. Failures are logged and returned so callers
// can surface them as warnings; they never change the business outcome.
func (e *Emitter) Emit(ctx context.Context, name EventName, sess *models.Session, opts ...EventOption) error {
	ev, err := e.Build(ctx, name, sess, opts...)
	if err == nil {
		err = e.publisher.Emit(ctx, ev)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "audit event not emitted",
			"event_name", string(name),
			"session_id", sessionID(sess),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return err
	}
	return nil
}

func missingUserField(u platformaudit.User) string {
	switch {
	case u.UserID == "":
		return "user_id"
	case u.IPAddress == "":
		return "ip_address"
	case u.SessionID == "":
		return "session_id"
	case u.PersistentSessionID == "":
		return "persistent_session_id"
	case u.GovukSigninJourneyID == "":
		return "govuk_signin_journey_id"
	}
	return ""
}

func sessionID(sess *models.Session) string {
	if sess == nil {
		return ""
	}
	return sess.SessionID
}
