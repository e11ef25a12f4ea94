// Package logging writes audit events as structured log lines.
//
// It stands in for the Kafka sink when the process runs without brokers.
// Restricted data is never written.
package logging

import (
	"context"
	"log/slog"

	audit "kbv/pkg/platform/audit"
)

type Sink struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Send(ctx context.Context, event audit.Event) error {
	attrs := []slog.Attr{
		slog.String("event_name", event.EventName),
		slog.String("component_id", event.ComponentID),
		slog.String("session_id", event.User.SessionID),
		slog.String("govuk_signin_journey_id", event.User.GovukSigninJourneyID),
		slog.Int64("event_timestamp_ms", event.TimestampMs),
	}
	if ext := event.Extensions; ext != nil {
		if ext.Outcome != "" {
			attrs = append(attrs, slog.String("outcome", ext.Outcome))
		}
		if ext.TotalQuestionsAsked != nil {
			attrs = append(attrs, slog.Int("questions_asked", *ext.TotalQuestionsAsked))
		}
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
	return nil
}
