// Package kafka sends audit events to a Kafka topic.
//
// Records are keyed by session id so every event of one verification attempt
// lands on the same partition and keeps its emission order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "kbv/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Sink produces one record per audit event and waits for the broker ack.
type Sink struct {
	producer Producer
	topic    string
}

func New(producer Producer, topic string) *Sink {
	return &Sink{producer: producer, topic: topic}
}

func (s *Sink) Send(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.User.SessionID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_name", Value: []byte(event.EventName)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
