package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"kbv/internal/platform/config"
)

// NewClient builds a producer client that waits for all in-sync replicas.
// Returns nil if no brokers are configured.
func NewClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, cfg config.KafkaConfig) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, cfg.Partitions, cfg.ReplicationFactor, nil, cfg.AuditTopic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", cfg.AuditTopic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
