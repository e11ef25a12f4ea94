//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"kbv/internal/platform/config"
	audit "kbv/pkg/platform/audit"
	kafkasink "kbv/pkg/platform/audit/sink/kafka"
	"kbv/pkg/testutil/containers"
)

func TestAuditEventsReachTheTopicInOrder(t *testing.T) {
	rp := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := config.KafkaConfig{
		Brokers:           []string{rp.Broker},
		ClientID:          "kbv-test",
		AuditTopic:        "kbv-audit-test",
		Partitions:        3,
		ReplicationFactor: 1,
	}
	client, err := NewClient(cfg)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, EnsureTopic(ctx, client, cfg))
	require.NoError(t, EnsureTopic(ctx, client, cfg), "existing topic is not an error")

	sink := kafkasink.New(client, cfg.AuditTopic)
	names := []string{"IPV_HMRC_KBV_CRI_START", "IPV_HMRC_KBV_CRI_REQUEST_SENT", "IPV_HMRC_KBV_CRI_END"}
	for _, name := range names {
		require.NoError(t, sink.Send(ctx, audit.Event{
			EventName: name,
			User:      audit.User{SessionID: "s-1"},
		}))
	}

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(cfg.AuditTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []string
	for len(got) < len(names) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) {
			assert.Equal(t, "s-1", string(r.Key))
			var ev audit.Event
			require.NoError(t, json.Unmarshal(r.Value, &ev))
			got = append(got, ev.EventName)
		})
	}
	assert.Equal(t, names, got, "one key lands on one partition and keeps send order")
}
