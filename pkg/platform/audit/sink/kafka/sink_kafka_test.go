package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "kbv/pkg/platform/audit"
)

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	var results kgo.ProduceResults
	for _, r := range rs {
		f.records = append(f.records, r)
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestSink_Send(t *testing.T) {
	producer := &fakeProducer{}
	sink := New(producer, "kbv-audit")

	event := audit.Event{
		Timestamp:   1700000000,
		TimestampMs: 1700000000123,
		EventName:   "IPV_HMRC_KBV_CRI_START",
		ComponentID: "https://review-k.example",
		User:        audit.User{SessionID: "session-1"},
	}
	require.NoError(t, sink.Send(context.Background(), event))

	require.Len(t, producer.records, 1)
	rec := producer.records[0]
	assert.Equal(t, "kbv-audit", rec.Topic)
	assert.Equal(t, []byte("session-1"), rec.Key)

	var decoded audit.Event
	require.NoError(t, json.Unmarshal(rec.Value, &decoded))
	assert.Equal(t, event, decoded)
}

func TestSink_SendPropagatesBrokerError(t *testing.T) {
	producer := &fakeProducer{err: errors.New("not leader for partition")}
	sink := New(producer, "kbv-audit")

	err := sink.Send(context.Background(), audit.Event{EventName: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not leader for partition")
}
