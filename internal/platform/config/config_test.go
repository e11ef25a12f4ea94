package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("VC_ISSUER", "https://review-k.example")
	t.Setenv("HMRC_QUESTIONS_URL", "http://hmrc.test/questions")
	t.Setenv("HMRC_ANSWERS_URL", "http://hmrc.test/answers")
	t.Setenv("SIGNING_KEY_ID", "key-1")
	t.Setenv("SIGNING_SERVICE_URL", "http://signer.test")
}

func TestFromEnv(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		setRequired(t)

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, StoreMemory, cfg.Store)
		assert.Equal(t, "kbv-audit-events", cfg.Kafka.AuditTopic)
		assert.Equal(t, 10*time.Second, cfg.HMRC.Timeout)
		assert.Empty(t, cfg.Kafka.Brokers)
	})

	t.Run("parses lists and durations", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092,")
		t.Setenv("HMRC_TIMEOUT", "2s")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 2*time.Second, cfg.HMRC.Timeout)
	})

	t.Run("redis backend requires a url", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KBV_STORE_BACKEND", "redis")

		_, err := FromEnv()
		assert.ErrorContains(t, err, "REDIS_URL")
	})

	t.Run("durable backends require sessions and an audit stream", func(t *testing.T) {
		tests := []struct {
			name    string
			env     map[string]string
			wantErr string
		}{
			{
				name:    "postgres without redis",
				env:     map[string]string{"KBV_STORE_BACKEND": "postgres", "DATABASE_URL": "postgres://db/kbv", "KAFKA_BROKERS": "b1:9092"},
				wantErr: "REDIS_URL is required for sessions",
			},
			{
				name:    "postgres without kafka",
				env:     map[string]string{"KBV_STORE_BACKEND": "postgres", "DATABASE_URL": "postgres://db/kbv", "REDIS_URL": "redis://cache:6379"},
				wantErr: "KAFKA_BROKERS",
			},
			{
				name:    "redis without kafka",
				env:     map[string]string{"KBV_STORE_BACKEND": "redis", "REDIS_URL": "redis://cache:6379"},
				wantErr: "KAFKA_BROKERS",
			},
			{
				name: "postgres fully configured",
				env: map[string]string{
					"KBV_STORE_BACKEND": "postgres",
					"DATABASE_URL":      "postgres://db/kbv",
					"REDIS_URL":         "redis://cache:6379",
					"KAFKA_BROKERS":     "b1:9092",
				},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				setRequired(t)
				for k, v := range tt.env {
					t.Setenv(k, v)
				}

				_, err := FromEnv()
				if tt.wantErr == "" {
					assert.NoError(t, err)
					return
				}
				assert.ErrorContains(t, err, tt.wantErr)
			})
		}
	})

	t.Run("rejects unknown backend", func(t *testing.T) {
		setRequired(t)
		t.Setenv("KBV_STORE_BACKEND", "dynamo")

		_, err := FromEnv()
		assert.ErrorContains(t, err, "unknown store backend")
	})

	t.Run("requires a signer", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SIGNING_SERVICE_URL", "")

		_, err := FromEnv()
		assert.ErrorContains(t, err, "SIGNING_SERVICE_URL")
	})
}
