package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	platformstrings "kbv/pkg/platform/strings"
)

// StoreBackend selects where question and answer records are persisted.
type StoreBackend string

const (
	StoreMemory   StoreBackend = "memory"
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server   Server
	Store    StoreBackend
	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
	HMRC     HMRCConfig
	Signing  SigningConfig
	// Issuer is the VC "iss" and the audit component id.
	Issuer string
	// RecordTTL bounds derived records when a session carries no expiry.
	RecordTTL time.Duration
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	LogLevel    string
}

// RedisConfig configures the go-redis client. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig configures the database/sql pool.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the audit event sink. No brokers means audit events
// go to the in-memory sink.
type KafkaConfig struct {
	Brokers           []string
	ClientID          string
	AuditTopic        string
	Partitions        int32
	ReplicationFactor int16
	AuditBuffer       int
}

// HMRCConfig points at the third-party question source and answer verifier.
type HMRCConfig struct {
	QuestionsURL string
	AnswersURL   string
	UserAgent    string
	Timeout      time.Duration
}

// SigningConfig selects the asymmetric signer. When ServiceURL is set the
// remote signing service is used; otherwise LocalKeyPEM must hold a P-256 key.
type SigningConfig struct {
	ServiceURL  string
	KeyID       string
	LocalKeyPEM string
	Timeout     time.Duration
	// AdminToken guards POST /jwt/sign. Empty leaves the route unmounted.
	AdminToken string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Server: Server{
			Addr:        getEnv("KBV_ADDR", ":8080"),
			MetricsAddr: getEnv("KBV_METRICS_ADDR", ":9090"),
			LogLevel:    getEnv("KBV_LOG_LEVEL", "info"),
		},
		Store: StoreBackend(getEnv("KBV_STORE_BACKEND", string(StoreMemory))),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:           platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			ClientID:          getEnv("KAFKA_CLIENT_ID", "kbv"),
			AuditTopic:        getEnv("AUDIT_TOPIC", "kbv-audit-events"),
			Partitions:        int32(getInt("AUDIT_TOPIC_PARTITIONS", 3)),
			ReplicationFactor: int16(getInt("AUDIT_TOPIC_REPLICATION", 1)),
			AuditBuffer:       getInt("AUDIT_BUFFER", 0),
		},
		HMRC: HMRCConfig{
			QuestionsURL: os.Getenv("HMRC_QUESTIONS_URL"),
			AnswersURL:   os.Getenv("HMRC_ANSWERS_URL"),
			UserAgent:    getEnv("HMRC_USER_AGENT", "kbv-credential-issuer"),
			Timeout:      getDuration("HMRC_TIMEOUT", 10*time.Second),
		},
		Signing: SigningConfig{
			ServiceURL:  os.Getenv("SIGNING_SERVICE_URL"),
			KeyID:       os.Getenv("SIGNING_KEY_ID"),
			LocalKeyPEM: os.Getenv("SIGNING_LOCAL_KEY_PEM"),
			Timeout:     getDuration("SIGNING_TIMEOUT", 5*time.Second),
			AdminToken:  os.Getenv("SIGNING_ADMIN_TOKEN"),
		},
		Issuer:    os.Getenv("VC_ISSUER"),
		RecordTTL: getDuration("RECORD_TTL", 2*time.Hour),
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the process cannot start with.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for store backend %q", c.Store)
		}
	case StorePostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for store backend %q", c.Store)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store)
	}
	if c.Store != StoreMemory {
		// sessions are written by another service into redis; audit has to leave the process
		if c.Redis.URL == "" {
			return fmt.Errorf("REDIS_URL is required for sessions with store backend %q", c.Store)
		}
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for store backend %q", c.Store)
		}
	}
	if c.Issuer == "" {
		return fmt.Errorf("VC_ISSUER is required")
	}
	if c.HMRC.QuestionsURL == "" || c.HMRC.AnswersURL == "" {
		return fmt.Errorf("HMRC_QUESTIONS_URL and HMRC_ANSWERS_URL are required")
	}
	if c.Signing.KeyID == "" {
		return fmt.Errorf("SIGNING_KEY_ID is required")
	}
	if c.Signing.ServiceURL == "" && c.Signing.LocalKeyPEM == "" {
		return fmt.Errorf("one of SIGNING_SERVICE_URL or SIGNING_LOCAL_KEY_PEM is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
