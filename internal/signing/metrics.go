package signing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts signing calls by mode and result.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers signing metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_signing_requests_total",
			Help: "JWS signing attempts by message type and result",
		}, []string{"message_type", "result"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kbv_signing_duration_seconds",
			Help:    "Latency of the signer call",
			Buckets: prometheus.DefBuckets,
		}, []string{"message_type"}),
	}
}

func (m *Metrics) observe(mode MessageType, result string, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(string(mode), result).Inc()
	m.Duration.WithLabelValues(string(mode)).Observe(seconds)
}
