package hmrc

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records third-party call latency and status.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// NewMetrics registers hmrc client metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_hmrc_requests_total",
			Help: "Third-party KBV API calls by endpoint and status (0 for transport errors)",
		}, []string{"endpoint", "status"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kbv_hmrc_request_duration_seconds",
			Help:    "Third-party KBV API call latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) observe(endpoint string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(endpoint).Observe(seconds)
}
