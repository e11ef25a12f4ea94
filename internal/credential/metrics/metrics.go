package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for credential issuance.
type Metrics struct {
	Issued       *prometheus.CounterVec
	AuditWarning prometheus.Counter
}

// New registers credential metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kbv_credentials_issued_total",
			Help: "Verifiable credentials assembled, by verification score",
		}, []string{"verification_score"}),
		AuditWarning: f.NewCounter(prometheus.CounterOpts{
			Name: "kbv_credential_audit_warnings_total",
			Help: "Credentials returned although an audit event could not be emitted",
		}),
	}
}

func (m *Metrics) IncIssued(score string) {
	if m == nil {
		return
	}
	m.Issued.WithLabelValues(score).Inc()
}

func (m *Metrics) IncAuditWarning() {
	if m == nil {
		return
	}
	m.AuditWarning.Inc()
}
