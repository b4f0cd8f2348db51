package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records ledger entry-point activity segmented by module
// (token or escrow), operation and outcome.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rndr",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger operations segmented by module, operation and outcome.",
			}, []string{"module", "op", "outcome"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "rndr",
				Subsystem: "ledger",
				Name:      "failures_total",
				Help:      "Rejected ledger operations segmented by module and operation.",
			}, []string{"module", "op"}),
		}
		prometheus.MustRegister(ledgerRegistry.operations, ledgerRegistry.failures)
	})
	return ledgerRegistry
}

// Observe records one completed operation.
func (m *LedgerMetrics) Observe(module, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.failures.WithLabelValues(module, op).Inc()
	}
	m.operations.WithLabelValues(module, op, outcome).Inc()
}
