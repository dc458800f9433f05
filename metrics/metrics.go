package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics exposes counters for reward operations and best-effort deliveries.
type LedgerMetrics struct {
	operations    *prometheus.CounterVec
	granted       *prometheus.CounterVec
	notifications *prometheus.CounterVec
	broadcasts    *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the process-wide metrics, registering them on first use.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hubcoin_reward_operations_total",
				Help: "Reward engine operations by name and outcome.",
			}, []string{"operation", "outcome"}),
			granted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hubcoin_rewards_granted_total",
				Help: "Units credited to accounts by currency and source.",
			}, []string{"currency", "source"}),
			notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hubcoin_notifications_total",
				Help: "Best-effort user notifications by outcome.",
			}, []string{"outcome"}),
			broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "hubcoin_broadcast_deliveries_total",
				Help: "Broadcast deliveries by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.granted,
			ledgerRegistry.notifications,
			ledgerRegistry.broadcasts,
		)
	})
	return ledgerRegistry
}

func (m *LedgerMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *LedgerMetrics) AddGranted(currency, source string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.granted.WithLabelValues(currency, source).Add(float64(amount))
}

func (m *LedgerMetrics) ObserveNotification(ok bool) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(outcomeLabel(ok)).Inc()
}

func (m *LedgerMetrics) ObserveBroadcast(ok bool) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(outcomeLabel(ok)).Inc()
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
