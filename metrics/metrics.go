package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type DispenserMetrics struct {
	allocations *prometheus.CounterVec
	conflicts   prometheus.Counter
	redemptions *prometheus.CounterVec
	ingested    *prometheus.CounterVec
	restocked   prometheus.Counter
	stock       *prometheus.GaugeVec
}

var (
	dispenserOnce     sync.Once
	dispenserRegistry *DispenserMetrics
)

// Dispenser returns the process-wide metrics registry, registering it on first use.
func Dispenser() *DispenserMetrics {
	dispenserOnce.Do(func() {
		dispenserRegistry = &DispenserMetrics{
			allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dispenser_allocations_total",
				Help: "Allocation requests by terminal outcome.",
			}, []string{"outcome"}),
			conflicts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dispenser_claim_conflicts_total",
				Help: "Claim attempts that lost a race and were retried.",
			}),
			redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dispenser_referral_redemptions_total",
				Help: "Referral redemption attempts by result.",
			}, []string{"result"}),
			ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "dispenser_ingested_entries_total",
				Help: "Ingested entries, added or skipped.",
			}, []string{"result"}),
			restocked: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "dispenser_restocked_records_total",
				Help: "Records returned to the pool by restocks.",
			}),
			stock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "dispenser_pool_records",
				Help: "Records in the pool by status.",
			}, []string{"status"}),
		}
		prometheus.MustRegister(
			dispenserRegistry.allocations,
			dispenserRegistry.conflicts,
			dispenserRegistry.redemptions,
			dispenserRegistry.ingested,
			dispenserRegistry.restocked,
			dispenserRegistry.stock,
		)
	})
	return dispenserRegistry
}

func (m *DispenserMetrics) RecordAllocation(outcome string) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(outcome).Inc()
}

func (m *DispenserMetrics) RecordConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *DispenserMetrics) RecordRedemption(result string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(result).Inc()
}

func (m *DispenserMetrics) RecordIngest(added, skipped int) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues("added").Add(float64(added))
	m.ingested.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *DispenserMetrics) RecordRestock(n int64) {
	if m == nil {
		return
	}
	m.restocked.Add(float64(n))
}

// SetStock publishes the current pool size per status.
func (m *DispenserMetrics) SetStock(available, claimed int64) {
	if m == nil {
		return
	}
	m.stock.WithLabelValues("available").Set(float64(available))
	m.stock.WithLabelValues("claimed").Set(float64(claimed))
}
