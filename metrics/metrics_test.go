package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDispenserCounters(t *testing.T) {
	m := Dispenser()
	assert.Same(t, m, Dispenser())

	before := testutil.ToFloat64(m.allocations.WithLabelValues("success"))
	m.RecordAllocation("success")
	assert.Equal(t, before+1, testutil.ToFloat64(m.allocations.WithLabelValues("success")))

	m.SetStock(7, 3)
	assert.Equal(t, float64(7), testutil.ToFloat64(m.stock.WithLabelValues("available")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.stock.WithLabelValues("claimed")))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *DispenserMetrics
	m.RecordAllocation("success")
	m.RecordConflict()
	m.RecordIngest(1, 1)
	m.RecordRestock(2)
	m.SetStock(1, 1)
}
