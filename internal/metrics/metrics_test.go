package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAccumulates(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("requests", nil, "Total requests")
	r.IncrementCounter("requests", nil, "Total requests")
	r.AddToCounter("requests", 3, nil, "Total requests")

	snap := r.GetSnapshot()
	require.Len(t, snap.Counters, 1)
	assert.Equal(t, "requests", snap.Counters[0].Name)
	assert.Equal(t, float64(5), snap.Counters[0].Value)
}

func TestCountersWithLabelsAreDistinct(t *testing.T) {
	r := NewRegistry()

	r.IncrementCounter("responses", map[string]string{"status": "200"}, "")
	r.IncrementCounter("responses", map[string]string{"status": "500"}, "")
	r.IncrementCounter("responses", map[string]string{"status": "200"}, "")

	snap := r.GetSnapshot()
	require.Len(t, snap.Counters, 2)

	total := 0.0
	for _, c := range snap.Counters {
		total += c.Value
	}
	assert.Equal(t, 3.0, total)
}

func TestGaugeOverwrites(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("pending", 5, nil, "")
	r.SetGauge("pending", 2, nil, "")

	snap := r.GetSnapshot()
	require.Len(t, snap.Gauges, 1)
	assert.Equal(t, float64(2), snap.Gauges[0].Value)
}

func TestTimerStatistics(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("op", 10*time.Millisecond, nil, "")
	r.RecordTimer("op", 20*time.Millisecond, nil, "")
	r.RecordTimer("op", 30*time.Millisecond, nil, "")

	snap := r.GetSnapshot()
	timer, ok := snap.Timers["op"]
	require.True(t, ok)
	assert.Equal(t, int64(3), timer.Count)
	assert.InDelta(t, 10.0, timer.Min, 0.5)
	assert.InDelta(t, 30.0, timer.Max, 0.5)
	assert.InDelta(t, 20.0, timer.Average, 0.5)
}

func TestSnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("requests", nil, "")

	snap := r.GetSnapshot()
	snap.Counters[0].Value = 999

	fresh := r.GetSnapshot()
	assert.Equal(t, float64(1), fresh.Counters[0].Value)
}

func TestReset(t *testing.T) {
	r := NewRegistry()
	r.IncrementCounter("requests", nil, "")
	r.SetGauge("pending", 1, nil, "")
	r.RecordTimer("op", time.Millisecond, nil, "")

	r.Reset()

	snap := r.GetSnapshot()
	assert.Empty(t, snap.Counters)
	assert.Empty(t, snap.Gauges)
	assert.Empty(t, snap.Timers)
}

func TestMetricKeyLabelOrderIndependent(t *testing.T) {
	a := metricKey("m", map[string]string{"x": "1", "y": "2"})
	b := metricKey("m", map[string]string{"y": "2", "x": "1"})
	assert.Equal(t, a, b)
}
