package qalarm

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

/*
Metrics records sampling activity. The plain fields are a snapshot readable
through ExportMetrics; the prometheus collectors are exported once
Register has been called with a registry.
*/
type Metrics struct {
	mu sync.RWMutex

	RunCount          int64
	FailedRuns        int64
	ShotCount         int64
	TotalRunTime      time.Duration
	AverageRunLatency time.Duration
	P95RunLatency     time.Duration
	Outcomes          map[string]int64

	latencyWindow []time.Duration
	windowSize    int

	shotsTotal  *prometheus.CounterVec
	runsTotal   *prometheus.CounterVec
	runDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes:      make(map[string]int64),
		latencyWindow: make([]time.Duration, 0, 1000),
		windowSize:    1000,
		shotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qalarm",
			Name:      "shots_total",
			Help:      "Program executions by recorded outcome.",
		}, []string{"outcome"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "qalarm",
			Name:      "runs_total",
			Help:      "Sampling runs by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "qalarm",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a complete sampling run.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
}

// Register adds the collectors to reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.shotsTotal, m.runsTotal, m.runDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordRun(startTime time.Time, counts Counts, err error) {
	duration := time.Since(startTime)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.RunCount++
	m.TotalRunTime += duration
	m.runDuration.Observe(duration.Seconds())

	if err != nil {
		m.FailedRuns++
		m.runsTotal.WithLabelValues("error").Inc()
	} else {
		m.runsTotal.WithLabelValues("ok").Inc()
		for outcome, n := range counts {
			m.Outcomes[outcome] += int64(n)
			m.ShotCount += int64(n)
			m.shotsTotal.WithLabelValues(outcome).Add(float64(n))
		}
	}

	m.updateLatencyPercentiles(duration)
}

// updateLatencyPercentiles assumes m.mu is held.
func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageRunLatency = (m.AverageRunLatency*time.Duration(m.RunCount-1) + duration) / time.Duration(m.RunCount)

	m.latencyWindow = append(m.latencyWindow, duration)
	if len(m.latencyWindow) > m.windowSize {
		m.latencyWindow = m.latencyWindow[1:]
	}

	sorted := make([]time.Duration, len(m.latencyWindow))
	copy(sorted, m.latencyWindow)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	p95Index := int(float64(len(sorted)) * 0.95)
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}
	m.P95RunLatency = sorted[p95Index]
}

func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outcomes := make(map[string]int64, len(m.Outcomes))
	for k, v := range m.Outcomes {
		outcomes[k] = v
	}

	return map[string]interface{}{
		"run_count":   m.RunCount,
		"failed_runs": m.FailedRuns,
		"shot_count":  m.ShotCount,
		"avg_latency": m.AverageRunLatency.Microseconds(),
		"p95_latency": m.P95RunLatency.Microseconds(),
		"outcomes":    outcomes,
	}
}
