package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the engine's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	sends     *prometheus.CounterVec
	runs      *prometheus.CounterVec
	dirWrites *prometheus.CounterVec
	active    prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg when reg is
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castbot",
			Subsystem: "broadcast",
			Name:      "sends_total",
			Help:      "Per-recipient send outcomes.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castbot",
			Subsystem: "broadcast",
			Name:      "runs_total",
			Help:      "Broadcast runs by result.",
		}, []string{"result"}),
		dirWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castbot",
			Subsystem: "broadcast",
			Name:      "directory_writes_total",
			Help:      "Reachability writes to the recipient directory.",
		}, []string{"op", "result"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "castbot",
			Subsystem: "broadcast",
			Name:      "active_runs",
			Help:      "Runs currently in the dispatch loop.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sends, m.runs, m.dirWrites, m.active)
	}
	return m
}

func (m *Metrics) send(k OutcomeKind) {
	if m == nil {
		return
	}
	m.sends.WithLabelValues(k.String()).Inc()
}

func (m *Metrics) run(result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
}

func (m *Metrics) directoryWrite(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.dirWrites.WithLabelValues(op, result).Inc()
}

func (m *Metrics) runStarted() {
	if m != nil {
		m.active.Inc()
	}
}

func (m *Metrics) runDone() {
	if m != nil {
		m.active.Dec()
	}
}
