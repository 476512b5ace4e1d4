package update

import "github.com/prometheus/client_golang/prometheus"

// Metrics exports update lifecycle state to Prometheus.
type Metrics struct {
	checks   *prometheus.CounterVec
	phase    *prometheus.GaugeVec
	progress prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoupdate_checks_total",
				Help: "Completed release checks by result",
			},
			[]string{"result"},
		),
		phase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autoupdate_phase",
				Help: "Current update phase (1 for the active phase)",
			},
			[]string{"phase"},
		),
		progress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autoupdate_progress_percent",
				Help: "Progress of the current download or install",
			},
		),
	}
	reg.MustRegister(m.checks, m.phase, m.progress)
	m.setPhase(CheckingForUpdate())
	return m
}

// Attach registers the metrics as an observer of cell.
func (m *Metrics) Attach(cell *StatusCell) {
	m.setPhase(cell.Load())
	cell.Observe(m.observe)
}

func (m *Metrics) observe(prev, next Status) {
	if prev.Phase == PhaseCheckingForUpdate {
		switch next.Phase {
		case PhaseUpToDate:
			m.checks.WithLabelValues("up_to_date").Inc()
		case PhaseDownloading:
			m.checks.WithLabelValues("update_available").Inc()
		}
	}
	m.setPhase(next)
}

func (m *Metrics) setPhase(s Status) {
	for _, p := range Phases {
		v := 0.0
		if p == s.Phase {
			v = 1
		}
		m.phase.WithLabelValues(p.String()).Set(v)
	}
	if s.HasProgress() {
		m.progress.Set(s.Progress)
	} else if s.IsTerminal() {
		m.progress.Set(100)
	} else {
		m.progress.Set(0)
	}
}
