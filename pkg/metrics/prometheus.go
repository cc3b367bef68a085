package metrics

import (
	"LPPLWatch/internal/domain/models"
	"LPPLWatch/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal     *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	clusters      *prometheus.GaugeVec
	purgedTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

var _ repository.Metrics = (*Recorder)(nil)

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpplwatch_instrument_runs_total",
				Help: "Instrument runs by outcome",
			},
			[]string{"symbol", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpplwatch_errors_total",
				Help: "Stage errors by kind",
			},
			[]string{"kind"},
		),
		clusters: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lpplwatch_signal_clusters",
				Help: "Clusters detected in the latest run",
			},
			[]string{"symbol", "label"},
		),
		purgedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lpplwatch_retention_purged_dates_total",
				Help: "Archive dates purged by retention",
			},
			[]string{"symbol"},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lpplwatch_stage_duration_seconds",
				Help:    "Duration of instrument run stages",
				Buckets: []float64{0.01, 0.05, 0.25, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage", "result"},
		),
	}
}

func (r *Recorder) RecordRun(symbol string, failed bool) {
	r.runsTotal.WithLabelValues(symbol, result(failed)).Inc()
}

func (r *Recorder) RecordStage(stage models.Stage, seconds float64, err error) {
	r.stageDuration.WithLabelValues(string(stage), result(err != nil)).Observe(seconds)
}

func (r *Recorder) RecordClusters(symbol string, label models.SignalLabel, n int) {
	r.clusters.WithLabelValues(symbol, string(label)).Set(float64(n))
}

func (r *Recorder) RecordPurged(symbol string, dates int) {
	r.purgedTotal.WithLabelValues(symbol).Add(float64(dates))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func result(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

// Noop discards everything.
type Noop struct{}

var _ repository.Metrics = Noop{}

func (Noop) RecordRun(string, bool) {}
func (Noop) RecordStage(models.Stage, float64, error) {}
func (Noop) RecordClusters(string, models.SignalLabel, int) {}
func (Noop) RecordPurged(string, int) {}
func (Noop) RecordError(string) {}
