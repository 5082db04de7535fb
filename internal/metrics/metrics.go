// Package metrics counts what an aggregation run did with its input files.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder bundles run metrics on a private registry, so repeated runs and
// tests never collide on the global one.
type Recorder struct {
	Registry *prometheus.Registry

	FilesTotal   *prometheus.CounterVec
	PeriodsTotal *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// New constructs and registers metrics.
func New() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meteragg_files_total",
				Help: "Input files by dialect and status",
			},
			[]string{"dialect", "status"},
		),
		PeriodsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meteragg_periods_total",
				Help: "Candidate periods by dialect and outcome",
			},
			[]string{"dialect", "outcome"},
		),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "meteragg_run_duration_seconds",
			Help:    "Aggregation run duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	r.Registry.MustRegister(r.FilesTotal, r.PeriodsTotal, r.RunDuration)
	return r
}

// File counts one input file.
func (r *Recorder) File(dialect, status string) {
	r.FilesTotal.WithLabelValues(dialect, status).Inc()
}

// Period counts one candidate period.
func (r *Recorder) Period(dialect, outcome string) {
	r.PeriodsTotal.WithLabelValues(dialect, outcome).Inc()
}

// Run observes the duration of a finished run.
func (r *Recorder) Run(d time.Duration) {
	r.RunDuration.Observe(d.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
