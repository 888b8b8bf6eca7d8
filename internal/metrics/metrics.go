// Package metrics exposes the pool/stage counters and gauges a fusion run
// produces. There is no HTTP listener here — metrics are periodically
// written to a textfile for a node-exporter-style textfile collector to
// pick up.
package metrics

import (
	"bytes"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Name:      "tasks_total",
			Help:      "Total tasks processed per stage and result",
		},
		[]string{"stage", "result"},
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fusion",
			Name:      "task_duration_seconds",
			Help:      "Duration of one task by stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	progressFraction = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fusion",
			Name:      "progress_fraction",
			Help:      "Current run progress fraction in [0,1]",
		},
	)

	runStage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fusion",
			Name:      "run_stage",
			Help:      "1 for the current lifecycle stage, 0 for others",
		},
		[]string{"stage"},
	)

	sourceSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fusion",
			Name:      "source_skipped_total",
			Help:      "Convert tasks skipped by the incremental-build source index",
		},
	)

	registry = prometheus.NewRegistry()
)

func init() {
	registry.MustRegister(tasksTotal, taskDuration, progressFraction, runStage, sourceSkipped)
}

// ObserveTask records one completed task for stage ("convert", "pdf_combine",
// "rtf_combine") with result ("success" or "error") and its duration.
func ObserveTask(stage, result string, dur time.Duration) {
	tasksTotal.WithLabelValues(stage, result).Inc()
	taskDuration.WithLabelValues(stage).Observe(dur.Seconds())
}

// SetProgress records the run's current (fraction, stage) pair, zeroing
// every other stage gauge so only the current stage reads 1.
func SetProgress(fraction float64, stage string) {
	progressFraction.Set(fraction)
	for _, s := range []string{"Created", "Converting", "Combining", "Completed"} {
		v := 0.0
		if s == stage {
			v = 1.0
		}
		runStage.WithLabelValues(s).Set(v)
	}
}

// IncSourceSkipped records one convert task skipped by SourceIndex.
func IncSourceSkipped() { sourceSkipped.Inc() }

// WriteTextfile writes the current metric values to path in Prometheus
// text exposition format, atomically (write-then-rename) so a textfile
// collector never observes a partial write.
func WriteTextfile(path string) error {
	families, err := registry.Gather()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return err
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
