// Package metrics collects per-run Prometheus metrics and writes them to a
// node_exporter textfile.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wpaudit"

// Recorder holds the collectors of a single run. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	pages         *prometheus.CounterVec
	fetchSeconds  prometheus.Histogram
	missingVideos prometheus.Counter
	lastRun       prometheus.Gauge
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Pages processed, by outcome",
			},
			[]string{"outcome"},
		),
		fetchSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_seconds",
				Help:      "Legacy page fetch duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		missingVideos: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_videos_total",
				Help:      "Videos present on the legacy page but missing locally",
			},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last run finished",
			},
		),
	}
}

func (r *Recorder) Page(outcome string) {
	if r == nil {
		return
	}
	r.pages.WithLabelValues(outcome).Inc()
}

func (r *Recorder) Fetch(d time.Duration) {
	if r == nil {
		return
	}
	r.fetchSeconds.Observe(d.Seconds())
}

func (r *Recorder) MissingVideos(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.missingVideos.Add(float64(n))
}

// WriteTextfile stamps the finish time and writes every collector to path.
func (r *Recorder) WriteTextfile(path string, finished time.Time) error {
	if r == nil || path == "" {
		return nil
	}
	r.lastRun.Set(float64(finished.Unix()))
	return prometheus.WriteToTextfile(path, r.registry)
}
