// Package metrics exposes Prometheus collectors for exports and print jobs.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "htmlstrip",
			Name:      "exports_total",
			Help:      "Exports by mode and result",
		},
		[]string{"mode", "result"},
	)
	exportLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "htmlstrip",
			Name:      "export_duration_seconds",
			Help:      "Export duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	imagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "htmlstrip",
			Name:      "images_total",
			Help:      "Images produced by mode",
		},
		[]string{"mode"},
	)
	rasterizeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "htmlstrip",
			Name:      "rasterize_duration_seconds",
			Help:      "Duration of one rasterization call",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode", "result"},
	)
	printJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "htmlstrip",
			Name:      "print_jobs_total",
			Help:      "Print jobs by result",
		},
		[]string{"result"},
	)
	inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "htmlstrip",
			Name:      "exports_in_flight",
			Help:      "Exports currently running",
		},
	)

	initOnce sync.Once
)

// Init registers collectors. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(exportsTotal, exportLatency, imagesTotal, rasterizeLatency, printJobs, inFlight)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// Observer records exporter events. It satisfies htmlstrip.Observer.
type Observer struct{}

// Rasterized records the latency of one rasterization.
func (Observer) Rasterized(mode string, d time.Duration, err error) {
	rasterizeLatency.WithLabelValues(mode, result(err)).Observe(d.Seconds())
}

// Exported counts one export and the images it produced.
func (Observer) Exported(mode string, images int, d time.Duration, err error) {
	exportsTotal.WithLabelValues(mode, result(err)).Inc()
	exportLatency.WithLabelValues(mode).Observe(d.Seconds())
	if err == nil {
		imagesTotal.WithLabelValues(mode).Add(float64(images))
	}
}

// IncPrint counts one print request by outcome.
func IncPrint(err error) { printJobs.WithLabelValues(result(err)).Inc() }

// TrackInFlight increments the in-flight gauge and returns a func that
// decrements it.
func TrackInFlight() func() {
	inFlight.Inc()
	return inFlight.Dec
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
