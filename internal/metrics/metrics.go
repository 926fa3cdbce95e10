// Package metrics defines the Prometheus collectors of qtshockd.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every qtshockd collector. It is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// FlashRunsTotal counts finished flash runs by outcome (success/failed)
	// and the stage the run ended in.
	FlashRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qtshockd_flash_runs_total",
			Help: "Total number of firmware flash runs.",
		},
		[]string{"outcome", "stage"},
	)

	// FlashDuration observes the wall time of flash runs.
	FlashDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "qtshockd_flash_duration_seconds",
			Help:    "Duration of firmware flash runs.",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"outcome"},
	)

	// FlashBytesWritten counts image bytes sent to devices.
	FlashBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "qtshockd_flash_bytes_written_total",
			Help: "Image bytes written to device flash.",
		},
	)

	// FlashInFlight is the number of endpoints currently being flashed.
	FlashInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qtshockd_flash_in_flight",
			Help: "Flash runs currently in progress.",
		},
	)

	// TriggerCallsTotal counts device control requests by interaction
	// (shock/vibrate/beep) and status (success/failed).
	TriggerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qtshockd_trigger_calls_total",
			Help: "Total number of device control requests.",
		},
		[]string{"interaction", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		FlashRunsTotal,
		FlashDuration,
		FlashBytesWritten,
		FlashInFlight,
		TriggerCallsTotal,
	)
}

// Outcome returns the label value for err.
func Outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}
