package launcher

//
// Metrics definitions
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricStartsCount counts the calls to Start.
	metricStartsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "torch_launcher_starts_count",
		Help: "Total number of attempts to start tor",
	}, []string{"strategy", "result"})

	// metricExitsCount counts the times tor returned in this process.
	metricExitsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "torch_launcher_exits_count",
		Help: "Total number of times tor returned",
	}, []string{"strategy", "result"})

	// metricRunningGauge gauges whether tor is running in the background.
	metricRunningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "torch_launcher_running_gauge",
		Help: "Whether tor is running on a background goroutine",
	})
)

// observeExit updates metricExitsCount.
func observeExit(strategy Strategy, code int) {
	result := "ok"
	if code != 0 {
		result = "failed"
	}
	metricExitsCount.WithLabelValues(strategy.String(), result).Inc()
}
