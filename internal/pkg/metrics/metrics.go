/*
Package metrics registers the Prometheus collectors of the room service and
exposes them over HTTP.
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planpoker"

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_total",
		Help:      "Room commands processed, by command type and outcome.",
	}, []string{"type", "outcome"})

	connections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections",
		Help:      "Open WebSocket connections.",
	})

	droppedDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dropped_deliveries_total",
		Help:      "Outbound messages dropped because the recipient was gone or its queue was full.",
	})

	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_apply_seconds",
		Help:      "Latency of atomic room store updates.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"type"})
)

// Handler exposes Prometheus metrics at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CommandProcessed counts one command; outcome is "ok" or an error label.
func CommandProcessed(command, outcome string) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

// ConnectionOpened increments the open connection gauge.
func ConnectionOpened() { connections.Inc() }

// ConnectionClosed decrements the open connection gauge.
func ConnectionClosed() { connections.Dec() }

// DeliveryDropped counts one undelivered outbound message.
func DeliveryDropped() { droppedDeliveries.Inc() }

// ObserveStore records how long a store update for command took.
func ObserveStore(command string, started time.Time) {
	storeLatency.WithLabelValues(command).Observe(time.Since(started).Seconds())
}
