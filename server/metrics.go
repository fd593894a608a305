package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "voidofdreams"
	metricsSubsystem = "server"
)

type metrics struct {
	clients          prometheus.Gauge
	packetsReceived  *prometheus.CounterVec
	packetsRelayed   *prometheus.CounterVec
	connectsRejected prometheus.Counter
	stalled          prometheus.Counter
	malformed        *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "clients",
			Help:      "Number of connected clients, registered or not",
		}),

		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "packets_received_total",
			Help:      "Packets received by type and transport",
		}, []string{"type", "transport"}),

		packetsRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "packets_relayed_total",
			Help:      "Packets sent to clients by type",
		}, []string{"type"}),

		connectsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "connects_rejected_total",
			Help:      "Connect packets refused because the username was taken or empty",
		}),

		stalled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "stalled_clients_total",
			Help:      "Clients dropped because a stream write to them timed out",
		}),

		malformed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "malformed_packets_total",
			Help:      "Packets that could not be decoded, by transport",
		}, []string{"transport"}),
	}
}
