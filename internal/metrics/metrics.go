// Package metrics provides Prometheus instrumentation for the chat client.
// It exposes counters for frame throughput and drop reasons, a counter for
// room switches, and a gauge reflecting connection state.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FramesReceived counts inbound frames routed into client state, labeled
	// by frame type: "history", "chat", or "typing".
	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatclient_frames_received_total",
		Help: "Total number of inbound frames routed into client state",
	}, []string{"type"})

	// FramesDropped counts inbound events discarded before routing, labeled
	// by reason: "stale" (superseded connection generation), "malformed"
	// (undecodable payload), or "unknown_type".
	FramesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatclient_frames_dropped_total",
		Help: "Total number of inbound events discarded before routing",
	}, []string{"reason"})

	// MessagesSent counts outbound frames written to the connection, labeled
	// by type: "chat" or "typing".
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatclient_messages_sent_total",
		Help: "Total number of outbound frames written to the connection",
	}, []string{"type"})

	// RoomSwitches counts completed room selections that opened a connection.
	RoomSwitches = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chatclient_room_switches_total",
		Help: "Total number of room selections that opened a connection",
	})

	// Connected reflects whether a live room connection exists (1 or 0).
	Connected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chatclient_connected",
		Help: "Whether a live room connection exists",
	})
)

func init() {
	prometheus.MustRegister(
		FramesReceived,
		FramesDropped,
		MessagesSent,
		RoomSwitches,
		Connected,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
