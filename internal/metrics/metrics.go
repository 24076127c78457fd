// Package metrics exposes the hub's Prometheus instrumentation. This is
// ambient observability, not part of the presence/signaling contract itself.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the process-wide Prometheus collectors.
type Metrics struct {
	ConnectedPeers     prometheus.Gauge
	PresenceUsers      prometheus.Gauge
	VoiceRoomOccupancy prometheus.Gauge

	FriendRequestsSent     prometheus.Counter
	FriendRequestsAccepted prometheus.Counter
	InviteRedemptions      *prometheus.CounterVec
	EventQueueGCSweeps     prometheus.Counter
	EventsGCed             prometheus.Counter
}

// New creates and registers the collectors against the default registry.
func New() *Metrics {
	m := &Metrics{
		ConnectedPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_connected_peers",
			Help: "Number of currently open WebSocket connections.",
		}),
		PresenceUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_presence_users",
			Help: "Number of users currently online (at least one connection).",
		}),
		VoiceRoomOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalhub_voice_room_occupancy",
			Help: "Total voice peers across all active rooms.",
		}),
		FriendRequestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_friend_requests_sent_total",
			Help: "Friend requests created.",
		}),
		FriendRequestsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_friend_requests_accepted_total",
			Help: "Friend requests accepted, including mutual auto-accepts.",
		}),
		InviteRedemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalhub_invite_redemptions_total",
			Help: "Invite token redemption attempts by outcome.",
		}, []string{"outcome"}),
		EventQueueGCSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_event_queue_gc_sweeps_total",
			Help: "Number of times the event retention GC job has run.",
		}),
		EventsGCed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalhub_events_gced_total",
			Help: "Total events removed by retention GC.",
		}),
	}
	prometheus.MustRegister(
		m.ConnectedPeers,
		m.PresenceUsers,
		m.VoiceRoomOccupancy,
		m.FriendRequestsSent,
		m.FriendRequestsAccepted,
		m.InviteRedemptions,
		m.EventQueueGCSweeps,
		m.EventsGCed,
	)
	return m
}
