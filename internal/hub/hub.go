// Package hub implements the in-memory coordination engine: connection and
// peer registry, presence fan-out, voice-room scheduling, the friend-request
// state machine, the invite-token lifecycle, and the event queue, along
// with the locking discipline that keeps all of it consistent under many
// concurrent WebSocket connections.
package hub

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/kv"
	"github.com/opensignal/signalhub/internal/metrics"
	"github.com/opensignal/signalhub/internal/pubsub"
	"gorm.io/gorm"
)

// Hub owns one instance of every subsystem plus the connection tracker and
// rate limiter. It is passed explicitly through handlers rather than reached
// via package-level globals, so tests can construct a fresh one per case.
type Hub struct {
	Conns       *ConnTracker
	RateLimiter *RateLimiter
	Signaling   *Signaling
	Voice       *Voice
	Presence    *Presence
	Profiles    *Profiles
	Friends     *Friends
	Events      *Events
	Invites     *Invites
	ServerHints *ServerHints
	Broadcast   *Broadcaster

	KV      kv.KV
	Metrics *metrics.Metrics

	startedAt    time.Time
	bytesSent    atomic.Int64
	bytesRecv    atomic.Int64
}

// New wires every subsystem together. db may be nil (no durable store); kv
// and ps are never nil (both have in-memory fallbacks, see internal/kv and
// internal/pubsub).
func New(cfg *config.Config, db *gorm.DB, kvStore kv.KV, ps pubsub.PubSub, m *metrics.Metrics) *Hub {
	signaling := NewSignaling()
	presence := NewPresence()

	h := &Hub{
		Conns:       NewConnTracker(cfg.HTTP.MaxWSConnections, cfg.HTTP.MaxWSPerAddress),
		RateLimiter: NewRateLimiter(wsRateLimitCapacity, wsRateLimitRefillPerSecond),
		Signaling:   signaling,
		Voice:       NewVoice(),
		Presence:    presence,
		Profiles:    NewProfiles(db),
		Friends:     NewFriends(),
		Events:      NewEvents(db),
		Invites:     NewInvites(db),
		ServerHints: NewServerHints(db),
		Broadcast:   NewBroadcaster(signaling, presence, ps),
		KV:          kvStore,
		Metrics:     m,
		startedAt:   time.Now(),
	}

	if db != nil {
		if err := h.Events.LoadFromSQL(); err != nil {
			slog.Error("failed to load events from sql backend", "error", err)
		}
	}

	return h
}

const (
	wsRateLimitCapacity        = 30
	wsRateLimitRefillPerSecond = 10
)

// RunGC runs one pass of the event and invite-token retention sweeps,
// intended to be called on a periodic schedule (see cmd/root.go).
func (h *Hub) RunGC() {
	removedEvents := h.Events.GC()
	removedInvites := h.Invites.GC()
	if h.Metrics != nil {
		h.Metrics.EventQueueGCSweeps.Inc()
		h.Metrics.EventsGCed.Add(float64(removedEvents))
	}
	slog.Info("retention gc sweep complete", "events_removed", removedEvents, "invites_removed", removedInvites)
}

// RefreshGauges recomputes the live-counter Prometheus gauges. Intended to
// be called on a short periodic schedule rather than on every mutation.
func (h *Hub) RefreshGauges() {
	if h.Metrics == nil {
		return
	}
	h.Metrics.ConnectedPeers.Set(float64(h.Conns.Total()))
	h.Metrics.PresenceUsers.Set(float64(h.Presence.OnlineUserCount()))
	h.Metrics.VoiceRoomOccupancy.Set(float64(h.Voice.TotalOccupancy()))
}

// Stats is the snapshot returned by GET /api/status.
type Stats struct {
	ConnectionCount int
	UptimeSeconds   int64
	BytesSent       int64
	BytesReceived   int64
}

// StatsSnapshot reports the live counters behind the status endpoint.
func (h *Hub) StatsSnapshot() Stats {
	return Stats{
		ConnectionCount: h.Conns.Total(),
		UptimeSeconds:   int64(time.Since(h.startedAt).Seconds()),
		BytesSent:       h.bytesSent.Load(),
		BytesReceived:   h.bytesRecv.Load(),
	}
}
