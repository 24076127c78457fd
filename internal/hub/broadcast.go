package hub

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/opensignal/signalhub/internal/pubsub"
)

// Broadcaster is the coordinated cross-component fan-out helper referenced
// throughout §4: every subsystem computes *who* should hear about a state
// change under its own lock, then hands the identifiers and a message here,
// outside any lock, to actually perform the sends.
//
// Group-scoped broadcasts are always routed through pubsub, even for a
// single-process deployment: this replica's own subscription loop is what
// delivers the message to its local connections, so the in-memory and
// Redis-backed pubsub implementations exercise exactly the same delivery
// path and multi-replica fan-out requires no special casing.
type Broadcaster struct {
	signaling *Signaling
	presence  *Presence
	ps        pubsub.PubSub

	mu         sync.Mutex
	subscribed map[string]struct{}
}

func NewBroadcaster(signaling *Signaling, presence *Presence, ps pubsub.PubSub) *Broadcaster {
	return &Broadcaster{
		signaling:  signaling,
		presence:   presence,
		ps:         ps,
		subscribed: make(map[string]struct{}),
	}
}

func groupTopic(signingPubkey string) string { return "group:" + signingPubkey }

// Direct sends msg to a single connection, if it is still open.
func (b *Broadcaster) Direct(connID string, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal broadcast message", "error", err)
		return
	}
	if mb, ok := b.signaling.ConnSender(connID); ok {
		mb.Send(raw)
	}
}

// DirectMany sends the same message to every connection in connIDs.
func (b *Broadcaster) DirectMany(connIDs []string, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal broadcast message", "error", err)
		return
	}
	for _, connID := range connIDs {
		if mb, ok := b.signaling.ConnSender(connID); ok {
			mb.Send(raw)
		}
	}
}

// Group publishes msg to every connection subscribed to signingPubkey,
// across every replica.
func (b *Broadcaster) Group(signingPubkey string, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal broadcast message", "error", err)
		return
	}
	b.ensureSubscription(signingPubkey)
	if err := b.ps.Publish(groupTopic(signingPubkey), raw); err != nil {
		slog.Warn("failed to publish group broadcast", "signing_pubkey", signingPubkey, "error", err)
	}
}

// ensureSubscription lazily starts this replica's delivery loop for
// signingPubkey the first time anything broadcasts to or subscribes from
// it, and never tears it down: a dormant topic costs one idle goroutine.
func (b *Broadcaster) ensureSubscription(signingPubkey string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribed[signingPubkey]; ok {
		return
	}
	b.subscribed[signingPubkey] = struct{}{}

	sub := b.ps.Subscribe(groupTopic(signingPubkey))
	go func() {
		for raw := range sub.Channel() {
			for _, connID := range b.presence.Subscribers(signingPubkey) {
				if mb, ok := b.signaling.ConnSender(connID); ok {
					mb.Send(raw)
				}
			}
			for _, connID := range b.signaling.SigningSubscribers(signingPubkey) {
				if mb, ok := b.signaling.ConnSender(connID); ok {
					mb.Send(raw)
				}
			}
		}
	}()
}

// EnsureGroupSubscribed lets callers (e.g. presence hello) prime a group's
// delivery loop before the first Group call, so a subscriber that joins an
// otherwise-silent group doesn't miss the loop startup race.
func (b *Broadcaster) EnsureGroupSubscribed(signingPubkey string) {
	b.ensureSubscription(signingPubkey)
}
