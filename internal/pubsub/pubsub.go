// Package pubsub provides the hub's cross-process broadcast fabric: presence,
// profile, and voice-room events raised on one replica are published here so
// every replica's WebSocket connections can forward them to their own peers.
// A single-process in-memory backend is used by default; Redis pub/sub backs
// multi-replica deployments.
package pubsub

import (
	"context"
	"fmt"

	"github.com/opensignal/signalhub/internal/config"
)

// PubSub is a topic-based fan-out broadcaster.
type PubSub interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string) Subscription
	Close() error
}

// Subscription is a single subscriber's view of a topic.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// MakePubSub creates a new pub/sub client, backed by Redis when enabled or an
// in-process fan-out otherwise.
func MakePubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	if cfg.Redis.Enabled {
		ps, err := makePubSubFromRedis(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis pubsub: %w", err)
		}
		return ps, nil
	}
	return makeInMemoryPubSub(), nil
}
