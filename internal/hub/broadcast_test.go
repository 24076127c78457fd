package hub_test

import (
	"context"
	"testing"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/pubsub"
)

func makeTestPubSub(t *testing.T) pubsub.PubSub {
	t.Helper()
	ps, err := pubsub.MakePubSub(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("failed to create pubsub: %v", err)
	}
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func TestBroadcastDirectDeliversToOneConnection(t *testing.T) {
	t.Parallel()
	signaling := hub.NewSignaling()
	mb := &fakeMailbox{}
	signaling.AddConnection("c1", mb)

	b := hub.NewBroadcaster(signaling, hub.NewPresence(), makeTestPubSub(t))
	b.Direct("c1", map[string]string{"type": "Test"})

	if mb.count() != 1 {
		t.Fatalf("expected exactly 1 frame delivered, got %d", mb.count())
	}
}

func TestBroadcastDirectToClosedConnectionIsSilent(t *testing.T) {
	t.Parallel()
	signaling := hub.NewSignaling()
	b := hub.NewBroadcaster(signaling, hub.NewPresence(), makeTestPubSub(t))

	// No connection named "ghost" was ever added.
	b.Direct("ghost", map[string]string{"type": "Test"})
}

func TestBroadcastGroupDeliversToSubscribers(t *testing.T) {
	t.Parallel()
	signaling := hub.NewSignaling()
	presence := hub.NewPresence()
	mb1 := &fakeMailbox{}
	mb2 := &fakeMailbox{}
	signaling.AddConnection("c1", mb1)
	signaling.AddConnection("c2", mb2)

	presence.Hello("c1", "U1", []string{"H1"}, "", nil)
	presence.Hello("c2", "U2", []string{"H1"}, "", nil)

	b := hub.NewBroadcaster(signaling, presence, makeTestPubSub(t))
	b.Group("H1", map[string]string{"type": "PresenceUpdate"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if mb1.count() >= 1 && mb2.count() >= 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if mb1.count() < 1 || mb2.count() < 1 {
		t.Fatalf("expected both subscribers to receive the broadcast, got %d and %d", mb1.count(), mb2.count())
	}
}
