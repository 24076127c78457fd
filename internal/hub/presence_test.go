package hub_test

import (
	"fmt"
	"testing"

	"github.com/opensignal/signalhub/internal/hub"
)

func TestPresenceHelloSnapshotContainsExistingUsers(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()

	p.Hello("c1", "U1", []string{"H1"}, "", nil)
	result := p.Hello("c2", "U2", []string{"H1"}, "", nil)

	snapshot, ok := result.Snapshots["H1"]
	if !ok {
		t.Fatal("expected a snapshot for H1")
	}
	found := false
	for _, u := range snapshot.Users {
		if u.UserID == "U1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected U1 in C2's H1 snapshot, got %+v", snapshot.Users)
	}
	if len(result.AffectedSigningPubkeys) != 1 || result.AffectedSigningPubkeys[0] != "H1" {
		t.Fatalf("expected [H1] affected, got %v", result.AffectedSigningPubkeys)
	}
}

func TestPresenceHelloAlwaysIncludesFriendsPseudoGroup(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	result := p.Hello("c1", "U1", []string{"H1"}, "", nil)

	if _, ok := result.Snapshots[hub.FriendsPseudoGroup]; !ok {
		t.Fatal("expected a snapshot for the reserved friends pseudo-group")
	}
}

func TestPresenceHelloExtendsNotReplacesSigningPubkeys(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	p.Hello("c1", "U1", []string{"H1"}, "", nil)
	p.Hello("c1", "U1", []string{"H2"}, "", nil)

	if subs := p.Subscribers("H1"); len(subs) != 1 {
		t.Fatalf("expected c1 to remain subscribed to H1, got %v", subs)
	}
	if subs := p.Subscribers("H2"); len(subs) != 1 {
		t.Fatalf("expected c1 to be subscribed to H2 too, got %v", subs)
	}
}

func TestPresenceFriendSubscriptionDeliversSnapshotAndFanOut(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()

	// U1 comes online first.
	p.Hello("c1", "U1", []string{"H1"}, "", nil)

	// U2 subscribes to U1 as a friend.
	result := p.Hello("c2", "U2", nil, "", []string{"U1"})
	friendSnapshot := result.Snapshots[hub.FriendsPseudoGroup]
	if len(friendSnapshot.Users) != 1 || friendSnapshot.Users[0].UserID != "U1" {
		t.Fatalf("expected U1 in friend snapshot, got %+v", friendSnapshot.Users)
	}

	// U1 going active should now notify c2 as a friend subscriber.
	active := p.Active("U1", "H2")
	found := false
	for _, connID := range active.FriendBroadcastConns {
		if connID == "c2" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected c2 in friend broadcast targets, got %v", active.FriendBroadcastConns)
	}
}

func TestPresenceFriendSubscriptionCappedAt1000(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()

	targets := make([]string, 1500)
	for i := range targets {
		targets[i] = fmt.Sprintf("friend-%d", i)
	}
	p.Hello("c1", "U1", nil, "", targets)

	// Only the first 1000 subscriptions should have been recorded; spot
	// check the boundary rather than every single one.
	if conns := p.FriendSubscriberConns(targets[999]); len(conns) != 1 {
		t.Fatalf("expected target 999 to be subscribed, got %v", conns)
	}
	if conns := p.FriendSubscriberConns(targets[1000]); len(conns) != 0 {
		t.Fatalf("expected target 1000 to be dropped by the cap, got %v", conns)
	}
}

func TestPresenceActiveOnUnknownUserIsNoop(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	result := p.Active("ghost", "H1")
	if len(result.AffectedSigningPubkeys) != 0 {
		t.Fatalf("expected no effect for an unknown user, got %v", result.AffectedSigningPubkeys)
	}
}

func TestPresenceDisconnectLastConnectionGoesOffline(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	p.Hello("c1", "U1", []string{"H1"}, "", nil)

	result := p.Disconnect("c1")
	if !result.WentOffline {
		t.Fatal("expected the user to go offline on its last connection")
	}
	if result.UserID != "U1" {
		t.Fatalf("expected UserID U1, got %s", result.UserID)
	}
	if len(result.AffectedSigningPubkeys) != 1 || result.AffectedSigningPubkeys[0] != "H1" {
		t.Fatalf("expected [H1], got %v", result.AffectedSigningPubkeys)
	}
	if p.OnlineUserCount() != 0 {
		t.Fatalf("expected 0 online users, got %d", p.OnlineUserCount())
	}
}

func TestPresenceDisconnectKeepsUserOnlineWithOtherConnections(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	p.Hello("c1", "U1", []string{"H1"}, "", nil)
	p.Hello("c2", "U1", []string{"H1"}, "", nil)

	result := p.Disconnect("c1")
	if result.WentOffline {
		t.Fatal("expected the user to remain online via its second connection")
	}
	if p.OnlineUserCount() != 1 {
		t.Fatalf("expected 1 online user, got %d", p.OnlineUserCount())
	}
}

func TestPresenceDisconnectUnknownConnectionIsNoop(t *testing.T) {
	t.Parallel()
	p := hub.NewPresence()
	result := p.Disconnect("ghost")
	if result.WentOffline || result.UserID != "" {
		t.Fatalf("expected a zero-value result, got %+v", result)
	}
}
