package hub_test

import (
	"testing"

	"github.com/opensignal/signalhub/internal/hub"
)

func TestVoiceRegisterReturnsOtherOccupants(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()

	others := v.Register("p1", "u1", "g1", "r1", "c1", "sp1")
	if len(others) != 0 {
		t.Fatalf("expected no occupants yet, got %v", others)
	}

	others = v.Register("p2", "u2", "g1", "r1", "c2", "sp1")
	if len(others) != 1 || others[0].PeerID() != "p1" {
		t.Fatalf("expected [p1], got %v", others)
	}
}

func TestVoiceRegisterReplacesSameUserReconnect(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")

	// u1 reconnects with a new peer_id on a new connection.
	v.Register("p1-new", "u1", "g1", "r1", "c2", "sp1")

	occupants := v.Occupants("g1", "r1")
	if len(occupants) != 1 {
		t.Fatalf("expected exactly 1 occupant after reconnect, got %d", len(occupants))
	}
	if occupants[0].PeerID() != "p1-new" {
		t.Fatalf("expected p1-new to have replaced p1, got %s", occupants[0].PeerID())
	}
}

func TestVoiceUnregisterEmptiesRoom(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")

	userID, signingPubkey, ok := v.Unregister("p1", "g1", "r1")
	if !ok {
		t.Fatal("expected unregister to succeed")
	}
	if userID != "u1" || signingPubkey != "sp1" {
		t.Fatalf("expected (u1, sp1), got (%s, %s)", userID, signingPubkey)
	}
	if occupants := v.Occupants("g1", "r1"); len(occupants) != 0 {
		t.Fatalf("expected empty room, got %v", occupants)
	}
	if _, ok := v.ResolveGroup("r1"); ok {
		t.Fatal("expected chat_id index to be cleared once the room is empty")
	}
}

func TestVoiceUnregisterUnknownPeerFails(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	if _, _, ok := v.Unregister("ghost", "g1", "r1"); ok {
		t.Fatal("expected unregister of an absent peer to fail")
	}
}

func TestVoiceResolveGroupFromChatID(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")

	groupID, ok := v.ResolveGroup("r1")
	if !ok || groupID != "g1" {
		t.Fatalf("expected (g1, true), got (%s, %v)", groupID, ok)
	}
}

func TestVoiceConnForOccupantAndValidate(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")

	connID, ok := v.ConnForOccupant("g1", "r1", "p1")
	if !ok || connID != "c1" {
		t.Fatalf("expected (c1, true), got (%s, %v)", connID, ok)
	}

	if !v.ValidateOccupant("g1", "r1", "p1", "c1") {
		t.Fatal("expected validate to accept the owning connection")
	}
	if v.ValidateOccupant("g1", "r1", "p1", "c2") {
		t.Fatal("expected validate to reject a different connection")
	}
}

func TestVoiceTeardownDropsEveryRoomForConnection(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")
	v.Register("p2", "u1", "g2", "r2", "c1", "sp2")
	v.Register("p3", "u2", "g1", "r1", "c2", "sp1")

	drops := v.Teardown("c1")
	if len(drops) != 2 {
		t.Fatalf("expected 2 drops, got %d", len(drops))
	}
	if v.InRoom("g1", "r1", "p1") {
		t.Fatal("expected p1 to be removed from its room")
	}
	if !v.InRoom("g1", "r1", "p3") {
		t.Fatal("expected p3, owned by a different connection, to remain")
	}
}

func TestVoiceTotalOccupancy(t *testing.T) {
	t.Parallel()
	v := hub.NewVoice()
	v.Register("p1", "u1", "g1", "r1", "c1", "sp1")
	v.Register("p2", "u2", "g1", "r1", "c2", "sp1")
	v.Register("p3", "u3", "g2", "r2", "c3", "sp2")

	if n := v.TotalOccupancy(); n != 3 {
		t.Fatalf("expected 3 total occupants, got %d", n)
	}
}
