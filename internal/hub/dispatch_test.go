package hub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/kv"
	"github.com/opensignal/signalhub/internal/metrics"
)

func makeTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	cfg := &config.Config{}

	kvStore, err := kv.MakeKV(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to create kv store: %v", err)
	}
	t.Cleanup(func() { _ = kvStore.Close() })

	ps := makeTestPubSub(t)
	return hub.New(cfg, nil, kvStore, ps, metrics.New())
}

// dial simulates the websocket transport's contract: a mailbox is attached
// to a fresh connection id before any frame is dispatched on it.
func dial(h *hub.Hub, connID string) (*hub.Connection, *fakeMailbox) {
	mb := &fakeMailbox{}
	h.Signaling.AddConnection(connID, mb)
	return &hub.Connection{ID: connID, Address: "127.0.0.1"}, mb
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestDispatchRegisterReplies(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	conn, mb := dial(h, "c1")

	h.Dispatch(conn, []byte(`{"type":"Register","group_id":"g1","peer_id":"p1"}`))

	if mb.count() != 1 {
		t.Fatalf("expected 1 reply, got %d", mb.count())
	}
	var reply map[string]any
	if err := json.Unmarshal(mb.frames[0], &reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply["type"] != "Registered" {
		t.Fatalf("expected a Registered reply, got %v", reply["type"])
	}
}

func TestDispatchRegisterRejectsReservedPrefix(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	conn, mb := dial(h, "c1")

	h.Dispatch(conn, []byte(`{"type":"Register","group_id":"g1","peer_id":"friends:sneaky"}`))

	var reply map[string]any
	json.Unmarshal(mb.frames[0], &reply)
	if reply["type"] != "Error" {
		t.Fatalf("expected a reserved peer_id to be rejected with an Error, got %v", reply["type"])
	}
}

func TestDispatchUnknownTypeYieldsError(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	conn, mb := dial(h, "c1")

	h.Dispatch(conn, []byte(`{"type":"NotARealType"}`))

	var reply map[string]any
	json.Unmarshal(mb.frames[0], &reply)
	if reply["type"] != "Error" {
		t.Fatalf("expected Error for an unknown type, got %v", reply["type"])
	}
}

func TestDispatchPingReplyIsPong(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	conn, mb := dial(h, "c1")

	h.Dispatch(conn, []byte(`{"type":"Ping"}`))

	var reply map[string]any
	json.Unmarshal(mb.frames[0], &reply)
	if reply["type"] != "Pong" {
		t.Fatalf("expected Pong, got %v", reply["type"])
	}
}

func TestDispatchPresenceHelloSnapshotAndFanOut(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	c1, mb1 := dial(h, "c1")
	c2, mb2 := dial(h, "c2")

	h.Dispatch(c1, []byte(`{"type":"PresenceHello","user_id":"U1","signing_pubkeys":["H1"]}`))
	h.Dispatch(c2, []byte(`{"type":"PresenceHello","user_id":"U2","signing_pubkeys":["H1"]}`))

	// C2 should have received a snapshot containing U1.
	foundSnapshot := false
	for _, frame := range mb2.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		if decoded["type"] == "PresenceSnapshot" && decoded["signing_pubkey"] == "H1" {
			foundSnapshot = true
		}
	}
	if !foundSnapshot {
		t.Fatal("expected C2 to receive an H1 PresenceSnapshot")
	}

	// C1 should eventually receive a PresenceUpdate broadcast about U2.
	waitFor(t, func() bool {
		for _, frame := range mb1.frames {
			var decoded map[string]any
			json.Unmarshal(frame, &decoded)
			if decoded["type"] == "PresenceUpdate" && decoded["user_id"] == "U2" {
				return true
			}
		}
		return false
	})
}

func TestDispatchProfilePushRequiresHello(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	conn, mb := dial(h, "c1")

	h.Dispatch(conn, []byte(`{"type":"ProfilePush","to_user_ids":["U2"],"display_name":"Alice"}`))

	var reply map[string]any
	json.Unmarshal(mb.frames[0], &reply)
	if reply["type"] != "Error" {
		t.Fatalf("expected ProfilePush without a prior hello to error, got %v", reply["type"])
	}
}

func TestDispatchProfilePushDeliversToOnlineTarget(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	sender, _ := dial(h, "c1")
	target, targetMB := dial(h, "c2")

	h.Dispatch(sender, []byte(`{"type":"PresenceHello","user_id":"U1","signing_pubkeys":[]}`))
	h.Dispatch(target, []byte(`{"type":"PresenceHello","user_id":"U2","signing_pubkeys":[]}`))

	h.Dispatch(sender, []byte(`{"type":"ProfilePush","to_user_ids":["U2"],"display_name":"Alice"}`))

	found := false
	for _, frame := range targetMB.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		if decoded["type"] == "ProfilePushIncoming" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected U2's connection to receive a ProfilePushIncoming frame")
	}
}

func TestDispatchOfferForwardsToRegisteredPeer(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	c1, _ := dial(h, "c1")
	c2, mb2 := dial(h, "c2")

	h.Dispatch(c1, []byte(`{"type":"Register","group_id":"g1","peer_id":"p1"}`))
	h.Dispatch(c2, []byte(`{"type":"Register","group_id":"g1","peer_id":"p2"}`))

	h.Dispatch(c1, []byte(`{"type":"Offer","from_peer":"p1","to_peer":"p2","sdp":"abc"}`))

	found := false
	for _, frame := range mb2.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		if decoded["type"] == "Offer" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected p2's connection to receive the forwarded Offer")
	}
}

func TestDispatchOfferRejectsUnownedFromPeer(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	c1, _ := dial(h, "c1")
	c2, mb2 := dial(h, "c2")

	h.Dispatch(c1, []byte(`{"type":"Register","group_id":"g1","peer_id":"p1"}`))
	h.Dispatch(c2, []byte(`{"type":"Register","group_id":"g1","peer_id":"p2"}`))

	// c2 falsely claims to be p1.
	h.Dispatch(c2, []byte(`{"type":"Offer","from_peer":"p1","to_peer":"p2","sdp":"abc"}`))

	var lastReply map[string]any
	json.Unmarshal(mb2.frames[len(mb2.frames)-1], &lastReply)
	if lastReply["type"] != "Error" {
		t.Fatalf("expected c2 to be told its forged from_peer was rejected, got %v", lastReply["type"])
	}
}

func TestDispatchVoiceRegisterJoinAndUnregister(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	c1, mb1 := dial(h, "c1")
	c2, _ := dial(h, "c2")

	h.Dispatch(c1, []byte(`{"type":"VoiceRegister","group_id":"g1","chat_id":"r1","peer_id":"vp1","user_id":"U1","signing_pubkey":"H1"}`))
	h.Dispatch(c2, []byte(`{"type":"VoiceRegister","group_id":"g1","chat_id":"r1","peer_id":"vp2","user_id":"U2","signing_pubkey":"H1"}`))

	joined := false
	for _, frame := range mb1.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		if decoded["type"] == "VoicePeerJoined" && decoded["peer_id"] == "vp2" {
			joined = true
		}
	}
	if !joined {
		t.Fatal("expected c1 to be notified that vp2 joined the voice room")
	}

	mb1BeforeUnregister := mb1.count()
	h.Dispatch(c2, []byte(`{"type":"VoiceUnregister","peer_id":"vp2","chat_id":"r1"}`))
	waitFor(t, func() bool { return mb1.count() > mb1BeforeUnregister })

	left := false
	for _, frame := range mb1.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		if decoded["type"] == "VoicePeerLeft" && decoded["peer_id"] == "vp2" {
			left = true
		}
	}
	if !left {
		t.Fatal("expected c1 to be notified that vp2 left the voice room")
	}
}

func TestTeardownDrainsVoiceAndPresence(t *testing.T) {
	t.Parallel()
	h := makeTestHub(t)
	c1, mb1 := dial(h, "c1")
	c2, mb2 := dial(h, "c2")

	h.Dispatch(c1, []byte(`{"type":"VoiceRegister","group_id":"g1","chat_id":"r1","peer_id":"vp1","user_id":"U1","signing_pubkey":"H1"}`))
	h.Dispatch(c2, []byte(`{"type":"VoiceRegister","group_id":"g1","chat_id":"r1","peer_id":"vp2","user_id":"U2","signing_pubkey":"H1"}`))
	h.Dispatch(c1, []byte(`{"type":"PresenceHello","user_id":"U1","signing_pubkeys":["H1"]}`))
	h.Dispatch(c2, []byte(`{"type":"PresenceHello","user_id":"U2","signing_pubkeys":["H1"]}`))

	countBefore := mb2.count()
	h.Teardown(c1)

	waitFor(t, func() bool { return mb2.count() > countBefore })

	sawVoiceLeft, sawOffline := false, false
	for _, frame := range mb2.frames {
		var decoded map[string]any
		json.Unmarshal(frame, &decoded)
		switch decoded["type"] {
		case "VoicePeerLeft":
			if decoded["peer_id"] == "vp1" {
				sawVoiceLeft = true
			}
		case "PresenceUpdate":
			if decoded["user_id"] == "U1" && decoded["online"] == false {
				sawOffline = true
			}
		}
	}
	if !sawVoiceLeft {
		t.Fatal("expected c2 to see vp1 leave the voice room on teardown")
	}
	if !sawOffline {
		t.Fatal("expected c2 to see U1 go offline on teardown")
	}

	if h.Signaling.Validate("vp1", "c1") {
		t.Fatal("expected signaling state for c1 to be fully torn down")
	}
}
