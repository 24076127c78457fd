package hub_test

import (
	"sync"
	"testing"

	"github.com/opensignal/signalhub/internal/hub"
)

func TestInvitesPutRejectsCodeTooShort(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	if _, err := inv.Put("H1", "SHORT123", nil, nil, 1); err != hub.ErrInviteCodeLength {
		t.Fatalf("expected ErrInviteCodeLength for a 8-char code, got %v", err)
	}
}

func TestInvitesPutAcceptsBoundaryLengths(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)

	code10 := "AAAAAAAAAA"
	if _, err := inv.Put("H1", code10, nil, nil, 1); err != nil {
		t.Fatalf("expected a 10-char code to be accepted, got %v", err)
	}

	code64 := make([]byte, 64)
	for i := range code64 {
		code64[i] = 'B'
	}
	if _, err := inv.Put("H1", string(code64), nil, nil, 1); err != nil {
		t.Fatalf("expected a 64-char code to be accepted, got %v", err)
	}

	code65 := make([]byte, 65)
	for i := range code65 {
		code65[i] = 'C'
	}
	if _, err := inv.Put("H1", string(code65), nil, nil, 1); err != hub.ErrInviteCodeLength {
		t.Fatalf("expected a 65-char code to be rejected, got %v", err)
	}
}

func TestInvitesPutThenGetRoundTrip(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	payload := []byte("encrypted-payload")
	sig := []byte("signature")

	if _, err := inv.Put("H1", "ROUNDTRIP1", payload, sig, 5); err != nil {
		t.Fatalf("put: %v", err)
	}

	token, ok := inv.Get("ROUNDTRIP1")
	if !ok {
		t.Fatal("expected the token to be found")
	}
	if string(token.EncryptedPayload) != string(payload) || string(token.Signature) != string(sig) {
		t.Fatal("expected the round-tripped payload/signature to match the inputs")
	}
}

func TestInvitesRedeemUnlimitedDoesNotDecrement(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	inv.Put("H1", "UNLIMITED1", nil, nil, 0)

	for i := 0; i < 5; i++ {
		token, ok := inv.Redeem("UNLIMITED1")
		if !ok {
			t.Fatalf("expected redeem %d of an unlimited code to succeed", i)
		}
		if token.MaxUses != 0 {
			t.Fatalf("expected max_uses to stay 0, got %d", token.MaxUses)
		}
	}
}

func TestInvitesRedeemExhaustsFiniteUses(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	inv.Put("H1", "FINITEUSES1", nil, nil, 2)

	if _, ok := inv.Redeem("FINITEUSES1"); !ok {
		t.Fatal("expected first redeem to succeed")
	}
	if _, ok := inv.Redeem("FINITEUSES1"); !ok {
		t.Fatal("expected second redeem to succeed")
	}
	if _, ok := inv.Redeem("FINITEUSES1"); ok {
		t.Fatal("expected third redeem of a 2-use code to fail")
	}
}

// TestInvitesRedeemConcurrentNeverExceedsMaxUses is the single most
// important correctness property of the subsystem: under N concurrent
// redeems of a max_uses=2 code, at most 2 may succeed.
func TestInvitesRedeemConcurrentNeverExceedsMaxUses(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	inv.Put("H1", "CONCURRENT1", nil, nil, 2)

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := inv.Redeem("CONCURRENT1"); ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 2 {
		t.Fatalf("expected exactly 2 successful redeems out of %d concurrent attempts, got %d", attempts, successes)
	}
}

func TestInvitesRevoke(t *testing.T) {
	t.Parallel()
	inv := hub.NewInvites(nil)
	inv.Put("H1", "REVOKEME12", nil, nil, 1)

	if !inv.Revoke("REVOKEME12") {
		t.Fatal("expected revoke to succeed")
	}
	if inv.Revoke("REVOKEME12") {
		t.Fatal("expected a second revoke to report not found")
	}
	if _, ok := inv.Get("REVOKEME12"); ok {
		t.Fatal("expected the revoked token to be gone")
	}
}
