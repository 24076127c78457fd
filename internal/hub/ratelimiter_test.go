package hub_test

import (
	"testing"

	"github.com/opensignal/signalhub/internal/hub"
)

func TestRateLimiterAllowsUpToCapacity(t *testing.T) {
	t.Parallel()
	rl := hub.NewRateLimiter(3, 0)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("expected frame %d to be allowed within capacity", i)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("expected the 4th frame to be rejected with no refill")
	}
}

func TestRateLimiterTracksAddressesIndependently(t *testing.T) {
	t.Parallel()
	rl := hub.NewRateLimiter(1, 0)

	if !rl.Allow("1.1.1.1") {
		t.Fatal("expected first address to get its own bucket")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("expected a different address to have an independent bucket")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("expected the first address's bucket to still be empty")
	}
}
