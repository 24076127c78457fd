package metrics_test

import (
	"testing"

	"github.com/opensignal/signalhub/internal/metrics"
)

func TestNewRegistersWithoutPanicking(t *testing.T) {
	// prometheus.MustRegister panics on duplicate registration, which would
	// happen if New() double-registered a collector name.
	m := metrics.New()
	if m.ConnectedPeers == nil || m.InviteRedemptions == nil {
		t.Fatal("expected collectors to be initialized")
	}
}
