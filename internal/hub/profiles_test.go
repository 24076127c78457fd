package hub_test

import (
	"testing"

	"github.com/opensignal/signalhub/internal/hub"
)

func TestProfilesAnnounceAcceptsHigherRev(t *testing.T) {
	t.Parallel()
	p := hub.NewProfiles(nil)

	if !p.Announce("U1", "Alpha", "", false, 3) {
		t.Fatal("expected the first announce to be accepted")
	}
	if p.Announce("U1", "Beta", "", false, 2) {
		t.Fatal("expected a lower rev to be rejected")
	}
	if p.Announce("U1", "Beta", "", false, 3) {
		t.Fatal("expected an equal rev to be rejected")
	}

	records := p.Hello([]string{"U1"})
	if len(records) != 1 || records[0].DisplayName != "Alpha" || records[0].Rev != 3 {
		t.Fatalf("expected Alpha at rev 3 to have survived, got %+v", records)
	}
}

func TestProfilesHelloSkipsUnknownUsers(t *testing.T) {
	t.Parallel()
	p := hub.NewProfiles(nil)
	p.Announce("U1", "Alpha", "", false, 1)

	records := p.Hello([]string{"U1", "ghost"})
	if len(records) != 1 || records[0].UserID != "U1" {
		t.Fatalf("expected only U1 to be returned, got %+v", records)
	}
}
