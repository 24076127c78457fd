package hub

import "sync"

// ConnTracker enforces the global and per-client-address WebSocket
// connection caps. It holds its own lock, independent of the per-subsystem
// lock ordering used elsewhere in the hub.
type ConnTracker struct {
	mu            sync.Mutex
	maxTotal      int
	maxPerAddress int
	total         int
	perAddress    map[string]int
}

func NewConnTracker(maxTotal, maxPerAddress int) *ConnTracker {
	return &ConnTracker{
		maxTotal:      maxTotal,
		maxPerAddress: maxPerAddress,
		perAddress:    make(map[string]int),
	}
}

// Admit reserves a connection slot for address. A zero cap means unlimited
// for that dimension. Returns false if either cap is already at capacity;
// the caller must not count the connection and should refuse the upgrade.
func (t *ConnTracker) Admit(address string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.maxTotal > 0 && t.total >= t.maxTotal {
		return false
	}
	if t.maxPerAddress > 0 && t.perAddress[address] >= t.maxPerAddress {
		return false
	}
	t.total++
	t.perAddress[address]++
	return true
}

// Release returns a previously admitted connection's slot. Safe to call
// exactly once per successful Admit, from the teardown path.
func (t *ConnTracker) Release(address string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.total > 0 {
		t.total--
	}
	if n := t.perAddress[address]; n > 0 {
		if n == 1 {
			delete(t.perAddress, address)
		} else {
			t.perAddress[address] = n - 1
		}
	}
}

// Total returns the current number of admitted connections, for /api/status.
func (t *ConnTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}
