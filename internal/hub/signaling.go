package hub

import (
	"fmt"
	"log/slog"
	"sync"
)

// Mailbox is the single outbound sink for a WebSocket connection. Sends are
// non-blocking: a full or closed mailbox silently drops the frame, per the
// fail-fast broadcast rule.
type Mailbox interface {
	Send(frame []byte) bool
}

// peerEntry is the Peer Registry's record for one registered peer.
type peerEntry struct {
	groupID       string
	signingPubkey string
	connID        string
}

// Signaling is the Peer Registry and Signaling Router. It is also the sole
// owner of per-connection outbound mailboxes: every other subsystem reaches
// a connection by asking Signaling for its sender, never by holding a
// mailbox reference itself (see the cyclic-ownership note in hub.go).
type Signaling struct {
	mu sync.RWMutex

	mailboxes map[string]Mailbox            // conn_id -> mailbox
	connPeers map[string]map[string]struct{} // conn_id -> peer_id set
	peers     map[string]peerEntry          // peer_id -> entry
	groups    map[string]map[string]struct{} // group_id -> peer_id set
	signing   map[string]map[string]struct{} // signing_pubkey -> conn_id set
}

func NewSignaling() *Signaling {
	return &Signaling{
		mailboxes: make(map[string]Mailbox),
		connPeers: make(map[string]map[string]struct{}),
		peers:     make(map[string]peerEntry),
		groups:    make(map[string]map[string]struct{}),
		signing:   make(map[string]map[string]struct{}),
	}
}

// AddConnection records a freshly accepted connection's mailbox. Must be
// called before any Register for that conn_id.
func (s *Signaling) AddConnection(connID string, mailbox Mailbox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mailboxes[connID] = mailbox
	if s.connPeers[connID] == nil {
		s.connPeers[connID] = make(map[string]struct{})
	}
}

// Register inserts peerID under connID and groupID, subscribes the
// connection to groupID's signing set if signingPubkey is non-empty, and
// returns the identifiers of the other peers currently in groupID.
//
// Re-registering the same peerID on the same connID is idempotent.
// Re-registering a known peerID on a different connID is not rejected here
// (the registry simply reassigns ownership) — Validate is what prevents a
// stale connection from acting on a peer it no longer owns.
func (s *Signaling) Register(peerID, groupID, signingPubkey, connID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[connID]; !ok {
		return nil, fmt.Errorf("connection %q has no mailbox", connID)
	}

	s.peers[peerID] = peerEntry{groupID: groupID, signingPubkey: signingPubkey, connID: connID}

	if s.connPeers[connID] == nil {
		s.connPeers[connID] = make(map[string]struct{})
	}
	s.connPeers[connID][peerID] = struct{}{}

	var others []string
	if groupID != "" {
		if s.groups[groupID] == nil {
			s.groups[groupID] = make(map[string]struct{})
		}
		for other := range s.groups[groupID] {
			if other != peerID {
				others = append(others, other)
			}
		}
		s.groups[groupID][peerID] = struct{}{}
	}

	if signingPubkey != "" {
		if s.signing[signingPubkey] == nil {
			s.signing[signingPubkey] = make(map[string]struct{})
		}
		s.signing[signingPubkey][connID] = struct{}{}
	}

	return others, nil
}

// Unregister removes peerID from every index. Friends-prefixed synthetic
// peers carry no groupID, so this is already a no-op against the group
// maps for them; the friend subsystem's own disconnect path cleans its
// subscription maps separately.
func (s *Signaling) Unregister(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregisterLocked(peerID)
}

func (s *Signaling) unregisterLocked(peerID string) {
	entry, ok := s.peers[peerID]
	if !ok {
		return
	}
	delete(s.peers, peerID)

	if set := s.connPeers[entry.connID]; set != nil {
		delete(set, peerID)
	}
	if entry.groupID != "" {
		if set := s.groups[entry.groupID]; set != nil {
			delete(set, peerID)
			if len(set) == 0 {
				delete(s.groups, entry.groupID)
			}
		}
	}
}

// Validate is the core safety check: a frame naming fromPeer may only be
// acted on if fromPeer is currently owned by connID.
func (s *Signaling) Validate(peerID, connID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.peers[peerID]
	return ok && entry.connID == connID
}

// SenderFor returns the mailbox that should receive frames addressed to
// peerID, if that peer is currently registered.
func (s *Signaling) SenderFor(peerID string) (Mailbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.peers[peerID]
	if !ok {
		return nil, false
	}
	mb, ok := s.mailboxes[entry.connID]
	return mb, ok
}

// ConnSender returns the mailbox for a connection identifier directly, used
// by subsystems (presence, friends) that address connections rather than
// peers.
func (s *Signaling) ConnSender(connID string) (Mailbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mb, ok := s.mailboxes[connID]
	return mb, ok
}

// SigningSubscribers returns the connection identifiers registered with
// signingPubkey via Register (distinct from presence's own hello-based
// subscriber set; used for raw signaling-scoped broadcasts such as
// ServerHintUpdated).
func (s *Signaling) SigningSubscribers(signingPubkey string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.signing[signingPubkey]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// Forward validates fromPeer belongs to connID, then forwards raw to the
// connection currently holding toPeer. A missing target or failed validation
// is logged and dropped, never surfaced to the caller as an error.
func (s *Signaling) Forward(connID, fromPeer, toPeer string, raw []byte) {
	if !s.Validate(fromPeer, connID) {
		slog.Debug("dropped signaling frame from unvalidated peer", "from_peer", fromPeer, "conn_id", connID)
		return
	}
	mb, ok := s.SenderFor(toPeer)
	if !ok {
		slog.Debug("dropped signaling frame to unknown peer", "to_peer", toPeer)
		return
	}
	mb.Send(raw)
}

// Teardown removes every peer owned by connID and its mailbox, returning the
// removed peer identifiers so the single teardown path can tell other
// subsystems which peers just vanished. Idempotent.
func (s *Signaling) Teardown(connID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	peerIDs := make([]string, 0, len(s.connPeers[connID]))
	for peerID := range s.connPeers[connID] {
		peerIDs = append(peerIDs, peerID)
	}
	for _, peerID := range peerIDs {
		s.unregisterLocked(peerID)
	}
	delete(s.connPeers, connID)
	delete(s.mailboxes, connID)
	for pubkey, conns := range s.signing {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(s.signing, pubkey)
		}
	}
	return peerIDs
}
