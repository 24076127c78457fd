package hub

import "sync"

// voicePeer is one occupant of a voice room.
type voicePeer struct {
	peerID        string
	userID        string
	connID        string
	signingPubkey string
}

// PeerID, UserID, ConnID, and SigningPubkey expose a voicePeer's identity to
// callers outside the package (dispatch, tests) without handing out a
// mutable struct.
func (p voicePeer) PeerID() string        { return p.peerID }
func (p voicePeer) UserID() string        { return p.userID }
func (p voicePeer) ConnID() string        { return p.connID }
func (p voicePeer) SigningPubkey() string { return p.signingPubkey }

type roomKey struct {
	groupID string
	chatID  string
}

// Voice is the Voice Room Engine: an ordered peer list per (group_id,
// chat_id). Per the resolved chat_id-uniqueness question, chat_id is
// enforced unique within a deployment, so a bare chat_id is enough to
// resolve the owning room for directed forwarding.
type Voice struct {
	mu sync.RWMutex

	rooms     map[roomKey][]voicePeer
	chatGroup map[string]string // chat_id -> group_id, for forwarding lookups
}

func NewVoice() *Voice {
	return &Voice{
		rooms:     make(map[roomKey][]voicePeer),
		chatGroup: make(map[string]string),
	}
}

// Register removes any existing entry for userID in the room (handles
// reconnect with a new peer_id), appends the new entry, and returns the
// other occupants.
func (v *Voice) Register(peerID, userID, groupID, chatID, connID, signingPubkey string) []voicePeer {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := roomKey{groupID: groupID, chatID: chatID}
	peers := v.rooms[key]
	filtered := peers[:0:0]
	for _, p := range peers {
		if p.userID != userID {
			filtered = append(filtered, p)
		}
	}
	others := make([]voicePeer, len(filtered))
	copy(others, filtered)

	filtered = append(filtered, voicePeer{peerID: peerID, userID: userID, connID: connID, signingPubkey: signingPubkey})
	v.rooms[key] = filtered
	v.chatGroup[chatID] = groupID

	return others
}

// Unregister removes peerID from the named room, returning the detached
// user_id and signing_pubkey. Empties the room record entirely once the
// last occupant leaves.
func (v *Voice) Unregister(peerID, groupID, chatID string) (userID, signingPubkey string, ok bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unregisterLocked(roomKey{groupID: groupID, chatID: chatID}, peerID)
}

func (v *Voice) unregisterLocked(key roomKey, peerID string) (string, string, bool) {
	peers := v.rooms[key]
	for i, p := range peers {
		if p.peerID == peerID {
			userID, signingPubkey := p.userID, p.signingPubkey
			peers = append(peers[:i], peers[i+1:]...)
			if len(peers) == 0 {
				delete(v.rooms, key)
				if v.chatGroup[key.chatID] == key.groupID {
					delete(v.chatGroup, key.chatID)
				}
			} else {
				v.rooms[key] = peers
			}
			return userID, signingPubkey, true
		}
	}
	return "", "", false
}

// ConnForOccupant returns the connection id owning peerID within
// (groupID, chatID), used to resolve a directed voice-signaling forward.
func (v *Voice) ConnForOccupant(groupID, chatID, peerID string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.rooms[roomKey{groupID: groupID, chatID: chatID}] {
		if p.peerID == peerID {
			return p.connID, true
		}
	}
	return "", false
}

// ValidateOccupant reports whether peerID is present in (groupID, chatID)
// and owned by connID, the voice-room analogue of Signaling.Validate.
func (v *Voice) ValidateOccupant(groupID, chatID, peerID, connID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.rooms[roomKey{groupID: groupID, chatID: chatID}] {
		if p.peerID == peerID {
			return p.connID == connID
		}
	}
	return false
}

// ResolveGroup returns the group_id owning chatID, if any room exists for
// it.
func (v *Voice) ResolveGroup(chatID string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	groupID, ok := v.chatGroup[chatID]
	return groupID, ok
}

// InRoom reports whether peerID is currently present in (groupID, chatID),
// used to decide whether a directed forward should proceed.
func (v *Voice) InRoom(groupID, chatID, peerID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.rooms[roomKey{groupID: groupID, chatID: chatID}] {
		if p.peerID == peerID {
			return true
		}
	}
	return false
}

// Occupants returns the peer_ids currently in (groupID, chatID), used for
// /api/status occupancy counts and join fan-out.
func (v *Voice) Occupants(groupID, chatID string) []voicePeer {
	v.mu.RLock()
	defer v.mu.RUnlock()
	peers := v.rooms[roomKey{groupID: groupID, chatID: chatID}]
	out := make([]voicePeer, len(peers))
	copy(out, peers)
	return out
}

// TotalOccupancy sums occupants across every room, for the voice-room
// occupancy gauge.
func (v *Voice) TotalOccupancy() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	total := 0
	for _, peers := range v.rooms {
		total += len(peers)
	}
	return total
}

// VoiceDrop describes one occupant removed by a connection teardown.
type VoiceDrop struct {
	GroupID       string
	ChatID        string
	PeerID        string
	UserID        string
	SigningPubkey string
}

// Teardown scans every room for entries owned by connID, removes them, and
// reports what was removed so the single teardown path can broadcast
// VoicePeerLeft/VoicePresenceUpdate and prune now-empty rooms.
func (v *Voice) Teardown(connID string) []VoiceDrop {
	v.mu.Lock()
	defer v.mu.Unlock()

	var drops []VoiceDrop
	for key, peers := range v.rooms {
		for _, p := range peers {
			if p.connID == connID {
				drops = append(drops, VoiceDrop{GroupID: key.groupID, ChatID: key.chatID, PeerID: p.peerID, UserID: p.userID, SigningPubkey: p.signingPubkey})
			}
		}
	}
	for _, d := range drops {
		v.unregisterLocked(roomKey{groupID: d.GroupID, chatID: d.ChatID}, d.PeerID)
	}
	return drops
}
