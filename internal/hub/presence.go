package hub

import "sync"

// FriendsPseudoGroup is the reserved signing_pubkey key under which a
// caller's friend-online snapshot and friend-presence broadcasts are
// delivered, so clients can treat friend presence as just another group.
const FriendsPseudoGroup = friendsSigningPubkey

const maxFriendSubscriptionsPerHello = 1000

// connPresence is what a single connection has told the Presence Engine
// about itself.
type connPresence struct {
	userID         string
	signingPubkeys map[string]struct{}
	friendTargets  map[string]struct{} // user_ids this connection subscribed to as friends
}

// userPresence is the per-user online record.
type userPresence struct {
	conns               map[string]struct{}
	signingPubkeys      map[string]struct{}
	activeSigningPubkey string
}

func (u *userPresence) online() bool { return len(u.conns) > 0 }

// Presence is the Presence Engine: user<->group membership for presence,
// active-group tracking, and per-group/per-friend fan-out.
type Presence struct {
	mu sync.RWMutex

	conns map[string]*connPresence // conn_id -> record
	users map[string]*userPresence // user_id -> record

	groupSubscribers  map[string]map[string]struct{} // signing_pubkey -> conn_id set
	friendSubscribers map[string]map[string]struct{} // user_id -> conn_id set (subscribed to that user's presence)
}

func NewPresence() *Presence {
	return &Presence{
		conns:             make(map[string]*connPresence),
		users:             make(map[string]*userPresence),
		groupSubscribers:  make(map[string]map[string]struct{}),
		friendSubscribers: make(map[string]map[string]struct{}),
	}
}

// HelloResult carries everything the caller needs to reply to and fan out
// from a PresenceHello, computed under a single critical section.
type HelloResult struct {
	Snapshots              map[string]presenceSnapshotMsg // signing_pubkey (incl. "_friends") -> snapshot for the caller
	AffectedSigningPubkeys []string                       // groups to broadcast online:true on
	FriendBroadcastConns   []string                       // connections to notify of this user's presence as a friend
}

// Hello upserts both indices, computes the snapshots due to the caller, and
// reports which groups now need a PresenceUpdate broadcast. Extends (does
// not replace) the connection's signing_pubkeys on repeat hellos.
func (p *Presence) Hello(connID, userID string, signingPubkeys []string, activeSigningPubkey string, friendUserIDs []string) HelloResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp, ok := p.conns[connID]
	if !ok {
		cp = &connPresence{userID: userID, signingPubkeys: make(map[string]struct{}), friendTargets: make(map[string]struct{})}
		p.conns[connID] = cp
	}

	up, ok := p.users[userID]
	if !ok {
		up = &userPresence{conns: make(map[string]struct{}), signingPubkeys: make(map[string]struct{})}
		p.users[userID] = up
	}
	up.conns[connID] = struct{}{}
	if activeSigningPubkey != "" {
		up.activeSigningPubkey = activeSigningPubkey
	}

	result := HelloResult{Snapshots: make(map[string]presenceSnapshotMsg)}

	for _, sp := range signingPubkeys {
		if sp == "" {
			continue
		}
		cp.signingPubkeys[sp] = struct{}{}
		up.signingPubkeys[sp] = struct{}{}

		if p.groupSubscribers[sp] == nil {
			p.groupSubscribers[sp] = make(map[string]struct{})
		}
		p.groupSubscribers[sp][connID] = struct{}{}

		result.Snapshots[sp] = presenceSnapshotMsg{Type: TypePresenceSnapshot, SigningPubkey: sp, Users: p.snapshotUsersLocked(sp)}
		result.AffectedSigningPubkeys = append(result.AffectedSigningPubkeys, sp)
	}

	if len(friendUserIDs) > maxFriendSubscriptionsPerHello {
		friendUserIDs = friendUserIDs[:maxFriendSubscriptionsPerHello]
	}
	var friendSnapshot []presenceSnapshotUser
	for _, target := range friendUserIDs {
		cp.friendTargets[target] = struct{}{}
		if p.friendSubscribers[target] == nil {
			p.friendSubscribers[target] = make(map[string]struct{})
		}
		p.friendSubscribers[target][connID] = struct{}{}

		if tu, ok := p.users[target]; ok && tu.online() {
			friendSnapshot = append(friendSnapshot, presenceSnapshotUser{UserID: target, ActiveSigningPubkey: tu.activeSigningPubkey})
		}
	}
	result.Snapshots[FriendsPseudoGroup] = presenceSnapshotMsg{Type: TypePresenceSnapshot, SigningPubkey: FriendsPseudoGroup, Users: friendSnapshot}

	for subscriberConnID := range p.friendSubscribers[userID] {
		result.FriendBroadcastConns = append(result.FriendBroadcastConns, subscriberConnID)
	}

	return result
}

// snapshotUsersLocked must be called with mu held.
func (p *Presence) snapshotUsersLocked(signingPubkey string) []presenceSnapshotUser {
	var out []presenceSnapshotUser
	for userID, up := range p.users {
		if !up.online() {
			continue
		}
		if _, ok := up.signingPubkeys[signingPubkey]; ok {
			out = append(out, presenceSnapshotUser{UserID: userID, ActiveSigningPubkey: up.activeSigningPubkey})
		}
	}
	return out
}

// ActiveResult mirrors HelloResult's fan-out fields for PresenceActive.
type ActiveResult struct {
	AffectedSigningPubkeys []string
	FriendBroadcastConns   []string
}

// Active updates the user's active_signing_pubkey and reports every group
// (plus friend subscribers) that must be re-notified.
func (p *Presence) Active(userID, activeSigningPubkey string) ActiveResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	up, ok := p.users[userID]
	if !ok {
		return ActiveResult{}
	}
	up.activeSigningPubkey = activeSigningPubkey

	result := ActiveResult{}
	for sp := range up.signingPubkeys {
		result.AffectedSigningPubkeys = append(result.AffectedSigningPubkeys, sp)
	}
	for connID := range p.friendSubscribers[userID] {
		result.FriendBroadcastConns = append(result.FriendBroadcastConns, connID)
	}
	return result
}

// Subscribers returns the connections currently subscribed to signingPubkey
// (including "_friends" is not meaningful here; friend broadcast targets
// come from FriendBroadcastConns instead).
func (p *Presence) Subscribers(signingPubkey string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.groupSubscribers[signingPubkey]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// UserForConn returns the user_id a connection said hello as, if any.
// ProfilePush requires the caller to have completed hello on the connection;
// this is how dispatch checks that precondition.
func (p *Presence) UserForConn(connID string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp, ok := p.conns[connID]
	if !ok {
		return "", false
	}
	return cp.userID, true
}

// FriendSubscriberConns returns the connections currently subscribed to
// userID's presence as a friend, independent of any particular state
// transition (used by profile announce broadcasts).
func (p *Presence) FriendSubscriberConns(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set := p.friendSubscribers[userID]
	out := make([]string, 0, len(set))
	for connID := range set {
		out = append(out, connID)
	}
	return out
}

// ConnectionsForUser returns every connection currently open for userID,
// used by the friend subsystem to push immediate notifications to an online
// user without waiting for their next hello.
func (p *Presence) ConnectionsForUser(userID string) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	up, ok := p.users[userID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(up.conns))
	for connID := range up.conns {
		out = append(out, connID)
	}
	return out
}

// UserActiveSigningPubkey returns the user's current active group, if any.
func (p *Presence) UserActiveSigningPubkey(userID string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if up, ok := p.users[userID]; ok {
		return up.activeSigningPubkey
	}
	return ""
}

// OnlineUserCount returns the number of users with at least one connection,
// for the presence-users gauge.
func (p *Presence) OnlineUserCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, up := range p.users {
		if up.online() {
			n++
		}
	}
	return n
}

// DisconnectResult reports what a torn-down connection affected.
type DisconnectResult struct {
	UserID                 string
	WentOffline            bool // true iff this was the user's last connection
	AffectedSigningPubkeys []string
	FriendBroadcastConns   []string
}

// Disconnect removes connID from its user's connection set. If that empties
// the set, the user is removed entirely and the groups/friend-subscribers
// that must learn of the user going offline are returned.
func (p *Presence) Disconnect(connID string) DisconnectResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp, ok := p.conns[connID]
	if !ok {
		return DisconnectResult{}
	}
	delete(p.conns, connID)

	for sp := range cp.signingPubkeys {
		if set := p.groupSubscribers[sp]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(p.groupSubscribers, sp)
			}
		}
	}
	for target := range cp.friendTargets {
		if set := p.friendSubscribers[target]; set != nil {
			delete(set, connID)
			if len(set) == 0 {
				delete(p.friendSubscribers, target)
			}
		}
	}

	result := DisconnectResult{UserID: cp.userID}
	up, ok := p.users[cp.userID]
	if !ok {
		return result
	}
	delete(up.conns, connID)
	if up.online() {
		return result
	}

	delete(p.users, cp.userID)
	result.WentOffline = true
	for sp := range up.signingPubkeys {
		result.AffectedSigningPubkeys = append(result.AffectedSigningPubkeys, sp)
	}
	for subscriberConnID := range p.friendSubscribers[cp.userID] {
		result.FriendBroadcastConns = append(result.FriendBroadcastConns, subscriberConnID)
	}
	return result
}
