package hub

import (
	"crypto/rand"
	"sync"
	"time"
)

// friendCodeAlphabet omits visually ambiguous characters (0/O, 1/I, etc.).
const friendCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const friendCodeLength = 8

type friendRequest struct {
	displayName        string
	fromAccountCreated string
	createdAt          time.Time
}

type friendCode struct {
	code      string
	createdAt time.Time
	revoked   bool
}

type codeRedemption struct {
	displayName            string
	redeemerAccountCreated string
	code                   string
}

// Friends is the friend-request state machine, friend-code issuance, and
// code-redemption mailbox.
type Friends struct {
	mu sync.Mutex

	// requests[from][to] is a pending request from "from" to "to".
	requests map[string]map[string]friendRequest

	codes      map[string]*friendCode // owner_user_id -> current code
	codeOwners map[string]string      // code -> owner_user_id

	// redemptions[owner][redeemer] is a pending code redemption addressed
	// to owner.
	redemptions map[string]map[string]codeRedemption
}

func NewFriends() *Friends {
	return &Friends{
		requests:    make(map[string]map[string]friendRequest),
		codes:       make(map[string]*friendCode),
		codeOwners:  make(map[string]string),
		redemptions: make(map[string]map[string]codeRedemption),
	}
}

// RequestOutcome reports what SendRequest did, so the caller knows which
// notifications to push.
type RequestOutcome struct {
	AlreadySent bool
	Mutual      bool // both users now consider each other friends
}

// SendRequest implements the pair state machine in one critical section: a
// repeat send is a no-op, a reciprocal pending request auto-accepts.
// fromAccountCreatedAt is snapshotted at request time, not looked up live, so
// a pending request still renders sensibly if the sender's profile changes
// later.
func (f *Friends) SendRequest(fromUserID, toUserID, displayName, fromAccountCreatedAt string) RequestOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.requests[fromUserID][toUserID]; exists {
		return RequestOutcome{AlreadySent: true}
	}

	if _, exists := f.requests[toUserID][fromUserID]; exists {
		delete(f.requests[toUserID], fromUserID)
		if len(f.requests[toUserID]) == 0 {
			delete(f.requests, toUserID)
		}
		return RequestOutcome{Mutual: true}
	}

	if f.requests[fromUserID] == nil {
		f.requests[fromUserID] = make(map[string]friendRequest)
	}
	f.requests[fromUserID][toUserID] = friendRequest{
		displayName:        displayName,
		fromAccountCreated: fromAccountCreatedAt,
		createdAt:          time.Now(),
	}
	return RequestOutcome{}
}

// Accept removes the pending request from otherUser to byUser. Returns
// false if no such request existed.
func (f *Friends) Accept(byUser, otherUser string) bool {
	return f.removePending(otherUser, byUser)
}

// Decline is identical to Accept in its state effect; the caller chooses
// which outbound event type to push.
func (f *Friends) Decline(byUser, otherUser string) bool {
	return f.removePending(otherUser, byUser)
}

func (f *Friends) removePending(fromUser, toUser string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.requests[fromUser][toUser]; !exists {
		return false
	}
	delete(f.requests[fromUser], toUser)
	if len(f.requests[fromUser]) == 0 {
		delete(f.requests, fromUser)
	}
	return true
}

// CreateCode revokes any prior active code for ownerUserID and issues a
// fresh one, preserving the "at most one active code per owner" invariant.
func (f *Friends) CreateCode(ownerUserID string) (string, error) {
	code, err := generateFriendCode()
	if err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[ownerUserID] = &friendCode{code: code, createdAt: time.Now()}
	f.codeOwners[code] = ownerUserID
	return code, nil
}

// RevokeCode marks the owner's current code revoked, if one exists.
func (f *Friends) RevokeCode(ownerUserID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.codes[ownerUserID]
	if !ok {
		return false
	}
	c.revoked = true
	return true
}

// RedeemOutcome is the result of attempting to redeem a friend code.
type RedeemOutcome int

const (
	RedeemOK RedeemOutcome = iota
	RedeemNotFound
	RedeemGone // code was revoked
	RedeemSelf // redeemer is the code's owner
)

// RedeemCode validates and, on success, inserts a pending redemption
// deduped on (owner, redeemer). Returns the owner_user_id on success so the
// caller can push a notification. redeemerAccountCreatedAt is snapshotted at
// redemption time, same rationale as SendRequest's fromAccountCreatedAt.
func (f *Friends) RedeemCode(code, redeemerUserID, displayName, redeemerAccountCreatedAt string) (owner string, outcome RedeemOutcome) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ownerUserID, ok := f.codeOwners[code]
	if !ok {
		return "", RedeemNotFound
	}
	c := f.codes[ownerUserID]
	if c == nil {
		return "", RedeemNotFound
	}
	if c.code != code || c.revoked {
		return "", RedeemGone // superseded by a newer code, or revoked
	}
	if redeemerUserID == ownerUserID {
		return "", RedeemSelf
	}

	if f.redemptions[ownerUserID] == nil {
		f.redemptions[ownerUserID] = make(map[string]codeRedemption)
	}
	f.redemptions[ownerUserID][redeemerUserID] = codeRedemption{
		displayName:            displayName,
		redeemerAccountCreated: redeemerAccountCreatedAt,
		code:                   code,
	}
	return ownerUserID, RedeemOK
}

// AcceptRedemption and DeclineRedemption both remove the pending record;
// the caller chooses which terminal event to push to the redeemer.
func (f *Friends) AcceptRedemption(ownerUserID, redeemerUserID string) bool {
	return f.removeRedemption(ownerUserID, redeemerUserID)
}

func (f *Friends) DeclineRedemption(ownerUserID, redeemerUserID string) bool {
	return f.removeRedemption(ownerUserID, redeemerUserID)
}

func (f *Friends) removeRedemption(ownerUserID, redeemerUserID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.redemptions[ownerUserID][redeemerUserID]; !exists {
		return false
	}
	delete(f.redemptions[ownerUserID], redeemerUserID)
	if len(f.redemptions[ownerUserID]) == 0 {
		delete(f.redemptions, ownerUserID)
	}
	return true
}

// PendingSnapshot builds the mailbox delivered to userID on its next
// PresenceHello: incoming and outgoing pending requests, plus pending code
// redemptions addressed to userID as a code owner.
func (f *Friends) PendingSnapshot(userID string) friendPendingSnapshotMsg {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := friendPendingSnapshotMsg{Type: TypeFriendPendingSnapshot}
	for fromUser, targets := range f.requests {
		if req, ok := targets[userID]; ok {
			snapshot.PendingIncoming = append(snapshot.PendingIncoming, friendRequestView{
				FromUserID:           fromUser,
				DisplayName:          req.displayName,
				FromAccountCreatedAt: req.fromAccountCreated,
				CreatedAt:            req.createdAt.Unix(),
			})
		}
	}
	for toUser := range f.requests[userID] {
		snapshot.PendingOutgoing = append(snapshot.PendingOutgoing, toUser)
	}
	for redeemer, r := range f.redemptions[userID] {
		snapshot.PendingCodeRedemptions = append(snapshot.PendingCodeRedemptions, codeRedemptionView{
			RedeemerUserID:           redeemer,
			DisplayName:              r.displayName,
			RedeemerAccountCreatedAt: r.redeemerAccountCreated,
			Code:                     r.code,
		})
	}
	return snapshot
}

func generateFriendCode() (string, error) {
	buf := make([]byte, friendCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, friendCodeLength)
	for i, b := range buf {
		out[i] = friendCodeAlphabet[int(b)%len(friendCodeAlphabet)]
	}
	return string(out), nil
}
