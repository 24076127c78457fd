package hub

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opensignal/signalhub/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	inviteCodeMinLen = 10
	inviteCodeMaxLen = 64
	inviteTTL        = 30 * 24 * time.Hour
)

// ErrInviteCodeLength is returned by Put when code is outside [10, 64].
var ErrInviteCodeLength = errors.New("invite code must be between 10 and 64 characters")

type inviteEntry struct {
	signingPubkey    string
	encryptedPayload []byte
	signature        []byte
	createdAt        time.Time
	expiresAt        time.Time
	maxUses          int
	remainingUses    int
}

func (e *inviteEntry) expired(now time.Time) bool { return !e.expiresAt.After(now) }

func (e *inviteEntry) toRecord(code string) models.InviteToken {
	return models.InviteToken{
		Code: code, SigningPubkey: e.signingPubkey, EncryptedPayload: e.encryptedPayload,
		Signature: e.signature, CreatedAt: e.createdAt, ExpiresAt: e.expiresAt,
		MaxUses: e.maxUses, RemainingUses: e.remainingUses,
	}
}

// Invites is the invite-token lifecycle: creation, lookup, atomic
// redemption, revocation, and expiry GC. Redeem is the single most
// important correctness invariant in the subsystem: concurrent redeems of a
// finite-use code must never collectively succeed more than max_uses times.
type Invites struct {
	mu     sync.Mutex
	tokens map[string]*inviteEntry // used when no SQL backend is configured
	db     *gorm.DB
}

func NewInvites(db *gorm.DB) *Invites {
	return &Invites{tokens: make(map[string]*inviteEntry), db: db}
}

// Put validates the code length and upserts a fresh token by code.
func (inv *Invites) Put(signingPubkey, code string, payload, signature []byte, maxUses int) (models.InviteToken, error) {
	if len(code) < inviteCodeMinLen || len(code) > inviteCodeMaxLen {
		return models.InviteToken{}, ErrInviteCodeLength
	}

	now := time.Now()
	entry := &inviteEntry{
		signingPubkey: signingPubkey, encryptedPayload: payload, signature: signature,
		createdAt: now, expiresAt: now.Add(inviteTTL), maxUses: maxUses, remainingUses: maxUses,
	}

	if inv.db != nil {
		row := entry.toRecord(code)
		if err := inv.db.Save(&row).Error; err != nil {
			return models.InviteToken{}, fmt.Errorf("failed to save invite token: %w", err)
		}
		return row, nil
	}

	inv.mu.Lock()
	inv.tokens[code] = entry
	inv.mu.Unlock()
	return entry.toRecord(code), nil
}

// Get returns the token if it exists and has not expired.
func (inv *Invites) Get(code string) (models.InviteToken, bool) {
	if inv.db != nil {
		var row models.InviteToken
		if err := inv.db.First(&row, "code = ?", code).Error; err != nil {
			return models.InviteToken{}, false
		}
		if !row.ExpiresAt.After(time.Now()) {
			return models.InviteToken{}, false
		}
		return row, true
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	entry, ok := inv.tokens[code]
	if !ok || entry.expired(time.Now()) {
		return models.InviteToken{}, false
	}
	return entry.toRecord(code), true
}

// Redeem performs the atomic decrement-or-unlimited redemption. ok is false
// for an expired/unknown code or an exhausted finite-use code; the caller
// maps that to a 404.
func (inv *Invites) Redeem(code string) (models.InviteToken, bool) {
	if inv.db != nil {
		return inv.redeemSQL(code)
	}
	return inv.redeemMemory(code)
}

func (inv *Invites) redeemMemory(code string) (models.InviteToken, bool) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	entry, ok := inv.tokens[code]
	if !ok || entry.expired(time.Now()) {
		return models.InviteToken{}, false
	}
	if entry.maxUses == 0 {
		return entry.toRecord(code), true
	}
	if entry.remainingUses <= 0 {
		return models.InviteToken{}, false
	}
	entry.remainingUses--
	return entry.toRecord(code), true
}

// redeemSQL locks the row for the duration of the transaction so concurrent
// redeems against the same code serialize on the database rather than racing
// in application memory.
func (inv *Invites) redeemSQL(code string) (models.InviteToken, bool) {
	var result models.InviteToken
	var ok bool

	err := inv.db.Transaction(func(tx *gorm.DB) error {
		var row models.InviteToken
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "code = ?", code).Error; err != nil {
			return nil // not found: ok stays false
		}
		if !row.ExpiresAt.After(time.Now()) {
			return nil
		}
		if row.MaxUses == 0 {
			result, ok = row, true
			return nil
		}
		if row.RemainingUses <= 0 {
			return nil
		}
		row.RemainingUses--
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		result, ok = row, true
		return nil
	})
	if err != nil {
		return models.InviteToken{}, false
	}
	return result, ok
}

// Revoke deletes the token outright.
func (inv *Invites) Revoke(code string) bool {
	if inv.db != nil {
		res := inv.db.Delete(&models.InviteToken{}, "code = ?", code)
		return res.Error == nil && res.RowsAffected > 0
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.tokens[code]; !ok {
		return false
	}
	delete(inv.tokens, code)
	return true
}

// GC deletes expired tokens. Intended to run on a periodic schedule.
func (inv *Invites) GC() (removed int) {
	now := time.Now()
	if inv.db != nil {
		res := inv.db.Where("expires_at <= ?", now).Delete(&models.InviteToken{})
		if res.Error == nil {
			removed = int(res.RowsAffected)
		}
		return removed
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	for code, entry := range inv.tokens {
		if entry.expired(now) {
			delete(inv.tokens, code)
			removed++
		}
	}
	return removed
}
