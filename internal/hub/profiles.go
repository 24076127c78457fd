package hub

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opensignal/signalhub/internal/db/models"
	"gorm.io/gorm"
)

type profileEntry struct {
	displayName  string
	realName     string
	showRealName bool
	rev          int64
	notifyEmail  string
}

// Profiles is the revision-monotone profile cache. A SQL backend, when
// configured, is the durable source of truth; the in-memory cache always
// exists so the hub serves correctly with no backend at all.
type Profiles struct {
	mu    sync.RWMutex
	cache map[string]profileEntry // user_id -> entry
	db    *gorm.DB
}

func NewProfiles(db *gorm.DB) *Profiles {
	return &Profiles{cache: make(map[string]profileEntry), db: db}
}

// Announce stores the given fields iff rev > stored.rev. Returns true if the
// announce was accepted, so the caller knows whether to broadcast
// ProfileUpdate.
func (p *Profiles) Announce(userID, displayName, realName string, showRealName bool, rev int64) bool {
	p.mu.Lock()
	stored, ok := p.cache[userID]
	if ok && rev <= stored.rev {
		p.mu.Unlock()
		return false
	}
	p.cache[userID] = profileEntry{displayName: displayName, realName: realName, showRealName: showRealName, rev: rev}
	p.mu.Unlock()

	if p.db != nil {
		if err := p.persist(userID, displayName, realName, showRealName, rev); err != nil {
			slog.Warn("failed to persist profile announce", "user_id", userID, "error", err)
		}
	}
	return true
}

// persist writes the profile row under a transaction that re-checks rev
// monotonicity against the durable store, so a concurrent writer via a
// different replica can't regress a newer row.
func (p *Profiles) persist(userID, displayName, realName string, showRealName bool, rev int64) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Profile
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no existing row, fall through to create
		case err != nil:
			return err
		case rev <= existing.Rev:
			return nil
		}
		row := models.Profile{
			UserID:       userID,
			DisplayName:  displayName,
			RealName:     realName,
			ShowRealName: showRealName,
			Rev:          rev,
			UpdatedAt:    time.Now(),
		}
		return tx.Save(&row).Error
	})
}

// Hello returns the current records for the requested user_ids. Per the
// resolved open question, the SQL backend is preferred when configured; on
// a SQL error this logs a warning and falls back to the in-memory cache
// rather than returning an error to the WebSocket client.
func (p *Profiles) Hello(userIDs []string) []profileRecord {
	if p.db != nil {
		records, err := p.helloFromSQL(userIDs)
		if err == nil {
			return records
		}
		slog.Warn("profile hello: sql backend failed, falling back to memory", "error", err)
	}
	return p.helloFromCache(userIDs)
}

func (p *Profiles) helloFromSQL(userIDs []string) ([]profileRecord, error) {
	var rows []models.Profile
	if err := p.db.Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]profileRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, profileRecord{UserID: r.UserID, DisplayName: r.DisplayName, RealName: r.RealName, ShowRealName: r.ShowRealName, Rev: r.Rev})
	}
	return out, nil
}

// SetNotifyEmail stores an optional best-effort notification address for
// userID, used only by the friend-request email enrichment. It does not
// participate in rev monotonicity, since it is metadata about the account
// rather than gossiped profile content.
func (p *Profiles) SetNotifyEmail(userID, email string) {
	p.mu.Lock()
	entry := p.cache[userID]
	entry.notifyEmail = email
	p.cache[userID] = entry
	p.mu.Unlock()

	if p.db != nil {
		if err := p.db.Model(&models.Profile{}).Where("user_id = ?", userID).Update("notify_email", email).Error; err != nil {
			slog.Warn("failed to persist notify email", "user_id", userID, "error", err)
		}
	}
}

// NotifyEmailFor returns the stored notification address for userID, if any.
func (p *Profiles) NotifyEmailFor(userID string) (string, bool) {
	if p.db != nil {
		var row models.Profile
		if err := p.db.Select("notify_email").Where("user_id = ?", userID).First(&row).Error; err == nil {
			return row.NotifyEmail, row.NotifyEmail != ""
		}
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	entry, ok := p.cache[userID]
	return entry.notifyEmail, ok && entry.notifyEmail != ""
}

func (p *Profiles) helloFromCache(userIDs []string) []profileRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]profileRecord, 0, len(userIDs))
	for _, userID := range userIDs {
		entry, ok := p.cache[userID]
		if !ok {
			continue
		}
		out = append(out, profileRecord{UserID: userID, DisplayName: entry.displayName, RealName: entry.realName, ShowRealName: entry.showRealName, Rev: entry.rev})
	}
	return out
}
