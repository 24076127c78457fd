package hub

import (
	"sync"
	"time"

	"github.com/opensignal/signalhub/internal/db/models"
	"gorm.io/gorm"
)

// ServerHints stores the opaque, client-encrypted "server hint" blob each
// group's members keep in sync. The hub never inspects the payload; it only
// upserts and republishes it.
type ServerHints struct {
	db *gorm.DB

	mu    sync.Mutex // guards hints, used only when no SQL backend is configured
	hints map[string]models.ServerHint
}

func NewServerHints(db *gorm.DB) *ServerHints {
	return &ServerHints{db: db, hints: make(map[string]models.ServerHint)}
}

// Put upserts the hint for signingPubkey.
func (h *ServerHints) Put(signingPubkey string, payload []byte) models.ServerHint {
	row := models.ServerHint{SigningPubkey: signingPubkey, EncryptedPayload: payload, UpdatedAt: time.Now()}
	if h.db != nil {
		h.db.Save(&row)
		return row
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hints[signingPubkey] = row
	return row
}

// Get returns the hint for signingPubkey, if one has been registered.
func (h *ServerHints) Get(signingPubkey string) (models.ServerHint, bool) {
	if h.db != nil {
		var row models.ServerHint
		if err := h.db.First(&row, "signing_pubkey = ?", signingPubkey).Error; err != nil {
			return models.ServerHint{}, false
		}
		return row, true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	row, ok := h.hints[signingPubkey]
	return row, ok
}
