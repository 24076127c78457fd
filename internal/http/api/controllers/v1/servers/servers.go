// Package servers implements the per-group HTTP surface: the opaque server
// hint blob, invite-token lifecycle, and the event queue's insert/replay/ack
// operations. None of it inspects the encrypted payloads it stores.
package servers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/http/api/utils"
)

type registerHintRequest struct {
	EncryptedPayload []byte `json:"encrypted_payload"`
}

type hintResponse struct {
	SigningPubkey    string `json:"signing_pubkey"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	UpdatedAt        int64  `json:"updated_at"`
}

// POSTRegisterHint upserts the server hint for signing_pubkey and republishes
// it to every connection currently registered against that group.
func POSTRegisterHint(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	var req registerHintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h, ok := utils.GetHub(c)
	if !ok {
		return
	}

	row := h.ServerHints.Put(signingPubkey, req.EncryptedPayload)
	h.Broadcast.Group(signingPubkey, serverHintUpdatedMsg(signingPubkey, row.EncryptedPayload))

	c.JSON(http.StatusOK, hintResponse{SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload, UpdatedAt: row.UpdatedAt.Unix()})
}

// GETHint returns the current hint for signing_pubkey, or 404 if none has
// ever been registered.
func GETHint(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	row, ok := h.ServerHints.Get(signingPubkey)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hint registered for this server"})
		return
	}
	c.JSON(http.StatusOK, hintResponse{SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload, UpdatedAt: row.UpdatedAt.Unix()})
}

type serverHintUpdatedPayload struct {
	Type             string `json:"type"`
	SigningPubkey    string `json:"signing_pubkey"`
	EncryptedPayload []byte `json:"encrypted_payload"`
}

func serverHintUpdatedMsg(signingPubkey string, payload []byte) serverHintUpdatedPayload {
	return serverHintUpdatedPayload{Type: hub.TypeServerHintUpdated, SigningPubkey: signingPubkey, EncryptedPayload: payload}
}

type createInviteRequest struct {
	Code             string `json:"code"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	Signature        []byte `json:"signature"`
	MaxUses          int    `json:"max_uses"`
}

type inviteResponse struct {
	Code             string `json:"code"`
	SigningPubkey    string `json:"signing_pubkey"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	Signature        []byte `json:"signature"`
	CreatedAt        int64  `json:"created_at"`
	ExpiresAt        int64  `json:"expires_at"`
	MaxUses          int    `json:"max_uses"`
	RemainingUses    int    `json:"remaining_uses"`
}

// POSTCreateInvite validates and stores a fresh invite token for
// signing_pubkey, upserted by code.
func POSTCreateInvite(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	h, ok := utils.GetHub(c)
	if !ok {
		return
	}

	row, err := h.Invites.Put(signingPubkey, req.Code, req.EncryptedPayload, req.Signature, req.MaxUses)
	if err != nil {
		if errors.Is(err, hub.ErrInviteCodeLength) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invite"})
		return
	}

	c.JSON(http.StatusOK, inviteResponse{
		Code: row.Code, SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload,
		Signature: row.Signature, CreatedAt: row.CreatedAt.Unix(), ExpiresAt: row.ExpiresAt.Unix(),
		MaxUses: row.MaxUses, RemainingUses: row.RemainingUses,
	})
}

// GETInvite returns the unredeemed state of an invite token, or 404 if it is
// unknown or expired.
func GETInvite(c *gin.Context) {
	code := c.Param("code")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	row, ok := h.Invites.Get(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found or expired"})
		return
	}
	c.JSON(http.StatusOK, inviteResponse{
		Code: row.Code, SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload,
		Signature: row.Signature, CreatedAt: row.CreatedAt.Unix(), ExpiresAt: row.ExpiresAt.Unix(),
		MaxUses: row.MaxUses, RemainingUses: row.RemainingUses,
	})
}

// POSTRedeemInvite performs the atomic redemption. A 404 covers both an
// unknown code and an exhausted finite-use code, matching the error taxonomy
// that does not distinguish the two to unauthenticated callers.
func POSTRedeemInvite(c *gin.Context) {
	code := c.Param("code")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	row, ok := h.Invites.Redeem(code)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found, expired, or exhausted"})
		return
	}
	c.JSON(http.StatusOK, inviteResponse{
		Code: row.Code, SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload,
		Signature: row.Signature, CreatedAt: row.CreatedAt.Unix(), ExpiresAt: row.ExpiresAt.Unix(),
		MaxUses: row.MaxUses, RemainingUses: row.RemainingUses,
	})
}

// POSTRevokeInvite deletes the invite token outright.
func POSTRevokeInvite(c *gin.Context) {
	code := c.Param("code")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	if !h.Invites.Revoke(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "invite not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

type insertEventRequest struct {
	EventID          string `json:"event_id"`
	EventType        string `json:"event_type"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	Signature        []byte `json:"signature"`
}

type eventResponse struct {
	EventID          string `json:"event_id"`
	SigningPubkey    string `json:"signing_pubkey"`
	EventType        string `json:"event_type"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	Signature        []byte `json:"signature"`
	Timestamp        int64  `json:"timestamp"`
}

func toEventResponse(rec hub.EventRecord) eventResponse {
	return eventResponse{
		EventID: rec.EventID, SigningPubkey: rec.SigningPubkey, EventType: rec.EventType,
		EncryptedPayload: rec.EncryptedPayload, Signature: rec.Signature, Timestamp: rec.Timestamp.Unix(),
	}
}

// POSTInsertEvent appends an event to signing_pubkey's queue, deduplicating
// on event_id.
func POSTInsertEvent(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	var req insertEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	rec := h.Events.Insert(signingPubkey, req.EventID, req.EventType, req.EncryptedPayload, req.Signature)
	c.JSON(http.StatusOK, toEventResponse(rec))
}

// GETEvents replays events for signing_pubkey since the given cursor,
// implementing the ?since= cursor query parameter.
func GETEvents(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	since := c.Query("since")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	records := h.Events.Get(signingPubkey, since)
	out := make([]eventResponse, len(records))
	for i, rec := range records {
		out[i] = toEventResponse(rec)
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

type ackEventsRequest struct {
	UserID      string `json:"user_id"`
	LastEventID string `json:"last_event_id"`
}

// POSTAckEvents upserts a soft bookmark; never consulted for replay
// correctness.
func POSTAckEvents(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	var req ackEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	if err := h.Events.Ack(signingPubkey, req.UserID, req.LastEventID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record ack"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acked": true})
}
