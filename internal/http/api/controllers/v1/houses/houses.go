// Package houses exposes the cheap catch-up summary for a group's server
// hint, returned to a new joiner before it pages through the full event
// queue. It is the same last-write-wins blob as the servers package's hint
// endpoints, under the path the original client build expects.
package houses

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/http/api/utils"
)

type hintRequest struct {
	EncryptedPayload []byte `json:"encrypted_payload"`
}

type hintResponse struct {
	SigningPubkey    string `json:"signing_pubkey"`
	EncryptedPayload []byte `json:"encrypted_payload"`
	UpdatedAt        int64  `json:"updated_at"`
}

// GETHint returns the current house hint, or 404 if none has been
// registered yet.
func GETHint(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	row, ok := h.ServerHints.Get(signingPubkey)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no hint registered for this house"})
		return
	}
	c.JSON(http.StatusOK, hintResponse{SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload, UpdatedAt: row.UpdatedAt.Unix()})
}

// PUTHint upserts the house hint and republishes it to every connection
// currently subscribed to the group.
func PUTHint(c *gin.Context) {
	signingPubkey := c.Param("signing_pubkey")
	var req hintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	row := h.ServerHints.Put(signingPubkey, req.EncryptedPayload)
	h.Broadcast.Group(signingPubkey, hintUpdatedMsg(signingPubkey, row.EncryptedPayload))
	c.JSON(http.StatusOK, hintResponse{SigningPubkey: row.SigningPubkey, EncryptedPayload: row.EncryptedPayload, UpdatedAt: row.UpdatedAt.Unix()})
}

type hintUpdatedPayload struct {
	Type             string `json:"type"`
	SigningPubkey    string `json:"signing_pubkey"`
	EncryptedPayload []byte `json:"encrypted_payload"`
}

func hintUpdatedMsg(signingPubkey string, payload []byte) hintUpdatedPayload {
	return hintUpdatedPayload{Type: hub.TypeServerHintUpdated, SigningPubkey: signingPubkey, EncryptedPayload: payload}
}
