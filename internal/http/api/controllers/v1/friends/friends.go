// Package friends implements the HMAC-authenticated friend-request, friend
// code, and code-redemption endpoints. Every handler pushes its terminal
// event to the counterparty's open WebSocket connections immediately, with
// a best-effort email as the fallback when the counterparty has none.
package friends

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opensignal/signalhub/internal/config"
	"github.com/opensignal/signalhub/internal/hub"
	"github.com/opensignal/signalhub/internal/http/api/middleware"
	"github.com/opensignal/signalhub/internal/http/api/utils"
	"github.com/opensignal/signalhub/internal/smtp"
)

// callerUserID reads the user ID the FriendAuth middleware verified for this
// request. The middleware runs first on every route in this package, so a
// missing value here is a wiring bug rather than a client error.
func callerUserID(c *gin.Context) string {
	return c.GetString(middleware.FriendAuthUserIDKey)
}

// pushOrEmail delivers raw to every open connection userID currently has. If
// userID has none, it falls back to a best-effort notification email rather
// than silently dropping the event, since no pending-snapshot mailbox exists
// for these terminal events (only plain friend requests ride the snapshot).
func pushOrEmail(h *hub.Hub, cfg *config.SMTP, userID string, raw []byte, fromDisplayName string) {
	conns := h.Presence.ConnectionsForUser(userID)
	if len(conns) == 0 {
		notifyEmail, ok := h.Profiles.NotifyEmailFor(userID)
		if ok {
			smtp.NotifyFriendRequest(cfg, notifyEmail, fromDisplayName)
		}
		return
	}
	for _, connID := range conns {
		mailbox, ok := h.Signaling.ConnSender(connID)
		if !ok {
			continue
		}
		mailbox.Send(raw)
	}
}

type friendRequestAcceptedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type friendRequestDeclinedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type friendCodeRedemptionIncomingMsg struct {
	Type                     string `json:"type"`
	RedeemerUserID           string `json:"redeemer_user_id"`
	DisplayName              string `json:"display_name"`
	RedeemerAccountCreatedAt string `json:"redeemer_account_created_at,omitempty"`
	Code                     string `json:"code"`
}

type friendCodeRedemptionAcceptedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type friendCodeRedemptionDeclinedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

type sendRequestRequest struct {
	ToUserID         string `json:"to_user_id" binding:"required"`
	DisplayName      string `json:"display_name"`
	AccountCreatedAt string `json:"account_created_at,omitempty"`
}

// POSTSendRequest implements the pending/mutual-accept state machine. A
// mutual accept pushes FriendRequestAccepted to both sides immediately; a
// fresh pending request has no live push event and relies on the recipient's
// next presence hello snapshot, so it is only ever announced by email.
func POSTSendRequest(c *gin.Context) {
	var req sendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	fromUserID := callerUserID(c)

	outcome := h.Friends.SendRequest(fromUserID, req.ToUserID, req.DisplayName, req.AccountCreatedAt)
	switch {
	case outcome.Mutual:
		toMsg, _ := json.Marshal(friendRequestAcceptedMsg{Type: hub.TypeFriendRequestAccepted, UserID: fromUserID})
		pushOrEmail(h, &cfg.SMTP, req.ToUserID, toMsg, req.DisplayName)
		fromMsg, _ := json.Marshal(friendRequestAcceptedMsg{Type: hub.TypeFriendRequestAccepted, UserID: req.ToUserID})
		pushOrEmail(h, &cfg.SMTP, fromUserID, fromMsg, req.DisplayName)
	case outcome.AlreadySent:
		// no-op: idempotent resend, nothing to push
	default:
		if notifyEmail, ok := h.Profiles.NotifyEmailFor(req.ToUserID); ok {
			smtp.NotifyFriendRequest(&cfg.SMTP, notifyEmail, req.DisplayName)
		}
	}

	c.JSON(http.StatusOK, gin.H{"already_sent": outcome.AlreadySent, "mutual": outcome.Mutual})
}

type respondRequestRequest struct {
	FromUserID string `json:"from_user_id" binding:"required"`
}

// POSTAcceptRequest accepts a pending incoming request and pushes
// FriendRequestAccepted to the original sender.
func POSTAcceptRequest(c *gin.Context) {
	var req respondRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	byUser := callerUserID(c)

	if !h.Friends.Accept(byUser, req.FromUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending request from that user"})
		return
	}
	raw, _ := json.Marshal(friendRequestAcceptedMsg{Type: hub.TypeFriendRequestAccepted, UserID: byUser})
	pushOrEmail(h, &cfg.SMTP, req.FromUserID, raw, "")
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// POSTDeclineRequest declines a pending incoming request and pushes
// FriendRequestDeclined to the original sender.
func POSTDeclineRequest(c *gin.Context) {
	var req respondRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	byUser := callerUserID(c)

	if !h.Friends.Decline(byUser, req.FromUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending request from that user"})
		return
	}
	raw, _ := json.Marshal(friendRequestDeclinedMsg{Type: hub.TypeFriendRequestDeclined, UserID: byUser})
	pushOrEmail(h, &cfg.SMTP, req.FromUserID, raw, "")
	c.JSON(http.StatusOK, gin.H{"declined": true})
}

// POSTCreateCode issues a fresh friend code for the caller, revoking any
// prior active code.
func POSTCreateCode(c *gin.Context) {
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	code, err := h.Friends.CreateCode(callerUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code})
}

// POSTRevokeCode revokes the caller's current friend code, if any.
func POSTRevokeCode(c *gin.Context) {
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	if !h.Friends.RevokeCode(callerUserID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active code"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

type redeemCodeRequest struct {
	Code             string `json:"code" binding:"required"`
	DisplayName      string `json:"display_name"`
	AccountCreatedAt string `json:"account_created_at,omitempty"`
}

// POSTRedeemCode validates a friend code and, on success, pushes
// FriendCodeRedemptionIncoming to the code's owner.
func POSTRedeemCode(c *gin.Context) {
	var req redeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	redeemerUserID := callerUserID(c)

	owner, outcome := h.Friends.RedeemCode(req.Code, redeemerUserID, req.DisplayName, req.AccountCreatedAt)
	switch outcome {
	case hub.RedeemOK:
		raw, _ := json.Marshal(friendCodeRedemptionIncomingMsg{
			Type: hub.TypeFriendCodeRedemptionIncoming, RedeemerUserID: redeemerUserID,
			DisplayName: req.DisplayName, RedeemerAccountCreatedAt: req.AccountCreatedAt, Code: req.Code,
		})
		pushOrEmail(h, &cfg.SMTP, owner, raw, req.DisplayName)
		c.JSON(http.StatusOK, gin.H{"redeemed": true})
	case hub.RedeemNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "code not found"})
	case hub.RedeemGone:
		c.JSON(http.StatusGone, gin.H{"error": "code has been revoked"})
	case hub.RedeemSelf:
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot redeem your own code"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unexpected redemption outcome"})
	}
}

type respondRedemptionRequest struct {
	RedeemerUserID string `json:"redeemer_user_id" binding:"required"`
}

// POSTAcceptRedemption accepts a pending code redemption and pushes
// FriendCodeRedemptionAccepted to the redeemer.
func POSTAcceptRedemption(c *gin.Context) {
	var req respondRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	owner := callerUserID(c)

	if !h.Friends.AcceptRedemption(owner, req.RedeemerUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending redemption from that user"})
		return
	}
	raw, _ := json.Marshal(friendCodeRedemptionAcceptedMsg{Type: hub.TypeFriendCodeRedemptionAccepted, UserID: owner})
	pushOrEmail(h, &cfg.SMTP, req.RedeemerUserID, raw, "")
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

// POSTDeclineRedemption declines a pending code redemption and pushes
// FriendCodeRedemptionDeclined to the redeemer.
func POSTDeclineRedemption(c *gin.Context) {
	var req respondRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	h, ok := utils.GetHub(c)
	if !ok {
		return
	}
	cfg, ok := utils.GetConfig(c)
	if !ok {
		return
	}
	owner := callerUserID(c)

	if !h.Friends.DeclineRedemption(owner, req.RedeemerUserID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pending redemption from that user"})
		return
	}
	raw, _ := json.Marshal(friendCodeRedemptionDeclinedMsg{Type: hub.TypeFriendCodeRedemptionDeclined, UserID: owner})
	pushOrEmail(h, &cfg.SMTP, req.RedeemerUserID, raw, "")
	c.JSON(http.StatusOK, gin.H{"declined": true})
}
