package hub

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Connection identifies one accepted WebSocket connection for the purposes
// of dispatch and teardown. The transport layer (internal/http/websocket)
// owns the socket itself; Dispatch only ever sees the raw frame bytes plus
// this identifier.
type Connection struct {
	ID      string
	Address string
}

const maxProfilePushTargets = 500

// Dispatch decodes one inbound frame and routes it to the owning subsystem,
// exhaustively matching every type in the envelope's tagged variant. An
// unrecognized type, or a frame that fails to decode, yields an Error reply
// rather than closing the connection.
func (h *Hub) Dispatch(conn *Connection, raw []byte) {
	h.bytesRecv.Add(int64(len(raw)))

	msgType, err := peekType(raw)
	if err != nil {
		h.reply(conn, newErrorMsg("Invalid message"))
		return
	}

	switch msgType {
	case TypeRegister:
		h.handleRegister(conn, raw)
	case TypePresenceHello:
		h.handlePresenceHello(conn, raw)
	case TypePresenceActive:
		h.handlePresenceActive(conn, raw)
	case TypeProfileAnnounce:
		h.handleProfileAnnounce(conn, raw)
	case TypeProfileHello:
		h.handleProfileHello(conn, raw)
	case TypeProfilePush:
		h.handleProfilePush(conn, raw)
	case TypeOffer, TypeAnswer, TypeIceCandidate:
		h.handleSignaling(conn, raw)
	case TypeVoiceRegister:
		h.handleVoiceRegister(conn, raw)
	case TypeVoiceUnregister:
		h.handleVoiceUnregister(conn, raw)
	case TypeVoiceOffer, TypeVoiceAnswer, TypeVoiceIceCandidate:
		h.handleVoiceSignaling(conn, raw)
	case TypePing:
		h.reply(conn, newPongMsg())
	case TypePong:
		// ignored
	default:
		h.reply(conn, newErrorMsg("Invalid message type"))
	}
}

// reply sends msg directly to conn, bypassing broadcast, for request/reply
// exchanges that only the caller should see.
func (h *Hub) reply(conn *Connection, msg any) {
	raw, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal reply", "error", err)
		return
	}
	if mb, ok := h.Signaling.ConnSender(conn.ID); ok {
		mb.Send(raw)
		h.bytesSent.Add(int64(len(raw)))
	}
}

func (h *Hub) handleRegister(conn *Connection, raw []byte) {
	var m registerMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.PeerID == "" {
		h.reply(conn, newErrorMsg("Invalid Register frame"))
		return
	}
	if strings.HasPrefix(m.PeerID, ReservedFriendPeerPrefix) {
		h.reply(conn, newErrorMsg("peer_id uses a reserved prefix"))
		return
	}

	peers, err := h.Signaling.Register(m.PeerID, m.GroupID, m.SigningPubkey, conn.ID)
	if err != nil {
		h.reply(conn, newErrorMsg("connection not ready"))
		return
	}
	h.reply(conn, registeredMsg{Type: TypeRegistered, PeerID: m.PeerID, Peers: peers})
}

func (h *Hub) handlePresenceHello(conn *Connection, raw []byte) {
	var m presenceHelloMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.UserID == "" {
		h.reply(conn, newErrorMsg("Invalid PresenceHello frame"))
		return
	}

	friendPeerID := ReservedFriendPeerPrefix + conn.ID
	if _, err := h.Signaling.Register(friendPeerID, "", "", conn.ID); err != nil {
		h.reply(conn, newErrorMsg("connection not ready"))
		return
	}

	result := h.Presence.Hello(conn.ID, m.UserID, m.SigningPubkeys, m.ActiveSigningPubkey, m.FriendUserIDs)

	for sp, snapshot := range result.Snapshots {
		h.reply(conn, snapshot)
		if sp != FriendsPseudoGroup {
			h.Broadcast.EnsureGroupSubscribed(sp)
		}
	}
	h.reply(conn, h.Friends.PendingSnapshot(m.UserID))

	active := h.Presence.UserActiveSigningPubkey(m.UserID)
	for _, sp := range result.AffectedSigningPubkeys {
		h.Broadcast.Group(sp, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: sp, UserID: m.UserID, Online: true, ActiveSigningPubkey: active})
	}
	if len(result.FriendBroadcastConns) > 0 {
		h.Broadcast.DirectMany(result.FriendBroadcastConns, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: FriendsPseudoGroup, UserID: m.UserID, Online: true, ActiveSigningPubkey: active})
	}
}

func (h *Hub) handlePresenceActive(conn *Connection, raw []byte) {
	var m presenceActiveMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.UserID == "" {
		h.reply(conn, newErrorMsg("Invalid PresenceActive frame"))
		return
	}

	result := h.Presence.Active(m.UserID, m.ActiveSigningPubkey)
	for _, sp := range result.AffectedSigningPubkeys {
		h.Broadcast.Group(sp, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: sp, UserID: m.UserID, Online: true, ActiveSigningPubkey: m.ActiveSigningPubkey})
	}
	if len(result.FriendBroadcastConns) > 0 {
		h.Broadcast.DirectMany(result.FriendBroadcastConns, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: FriendsPseudoGroup, UserID: m.UserID, Online: true, ActiveSigningPubkey: m.ActiveSigningPubkey})
	}
}

func (h *Hub) handleProfileAnnounce(conn *Connection, raw []byte) {
	var m profileAnnounceMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.UserID == "" {
		h.reply(conn, newErrorMsg("Invalid ProfileAnnounce frame"))
		return
	}

	if !h.Profiles.Announce(m.UserID, m.DisplayName, m.RealName, m.ShowRealName, m.Rev) {
		return
	}

	update := profileUpdateMsg{Type: TypeProfileUpdate, UserID: m.UserID, DisplayName: m.DisplayName, RealName: m.RealName, ShowRealName: m.ShowRealName, Rev: m.Rev}
	for _, sp := range m.SigningPubkeys {
		if sp == "" {
			continue
		}
		h.Broadcast.Group(sp, update)
	}
	if conns := h.Presence.FriendSubscriberConns(m.UserID); len(conns) > 0 {
		h.Broadcast.DirectMany(conns, update)
	}
}

func (h *Hub) handleProfileHello(conn *Connection, raw []byte) {
	var m profileHelloMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		h.reply(conn, newErrorMsg("Invalid ProfileHello frame"))
		return
	}
	records := h.Profiles.Hello(m.UserIDs)
	h.reply(conn, profileSnapshotMsg{Type: TypeProfileSnapshot, SigningPubkey: m.SigningPubkey, Profiles: records})
}

func (h *Hub) handleProfilePush(conn *Connection, raw []byte) {
	var m profilePushMsg
	if err := json.Unmarshal(raw, &m); err != nil {
		h.reply(conn, newErrorMsg("Invalid ProfilePush frame"))
		return
	}

	fromUserID, ok := h.Presence.UserForConn(conn.ID)
	if !ok {
		h.reply(conn, newErrorMsg("ProfilePush requires PresenceHello first"))
		return
	}

	targets := m.ToUserIDs
	if len(targets) > maxProfilePushTargets {
		targets = targets[:maxProfilePushTargets]
	}

	incoming := profilePushIncomingMsg{
		Type: TypeProfilePushIncoming, FromUserID: fromUserID, DisplayName: m.DisplayName, RealName: m.RealName,
		ShowRealName: m.ShowRealName, Rev: m.Rev, AvatarDataURL: m.AvatarDataURL, AvatarRev: m.AvatarRev,
		AccountCreatedAt: m.AccountCreatedAt,
	}
	for _, target := range targets {
		if target == "" || target == fromUserID {
			continue
		}
		if conns := h.Presence.ConnectionsForUser(target); len(conns) > 0 {
			h.Broadcast.DirectMany(conns, incoming)
		}
	}
}

func (h *Hub) handleSignaling(conn *Connection, raw []byte) {
	var m signalingMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.FromPeer == "" || m.ToPeer == "" {
		h.reply(conn, newErrorMsg("Invalid signaling frame"))
		return
	}
	if !h.Signaling.Validate(m.FromPeer, conn.ID) {
		h.reply(conn, newErrorMsg("unauthorized peer_id"))
		return
	}
	h.Signaling.Forward(conn.ID, m.FromPeer, m.ToPeer, raw)
}

func (h *Hub) handleVoiceRegister(conn *Connection, raw []byte) {
	var m voiceRegisterMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.PeerID == "" || m.ChatID == "" {
		h.reply(conn, newErrorMsg("Invalid VoiceRegister frame"))
		return
	}

	others := h.Voice.Register(m.PeerID, m.UserID, m.GroupID, m.ChatID, conn.ID, m.SigningPubkey)

	peerIDs := make([]string, len(others))
	for i, p := range others {
		peerIDs[i] = p.peerID
	}
	h.reply(conn, voiceRegisteredMsg{Type: TypeVoiceRegistered, PeerID: m.PeerID, ChatID: m.ChatID, Peers: peerIDs})

	joined := voicePeerJoinedMsg{Type: TypeVoicePeerJoined, PeerID: m.PeerID, UserID: m.UserID, ChatID: m.ChatID}
	for _, p := range others {
		h.Broadcast.Direct(p.connID, joined)
	}
	if m.SigningPubkey != "" {
		h.Broadcast.Group(m.SigningPubkey, voicePresenceUpdateMsg{Type: TypeVoicePresenceUpdate, SigningPubkey: m.SigningPubkey, ChatID: m.ChatID, UserID: m.UserID, InVoice: true})
	}
}

func (h *Hub) handleVoiceUnregister(conn *Connection, raw []byte) {
	var m voiceUnregisterMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.PeerID == "" || m.ChatID == "" {
		h.reply(conn, newErrorMsg("Invalid VoiceUnregister frame"))
		return
	}

	groupID, ok := h.Voice.ResolveGroup(m.ChatID)
	if !ok {
		return
	}
	h.dropVoicePeer(groupID, m.ChatID, m.PeerID)
}

// dropVoicePeer performs the shared unregister-and-broadcast logic used by
// both an explicit VoiceUnregister frame and connection teardown.
func (h *Hub) dropVoicePeer(groupID, chatID, peerID string) {
	remaining := h.Voice.Occupants(groupID, chatID)

	userID, signingPubkey, ok := h.Voice.Unregister(peerID, groupID, chatID)
	if !ok {
		return
	}

	left := voicePeerLeftMsg{Type: TypeVoicePeerLeft, PeerID: peerID, UserID: userID, ChatID: chatID}
	for _, p := range remaining {
		if p.peerID == peerID {
			continue
		}
		h.Broadcast.Direct(p.connID, left)
	}
	if signingPubkey != "" {
		h.Broadcast.Group(signingPubkey, voicePresenceUpdateMsg{Type: TypeVoicePresenceUpdate, SigningPubkey: signingPubkey, ChatID: chatID, UserID: userID, InVoice: false})
	}
}

func (h *Hub) handleVoiceSignaling(conn *Connection, raw []byte) {
	var m voiceSignalingMsg
	if err := json.Unmarshal(raw, &m); err != nil || m.FromPeer == "" || m.ToPeer == "" || m.ChatID == "" {
		h.reply(conn, newErrorMsg("Invalid voice signaling frame"))
		return
	}

	groupID, ok := h.Voice.ResolveGroup(m.ChatID)
	if !ok {
		slog.Debug("dropped voice signaling frame for unknown chat_id", "chat_id", m.ChatID)
		return
	}
	if !h.Voice.ValidateOccupant(groupID, m.ChatID, m.FromPeer, conn.ID) {
		h.reply(conn, newErrorMsg("unauthorized peer_id"))
		return
	}
	targetConn, ok := h.Voice.ConnForOccupant(groupID, m.ChatID, m.ToPeer)
	if !ok {
		slog.Debug("dropped voice signaling frame to unknown peer", "to_peer", m.ToPeer)
		return
	}
	if mb, ok := h.Signaling.ConnSender(targetConn); ok {
		mb.Send(raw)
	}
}

// Teardown runs the single, idempotent disconnect path for conn: it drains
// voice-room occupancy, then presence, then finally the signaling registry
// (which owns the mailbox other subsystems still need during the first two
// steps), broadcasting the departures each subsystem reports along the way.
func (h *Hub) Teardown(conn *Connection) {
	for _, drop := range h.Voice.Teardown(conn.ID) {
		remaining := h.Voice.Occupants(drop.GroupID, drop.ChatID)
		left := voicePeerLeftMsg{Type: TypeVoicePeerLeft, PeerID: drop.PeerID, UserID: drop.UserID, ChatID: drop.ChatID}
		for _, p := range remaining {
			h.Broadcast.Direct(p.connID, left)
		}
		if drop.SigningPubkey != "" {
			h.Broadcast.Group(drop.SigningPubkey, voicePresenceUpdateMsg{Type: TypeVoicePresenceUpdate, SigningPubkey: drop.SigningPubkey, ChatID: drop.ChatID, UserID: drop.UserID, InVoice: false})
		}
	}

	disc := h.Presence.Disconnect(conn.ID)
	if disc.WentOffline {
		for _, sp := range disc.AffectedSigningPubkeys {
			h.Broadcast.Group(sp, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: sp, UserID: disc.UserID, Online: false})
		}
		if len(disc.FriendBroadcastConns) > 0 {
			h.Broadcast.DirectMany(disc.FriendBroadcastConns, presenceUpdateMsg{Type: TypePresenceUpdate, SigningPubkey: FriendsPseudoGroup, UserID: disc.UserID, Online: false})
		}
	}

	h.Signaling.Teardown(conn.ID)
}
