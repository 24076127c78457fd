package hub

import "encoding/json"

// Message type discriminators, used verbatim as the "type" field of every
// WebSocket frame in and out of the hub.
const (
	TypeRegister     = "Register"
	TypeRegistered   = "Registered"
	TypeError        = "Error"
	TypePing         = "Ping"
	TypePong         = "Pong"

	TypePresenceHello         = "PresenceHello"
	TypePresenceSnapshot      = "PresenceSnapshot"
	TypeFriendPendingSnapshot = "FriendPendingSnapshot"
	TypePresenceActive        = "PresenceActive"
	TypePresenceUpdate        = "PresenceUpdate"

	TypeProfileAnnounce       = "ProfileAnnounce"
	TypeProfileHello          = "ProfileHello"
	TypeProfileSnapshot       = "ProfileSnapshot"
	TypeProfilePush           = "ProfilePush"
	TypeProfilePushIncoming   = "ProfilePushIncoming"

	TypeOffer        = "Offer"
	TypeAnswer       = "Answer"
	TypeIceCandidate = "IceCandidate"

	TypeVoiceRegister        = "VoiceRegister"
	TypeVoiceRegistered      = "VoiceRegistered"
	TypeVoicePeerJoined      = "VoicePeerJoined"
	TypeVoicePeerLeft        = "VoicePeerLeft"
	TypeVoicePresenceUpdate  = "VoicePresenceUpdate"
	TypeVoiceUnregister      = "VoiceUnregister"
	TypeVoiceOffer           = "VoiceOffer"
	TypeVoiceAnswer          = "VoiceAnswer"
	TypeVoiceIceCandidate    = "VoiceIceCandidate"

	TypeProfileUpdate = "ProfileUpdate"

	TypeServerHintUpdated = "ServerHintUpdated"

	TypeFriendRequestAccepted          = "FriendRequestAccepted"
	TypeFriendRequestDeclined          = "FriendRequestDeclined"
	TypeFriendCodeRedemptionIncoming   = "FriendCodeRedemptionIncoming"
	TypeFriendCodeRedemptionAccepted   = "FriendCodeRedemptionAccepted"
	TypeFriendCodeRedemptionDeclined   = "FriendCodeRedemptionDeclined"
)

// ReservedFriendPeerPrefix marks the synthetic peer identifier the friend
// subsystem registers on every presence-hello connection. Clients MUST NOT
// send a peer_id starting with this prefix; any frame asserting one is
// rejected at validation.
const ReservedFriendPeerPrefix = "friends:"

// friendsSigningPubkey is the reserved group key under which friend-scoped
// presence snapshots and broadcasts are delivered.
const friendsSigningPubkey = "_friends"

// envelope peeks the discriminator of an inbound frame before it is decoded
// into its concrete payload type.
type envelope struct {
	Type string `json:"type"`
}

func peekType(raw []byte) (string, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return "", err
	}
	return e.Type, nil
}

// --- Inbound payloads ---

type registerMsg struct {
	Type          string `json:"type"`
	GroupID       string `json:"group_id"`
	PeerID        string `json:"peer_id"`
	SigningPubkey string `json:"signing_pubkey,omitempty"`
}

type presenceHelloMsg struct {
	Type                string   `json:"type"`
	UserID              string   `json:"user_id"`
	SigningPubkeys      []string `json:"signing_pubkeys"`
	ActiveSigningPubkey string   `json:"active_signing_pubkey,omitempty"`
	FriendUserIDs       []string `json:"friend_user_ids"`
}

type presenceActiveMsg struct {
	Type                string `json:"type"`
	UserID              string `json:"user_id"`
	ActiveSigningPubkey string `json:"active_signing_pubkey,omitempty"`
}

type profileAnnounceMsg struct {
	Type           string   `json:"type"`
	UserID         string   `json:"user_id"`
	DisplayName    string   `json:"display_name"`
	RealName       string   `json:"real_name,omitempty"`
	ShowRealName   bool     `json:"show_real_name"`
	Rev            int64    `json:"rev"`
	SigningPubkeys []string `json:"signing_pubkeys"`
}

type profileHelloMsg struct {
	Type          string   `json:"type"`
	SigningPubkey string   `json:"signing_pubkey"`
	UserIDs       []string `json:"user_ids"`
}

type profilePushMsg struct {
	Type             string   `json:"type"`
	ToUserIDs        []string `json:"to_user_ids"`
	DisplayName      string   `json:"display_name"`
	RealName         string   `json:"real_name,omitempty"`
	ShowRealName     bool     `json:"show_real_name"`
	Rev              int64    `json:"rev"`
	AvatarDataURL    string   `json:"avatar_data_url,omitempty"`
	AvatarRev        int64    `json:"avatar_rev,omitempty"`
	AccountCreatedAt string   `json:"account_created_at,omitempty"`
}

type signalingMsg struct {
	Type     string `json:"type"`
	FromPeer string `json:"from_peer"`
	ToPeer   string `json:"to_peer"`
	SDP      string `json:"sdp,omitempty"`
	ICE      json.RawMessage `json:"candidate,omitempty"`
}

type voiceRegisterMsg struct {
	Type          string `json:"type"`
	GroupID       string `json:"group_id"`
	ChatID        string `json:"chat_id"`
	PeerID        string `json:"peer_id"`
	UserID        string `json:"user_id"`
	SigningPubkey string `json:"signing_pubkey"`
}

type voiceUnregisterMsg struct {
	Type   string `json:"type"`
	PeerID string `json:"peer_id"`
	ChatID string `json:"chat_id"`
}

type voiceSignalingMsg struct {
	Type     string          `json:"type"`
	FromPeer string          `json:"from_peer"`
	FromUser string          `json:"from_user,omitempty"`
	ToPeer   string          `json:"to_peer"`
	ChatID   string          `json:"chat_id"`
	SDP      string          `json:"sdp,omitempty"`
	ICE      json.RawMessage `json:"candidate,omitempty"`
}

// --- Outbound payloads ---

type registeredMsg struct {
	Type   string   `json:"type"`
	PeerID string   `json:"peer_id"`
	Peers  []string `json:"peers"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMsg(message string) errorMsg {
	return errorMsg{Type: TypeError, Message: message}
}

type presenceSnapshotUser struct {
	UserID              string `json:"user_id"`
	ActiveSigningPubkey string `json:"active_signing_pubkey,omitempty"`
}

type presenceSnapshotMsg struct {
	Type          string                 `json:"type"`
	SigningPubkey string                 `json:"signing_pubkey"`
	Users         []presenceSnapshotUser `json:"users"`
}

type presenceUpdateMsg struct {
	Type                string `json:"type"`
	SigningPubkey       string `json:"signing_pubkey"`
	UserID              string `json:"user_id"`
	Online              bool   `json:"online"`
	ActiveSigningPubkey string `json:"active_signing_pubkey,omitempty"`
}

type friendPendingSnapshotMsg struct {
	Type                   string               `json:"type"`
	PendingIncoming        []friendRequestView  `json:"pending_incoming"`
	PendingOutgoing        []string             `json:"pending_outgoing"`
	PendingCodeRedemptions []codeRedemptionView `json:"pending_code_redemptions"`
}

type friendRequestView struct {
	FromUserID           string `json:"from_user_id"`
	DisplayName          string `json:"display_name"`
	FromAccountCreatedAt string `json:"from_account_created_at,omitempty"`
	CreatedAt            int64  `json:"created_at"`
}

type codeRedemptionView struct {
	RedeemerUserID           string `json:"redeemer_user_id"`
	DisplayName              string `json:"display_name"`
	RedeemerAccountCreatedAt string `json:"redeemer_account_created_at,omitempty"`
	Code                     string `json:"code"`
}

type profileSnapshotMsg struct {
	Type          string          `json:"type"`
	SigningPubkey string          `json:"signing_pubkey"`
	Profiles      []profileRecord `json:"profiles"`
}

type profileRecord struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	RealName     string `json:"real_name,omitempty"`
	ShowRealName bool   `json:"show_real_name"`
	Rev          int64  `json:"rev"`
}

type profileUpdateMsg struct {
	Type         string `json:"type"`
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	RealName     string `json:"real_name,omitempty"`
	ShowRealName bool   `json:"show_real_name"`
	Rev          int64  `json:"rev"`
}

type profilePushIncomingMsg struct {
	Type             string `json:"type"`
	FromUserID       string `json:"from_user_id"`
	DisplayName      string `json:"display_name"`
	RealName         string `json:"real_name,omitempty"`
	ShowRealName     bool   `json:"show_real_name"`
	Rev              int64  `json:"rev"`
	AvatarDataURL    string `json:"avatar_data_url,omitempty"`
	AvatarRev        int64  `json:"avatar_rev,omitempty"`
	AccountCreatedAt string `json:"account_created_at,omitempty"`
}

type voiceRegisteredMsg struct {
	Type   string   `json:"type"`
	PeerID string   `json:"peer_id"`
	ChatID string   `json:"chat_id"`
	Peers  []string `json:"peers"`
}

type voicePeerJoinedMsg struct {
	Type   string `json:"type"`
	PeerID string `json:"peer_id"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

type voicePeerLeftMsg struct {
	Type   string `json:"type"`
	PeerID string `json:"peer_id"`
	UserID string `json:"user_id"`
	ChatID string `json:"chat_id"`
}

type voicePresenceUpdateMsg struct {
	Type          string `json:"type"`
	SigningPubkey string `json:"signing_pubkey"`
	ChatID        string `json:"chat_id"`
	UserID        string `json:"user_id"`
	InVoice       bool   `json:"in_voice"`
}

type pingMsg struct {
	Type string `json:"type"`
}

func newPongMsg() pingMsg {
	return pingMsg{Type: TypePong}
}
