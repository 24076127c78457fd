package models

import "time"

// InviteToken is a short-lived, optionally multi-use invite code. RemainingUses
// is only meaningful when MaxUses != 0; MaxUses == 0 means unlimited
// redemptions. Atomic redemption is implemented as a conditional UPDATE
// against RemainingUses, not by loading then saving this struct.
type InviteToken struct {
	Code             string `gorm:"primaryKey"`
	SigningPubkey    string `gorm:"index"`
	EncryptedPayload []byte
	Signature        []byte
	CreatedAt        time.Time
	ExpiresAt        time.Time `gorm:"index"`
	MaxUses          int
	RemainingUses    int
}

func (InviteToken) TableName() string {
	return "invite_tokens"
}
