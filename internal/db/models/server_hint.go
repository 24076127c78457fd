package models

import "time"

// ServerHint is an opaque, client-encrypted blob describing a group
// ("server"), keyed by its signing public key. The hub never reads the
// payload; it only stores and republishes it.
type ServerHint struct {
	SigningPubkey    string `gorm:"primaryKey;column:signing_pubkey"`
	EncryptedPayload []byte
	UpdatedAt        time.Time
}

func (ServerHint) TableName() string {
	return "server_hints"
}
