package models

// MemberAck is a soft bookmark of the last event a user has acknowledged in
// a group. It is never consulted for replay correctness; clients always
// replay from their own last-seen event_id.
type MemberAck struct {
	SigningPubkey string `gorm:"primaryKey;column:signing_pubkey"`
	UserID        string `gorm:"primaryKey;column:user_id"`
	LastEventID   string
}

func (MemberAck) TableName() string {
	return "member_acks"
}
