package models

import "time"

// Profile is the durable record of a user's revision-monotone profile
// gossip. Stored iff rev > stored.rev; the in-memory profile cache mirrors
// this table when no SQL backend is configured.
type Profile struct {
	UserID        string `gorm:"primaryKey;column:user_id"`
	DisplayName   string
	RealName      string
	ShowRealName  bool
	Rev           int64
	UpdatedAt     time.Time

	// NotifyEmail is optional and client-supplied; used only to address a
	// best-effort friend-request notification when the recipient has no
	// open connection. Never shared with other peers.
	NotifyEmail string
}

// TableName pins the table name so it doesn't pluralize to "profiles" via
// gorm's default (which would happen to work here, but every other model in
// this package names its table explicitly).
func (Profile) TableName() string {
	return "profiles"
}
