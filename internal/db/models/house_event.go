package models

import "time"

// HouseEvent is an append-only, group-scoped encrypted event. Replay order is
// the tuple (Timestamp, EventID) ascending: the composite index below backs
// the cursor query directly instead of requiring an in-memory sort.
type HouseEvent struct {
	EventID          string `gorm:"primaryKey;column:event_id"`
	SigningPubkey    string `gorm:"index:idx_house_events_cursor,priority:1"`
	EventType        string
	EncryptedPayload []byte
	Signature        []byte
	Timestamp        time.Time `gorm:"index:idx_house_events_cursor,priority:2"`
}

func (HouseEvent) TableName() string {
	return "house_events"
}
