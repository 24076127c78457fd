package hub

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensignal/signalhub/internal/db/models"
	"gorm.io/gorm"
)

const eventRetention = 30 * 24 * time.Hour

// EventRecord is the hub's in-memory view of one house event.
type EventRecord struct {
	EventID          string
	SigningPubkey    string
	EventType        string
	EncryptedPayload []byte
	Signature        []byte
	Timestamp        time.Time
}

// Events is the per-group append-only event queue with cursor-based replay.
// A SQL backend, when configured, is written through on every insert so
// events survive a restart; replay always reads from memory, which is
// rebuilt from SQL at startup (see LoadFromSQL).
type Events struct {
	mu     sync.RWMutex
	groups map[string][]EventRecord     // signing_pubkey -> events, sorted (timestamp, event_id)
	index  map[string]map[string]int    // signing_pubkey -> event_id -> index into groups[sp]
	seen   map[string]struct{}          // global event_id dedup set
	db     *gorm.DB
}

func NewEvents(db *gorm.DB) *Events {
	return &Events{
		groups: make(map[string][]EventRecord),
		index:  make(map[string]map[string]int),
		seen:   make(map[string]struct{}),
		db:     db,
	}
}

// LoadFromSQL populates the in-memory queues from the durable store. Call
// once at startup when a SQL backend is configured.
func (e *Events) LoadFromSQL() error {
	if e.db == nil {
		return nil
	}
	var rows []models.HouseEvent
	if err := e.db.Order("timestamp, event_id").Find(&rows).Error; err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rows {
		rec := EventRecord{
			EventID:          r.EventID,
			SigningPubkey:    r.SigningPubkey,
			EventType:        r.EventType,
			EncryptedPayload: r.EncryptedPayload,
			Signature:        r.Signature,
			Timestamp:        r.Timestamp,
		}
		e.insertLocked(rec)
	}
	return nil
}

// Insert assigns a server-side timestamp, fills in a fresh event_id if
// absent, and deduplicates on event_id (first insert wins; a repeat insert
// of a known event_id is silently accepted as a no-op).
func (e *Events) Insert(signingPubkey, eventID, eventType string, payload, signature []byte) EventRecord {
	if eventID == "" {
		eventID = uuid.NewString()
	}

	e.mu.Lock()
	if _, dup := e.seen[eventID]; dup {
		existing := e.groups[signingPubkey][e.index[signingPubkey][eventID]]
		e.mu.Unlock()
		return existing
	}
	rec := EventRecord{
		EventID:          eventID,
		SigningPubkey:    signingPubkey,
		EventType:        eventType,
		EncryptedPayload: payload,
		Signature:        signature,
		Timestamp:        time.Now(),
	}
	e.insertLocked(rec)
	e.mu.Unlock()

	if e.db != nil {
		row := models.HouseEvent{
			EventID: rec.EventID, SigningPubkey: rec.SigningPubkey, EventType: rec.EventType,
			EncryptedPayload: rec.EncryptedPayload, Signature: rec.Signature, Timestamp: rec.Timestamp,
		}
		if err := e.db.Create(&row).Error; err != nil {
			slog.Warn("failed to persist event", "event_id", rec.EventID, "error", err)
		}
	}
	return rec
}

// insertLocked must be called with mu held.
func (e *Events) insertLocked(rec EventRecord) {
	e.seen[rec.EventID] = struct{}{}
	events := append(e.groups[rec.SigningPubkey], rec)
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].EventID < events[j].EventID
	})
	e.groups[rec.SigningPubkey] = events

	idx := make(map[string]int, len(events))
	for i, ev := range events {
		idx[ev.EventID] = i
	}
	e.index[rec.SigningPubkey] = idx
}

// Get returns events for signingPubkey. With since empty, every event in
// the group is returned. With since set to an unknown event_id, an empty
// (not error) result is returned. Otherwise every event strictly after
// since's (timestamp, event_id) tuple is returned.
func (e *Events) Get(signingPubkey, since string) []EventRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	events := e.groups[signingPubkey]
	if since == "" {
		out := make([]EventRecord, len(events))
		copy(out, events)
		return out
	}

	idx, ok := e.index[signingPubkey][since]
	if !ok {
		return nil
	}
	rest := events[idx+1:]
	out := make([]EventRecord, len(rest))
	copy(out, rest)
	return out
}

// GC deletes events older than the retention window and prunes now-empty
// per-group queues. Intended to run on a periodic schedule.
func (e *Events) GC() (removed int) {
	cutoff := time.Now().Add(-eventRetention)

	e.mu.Lock()
	for sp, events := range e.groups {
		kept := events[:0:0]
		for _, ev := range events {
			if ev.Timestamp.Before(cutoff) {
				delete(e.seen, ev.EventID)
				removed++
				continue
			}
			kept = append(kept, ev)
		}
		if len(kept) == 0 {
			delete(e.groups, sp)
			delete(e.index, sp)
			continue
		}
		e.groups[sp] = kept
		idx := make(map[string]int, len(kept))
		for i, ev := range kept {
			idx[ev.EventID] = i
		}
		e.index[sp] = idx
	}
	e.mu.Unlock()

	if e.db != nil && removed > 0 {
		if err := e.db.Where("timestamp < ?", cutoff).Delete(&models.HouseEvent{}).Error; err != nil {
			slog.Warn("failed to gc events from sql backend", "error", err)
		}
	}
	return removed
}

// Ack upserts a soft bookmark. Never consulted for replay correctness.
func (e *Events) Ack(signingPubkey, userID, lastEventID string) error {
	if e.db == nil {
		return nil
	}
	row := models.MemberAck{SigningPubkey: signingPubkey, UserID: userID, LastEventID: lastEventID}
	return e.db.Save(&row).Error
}
