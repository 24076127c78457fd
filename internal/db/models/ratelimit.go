package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// Ratelimit backs the friend-API's GORM-based rate limit store: one row per
// limiter key (typically a client address), tracking hits within the current
// window.
type Ratelimit struct {
	Key       string `gorm:"primaryKey" json:"key"`
	Hits      int64  `json:"hits"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *Ratelimit) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		slog.Error("failed to marshal ratelimit to json", "error", err)
		return ""
	}
	return string(data)
}

func FindRatelimitByKey(db *gorm.DB, key string) (*Ratelimit, error) {
	var ratelimit Ratelimit
	if err := db.Where("key = ?", key).First(&ratelimit).Error; err != nil {
		return nil, fmt.Errorf("ratelimit key %q: %w", key, err)
	}
	return &ratelimit, nil
}

func RatelimitKeyExists(db *gorm.DB, key string) (bool, error) {
	var count int64
	if err := db.Model(&Ratelimit{}).Where("key = ?", key).Count(&count).Error; err != nil {
		return false, fmt.Errorf("counting ratelimit key %q: %w", key, err)
	}
	return count > 0, nil
}
