package models

import (
	"encoding/json"
	"time"
)

// SearchRecord is the append-only audit entry for one search attempt.
// Never updated after creation.
type SearchRecord struct {
	ID         uint            `gorm:"primaryKey"`
	UserID     int64           `gorm:"not null;index"`
	Query      string          `gorm:"not null"`
	SearchType string          `gorm:"size:32;not null"`
	Results    json.RawMessage `gorm:"type:jsonb"`
	Success    bool            `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"index"`
}
