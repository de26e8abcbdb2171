package models

import (
	"time"
)

// Referral records one redeemed referrer/referred pair. Append-only; the
// composite unique index is what makes redemption exactly-once.
type Referral struct {
	ID           uint  `gorm:"primaryKey"`
	ReferrerID   int64 `gorm:"not null;uniqueIndex:ux_referral_pair,priority:1"`
	ReferredID   int64 `gorm:"not null;uniqueIndex:ux_referral_pair,priority:2"`
	AttemptGiven bool  `gorm:"not null;default:true"`
	CreatedAt    time.Time
}
