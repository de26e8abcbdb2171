package models

import (
	"time"
)

// User is keyed by the Telegram-assigned id. Created lazily on first contact,
// display fields refreshed on every contact, never deleted.
type User struct {
	TelegramID        int64  `gorm:"primaryKey;autoIncrement:false"`
	Username          string `gorm:"size:255"`
	FirstName         string `gorm:"size:255"`
	LastName          string `gorm:"size:255"`
	AttemptsRemaining int    `gorm:"not null;default:0"`
	ReferredBy        *int64 `gorm:"index"`
	ReferralCode      string `gorm:"size:32;uniqueIndex;not null"`
	TotalReferrals    int    `gorm:"not null;default:0"`
	IsAdmin           bool   `gorm:"not null;default:false"`
	IsSubscribed      bool   `gorm:"not null;default:false"`
	CreatedAt         time.Time
	LastActive        time.Time
}

// Entitlement returns the user's attempt balance as a tagged variant. Admin
// accounts are unlimited; their stored counter is meaningless.
func (u *User) Entitlement() Entitlement {
	if u.IsAdmin {
		return Unlimited()
	}
	return Limited(u.AttemptsRemaining)
}
