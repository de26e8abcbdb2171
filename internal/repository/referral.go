package repository

import (
	"context"
	"fmt"

	"usersbox-bot/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralRepository persists redeemed referrer/referred pairs.
type ReferralRepository interface {
	// CreateIfAbsent inserts the pair unless it already exists. Returns true
	// when this call inserted the record. The insert and the existence check
	// are one statement, so concurrent duplicate redemptions cannot both win.
	CreateIfAbsent(ctx context.Context, referrerID, referredID int64) (bool, error)
	Count(ctx context.Context) (int64, error)
	CountByReferrer(ctx context.Context, referrerID int64) (int64, error)
}

type referralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) ReferralRepository {
	return &referralRepository{db: db}
}

func (r *referralRepository) CreateIfAbsent(ctx context.Context, referrerID, referredID int64) (bool, error) {
	referral := models.Referral{
		ReferrerID:   referrerID,
		ReferredID:   referredID,
		AttemptGiven: true,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "referrer_id"}, {Name: "referred_id"}},
			DoNothing: true,
		}).
		Create(&referral)
	if res.Error != nil {
		return false, fmt.Errorf("failed to insert referral: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *referralRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Referral{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return count, nil
}

func (r *referralRepository) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_id = ?", referrerID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count referrals by referrer: %w", err)
	}
	return count, nil
}
