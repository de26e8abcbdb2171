package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"usersbox-bot/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrUserNotFound = errors.New("user not found")

// UserProfile carries the identity fields delivered with every inbound message.
type UserProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	IsAdmin    bool
}

// UserRepository is the persistence contract for users. Consume and credit are
// single atomic statements; callers never reconstruct them from read-then-write.
type UserRepository interface {
	GetOrCreate(ctx context.Context, profile UserProfile) (*models.User, error)
	ByID(ctx context.Context, telegramID int64) (*models.User, error)
	ByReferralCode(ctx context.Context, code string) (*models.User, error)
	// ConsumeAttempt decrements the balance by one only if it is strictly
	// positive. Returns false without mutation otherwise.
	ConsumeAttempt(ctx context.Context, telegramID int64) (bool, error)
	// Credit increments the balance by amount. ErrUserNotFound if no such user.
	Credit(ctx context.Context, telegramID int64, amount int) error
	// SetReferredBy sets referred_by only when it is still unset.
	SetReferredBy(ctx context.Context, telegramID, referrerID int64) error
	IncrementReferrals(ctx context.Context, telegramID int64) error
	SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error
	List(ctx context.Context, limit int) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	TopReferrers(ctx context.Context, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetOrCreate returns the user, creating it on first contact. Existing users
// get their display fields and last_active refreshed.
func (r *userRepository) GetOrCreate(ctx context.Context, profile UserProfile) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", profile.TelegramID).Error
	if err == nil {
		updates := map[string]interface{}{
			"username":    profile.Username,
			"first_name":  profile.FirstName,
			"last_name":   profile.LastName,
			"last_active": time.Now().UTC(),
		}
		if err := r.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to refresh user: %w", err)
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	now := time.Now().UTC()
	user = models.User{
		TelegramID:   profile.TelegramID,
		Username:     profile.Username,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		ReferralCode: generateReferralCode(),
		IsAdmin:      profile.IsAdmin,
		CreatedAt:    now,
		LastActive:   now,
	}
	// Concurrent first contact for the same user may race the insert; the
	// conflict clause keeps the first row and the reload wins either way.
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", profile.TelegramID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ByID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "telegram_id = ?", telegramID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, "referral_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user by referral code: %w", err)
	}
	return &user, nil
}

func (r *userRepository) ConsumeAttempt(ctx context.Context, telegramID int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ? AND attempts_remaining > 0", telegramID).
		Update("attempts_remaining", gorm.Expr("attempts_remaining - 1"))
	if res.Error != nil {
		return false, fmt.Errorf("failed to consume attempt: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *userRepository) Credit(ctx context.Context, telegramID int64, amount int) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("attempts_remaining", gorm.Expr("attempts_remaining + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to credit attempts: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetReferredBy(ctx context.Context, telegramID, referrerID int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ? AND referred_by IS NULL", telegramID).
		Update("referred_by", referrerID)
	if res.Error != nil {
		return fmt.Errorf("failed to set referrer: %w", res.Error)
	}
	return nil
}

func (r *userRepository) IncrementReferrals(ctx context.Context, telegramID int64) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("total_referrals", gorm.Expr("total_referrals + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment referrals: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Update("is_subscribed", subscribed)
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription flag: %w", res.Error)
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (r *userRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("created_at >= ?", since).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count recent users: %w", err)
	}
	return count, nil
}

func (r *userRepository) TopReferrers(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("total_referrals DESC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list top referrers: %w", err)
	}
	return users, nil
}

// generateReferralCode produces the short unique token embedded in referral
// links. Uniqueness is enforced by the column index.
func generateReferralCode() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
