package repository

import (
	"context"
	"fmt"
	"time"

	"usersbox-bot/internal/models"

	"gorm.io/gorm"
)

// TypeCount is one bucket of the search type distribution.
type TypeCount struct {
	SearchType string `json:"search_type"`
	Count      int64  `json:"count"`
}

// SearchRepository persists the append-only audit log of search attempts.
type SearchRepository interface {
	Create(ctx context.Context, record *models.SearchRecord) error
	Recent(ctx context.Context, limit int) ([]models.SearchRecord, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]models.SearchRecord, error)
	Count(ctx context.Context) (int64, error)
	CountSuccessful(ctx context.Context) (int64, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	CountSuccessfulByUser(ctx context.Context, userID int64) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	TypeDistribution(ctx context.Context, limit int) ([]TypeCount, error)
}

type searchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) Create(ctx context.Context, record *models.SearchRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert search record: %w", err)
	}
	return nil
}

func (r *searchRepository) Recent(ctx context.Context, limit int) ([]models.SearchRecord, error) {
	var records []models.SearchRecord
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	return records, nil
}

func (r *searchRepository) RecentByUser(ctx context.Context, userID int64, limit int) ([]models.SearchRecord, error) {
	var records []models.SearchRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list user searches: %w", err)
	}
	return records, nil
}

func (r *searchRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, r.db.WithContext(ctx).Model(&models.SearchRecord{}))
}

func (r *searchRepository) CountSuccessful(ctx context.Context) (int64, error) {
	return r.count(ctx, r.db.WithContext(ctx).Model(&models.SearchRecord{}).Where("success = ?", true))
}

func (r *searchRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, r.db.WithContext(ctx).Model(&models.SearchRecord{}).Where("user_id = ?", userID))
}

func (r *searchRepository) CountSuccessfulByUser(ctx context.Context, userID int64) (int64, error) {
	return r.count(ctx, r.db.WithContext(ctx).Model(&models.SearchRecord{}).
		Where("user_id = ? AND success = ?", userID, true))
}

func (r *searchRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, r.db.WithContext(ctx).Model(&models.SearchRecord{}).Where("created_at >= ?", since))
}

func (r *searchRepository) count(_ context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count search records: %w", err)
	}
	return count, nil
}

func (r *searchRepository) TypeDistribution(ctx context.Context, limit int) ([]TypeCount, error) {
	var buckets []TypeCount
	err := r.db.WithContext(ctx).Model(&models.SearchRecord{}).
		Select("search_type, COUNT(*) AS count").
		Group("search_type").
		Order("count DESC").
		Limit(limit).
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate search types: %w", err)
	}
	return buckets, nil
}
