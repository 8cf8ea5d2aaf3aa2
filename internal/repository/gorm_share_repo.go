package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cliply/interaction-service/internal/domain"
)

// GormShareRepository implements ShareRepository using GORM.
type GormShareRepository struct {
	db *gorm.DB
}

// NewGormShareRepository creates a new GORM-backed share repository.
func NewGormShareRepository(db *gorm.DB) *GormShareRepository {
	return &GormShareRepository{db: db}
}

func (r *GormShareRepository) Insert(ctx context.Context, share *domain.Share) error {
	return r.db.WithContext(ctx).Create(share).Error
}

func (r *GormShareRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Share{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ ShareRepository = (*GormShareRepository)(nil)

// GormViewRepository implements ViewRepository using GORM.
type GormViewRepository struct {
	db *gorm.DB
}

// NewGormViewRepository creates a new GORM-backed view repository.
func NewGormViewRepository(db *gorm.DB) *GormViewRepository {
	return &GormViewRepository{db: db}
}

func (r *GormViewRepository) Insert(ctx context.Context, videoID, userID string) error {
	view := domain.View{VideoID: videoID, UserID: userID}
	return r.db.WithContext(ctx).Create(&view).Error
}

func (r *GormViewRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.View{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ ViewRepository = (*GormViewRepository)(nil)
