package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cliply/interaction-service/internal/domain"
)

// isUniqueViolation reports whether err is a unique-constraint violation.
// pkg/database opens GORM with TranslateError, so drivers surface these
// as gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// GormLikeRepository implements LikeRepository using GORM.
type GormLikeRepository struct {
	db *gorm.DB
}

// NewGormLikeRepository creates a new GORM-backed like repository.
func NewGormLikeRepository(db *gorm.DB) *GormLikeRepository {
	return &GormLikeRepository{db: db}
}

// Insert creates a like row. The unique (user_id, video_id) index decides
// the winner under concurrent likes; losers get ErrAlreadyExists.
func (r *GormLikeRepository) Insert(ctx context.Context, userID, videoID string) (*domain.Like, error) {
	like := domain.Like{UserID: userID, VideoID: videoID}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &like, nil
}

// DeleteByPair removes the like row for (userID, videoID).
// Returns ErrNotFound when no row matched.
func (r *GormLikeRepository) DeleteByPair(ctx context.Context, userID, videoID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&domain.Like{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether userID has liked videoID.
func (r *GormLikeRepository) Exists(ctx context.Context, userID, videoID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Like{}).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountByVideo returns the authoritative like count for a video.
func (r *GormLikeRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Like{}).
		Where("video_id = ?", videoID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ LikeRepository = (*GormLikeRepository)(nil)
