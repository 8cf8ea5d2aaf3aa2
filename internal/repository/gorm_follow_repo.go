package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cliply/interaction-service/internal/domain"
)

// GormFollowRepository implements FollowRepository using GORM.
type GormFollowRepository struct {
	db *gorm.DB
}

// NewGormFollowRepository creates a new GORM-backed follow repository.
func NewGormFollowRepository(db *gorm.DB) *GormFollowRepository {
	return &GormFollowRepository{db: db}
}

// Insert creates a follow edge. The unique (follower_id, following_id)
// index is the arbiter under concurrent follows.
func (r *GormFollowRepository) Insert(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	follow := domain.Follow{
		FollowerID:  followerID,
		FollowingID: followingID,
		Status:      domain.FollowFollowing,
	}
	if err := r.db.WithContext(ctx).Create(&follow).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &follow, nil
}

// DeleteByPair removes the follow edge for (followerID, followingID).
func (r *GormFollowRepository) DeleteByPair(ctx context.Context, followerID, followingID string) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&domain.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether followerID follows followingID.
func (r *GormFollowRepository) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountFollowers returns how many users follow userID.
func (r *GormFollowRepository) CountFollowers(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("following_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountFollowing returns how many users userID follows.
func (r *GormFollowRepository) CountFollowing(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FindFollowersPage returns one page of follower IDs for userID,
// newest first, plus the total edge count.
func (r *GormFollowRepository) FindFollowersPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("following_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var follows []domain.Follow
	err = r.db.WithContext(ctx).
		Where("following_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&follows).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowerID)
	}
	return ids, total, nil
}

// FindFollowingPage returns one page of followed-user IDs for userID,
// newest first, plus the total edge count.
func (r *GormFollowRepository) FindFollowingPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Follow{}).
		Where("follower_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var follows []domain.Follow
	err = r.db.WithContext(ctx).
		Where("follower_id = ?", userID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&follows).Error
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(follows))
	for _, f := range follows {
		ids = append(ids, f.FollowingID)
	}
	return ids, total, nil
}

var _ FollowRepository = (*GormFollowRepository)(nil)
