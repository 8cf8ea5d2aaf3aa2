package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cliply/interaction-service/internal/domain"
)

// visibleStatuses are the moderation states shown on the comment feed.
var visibleStatuses = []domain.CommentStatus{domain.CommentActive, domain.CommentReported}

// GormCommentRepository implements CommentRepository using GORM.
type GormCommentRepository struct {
	db *gorm.DB
}

// NewGormCommentRepository creates a new GORM-backed comment repository.
func NewGormCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// Insert creates a comment row; the ID is generated in BeforeCreate.
func (r *GormCommentRepository) Insert(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// FindByID fetches one comment, or ErrNotFound.
func (r *GormCommentRepository) FindByID(ctx context.Context, commentID string) (*domain.Comment, error) {
	var comment domain.Comment
	err := r.db.WithContext(ctx).First(&comment, "id = ?", commentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &comment, nil
}

// Delete removes a comment row and any likes on it.
func (r *GormCommentRepository) Delete(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", commentID).Delete(&domain.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("comment_id = ?", commentID).Delete(&domain.CommentLike{}).Error
	})
}

// UpdateStatus sets a comment's moderation status.
func (r *GormCommentRepository) UpdateStatus(ctx context.Context, commentID string, status domain.CommentStatus) error {
	result := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("id = ?", commentID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementReplies adjusts a parent comment's reply counter by delta,
// clamped at zero in SQL so concurrent over-decrements cannot go negative.
func (r *GormCommentRepository) IncrementReplies(ctx context.Context, commentID string, delta int) error {
	if delta >= 0 {
		return r.db.WithContext(ctx).Model(&domain.Comment{}).
			Where("id = ?", commentID).
			Update("replies_count", gorm.Expr("replies_count + ?", delta)).Error
	}
	return r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("id = ? AND replies_count >= ?", commentID, -delta).
		Update("replies_count", gorm.Expr("replies_count + ?", delta)).Error
}

// FindPageByVideo returns one page of visible comments, newest first,
// plus the total visible count.
func (r *GormCommentRepository) FindPageByVideo(ctx context.Context, videoID string, offset, limit int) ([]domain.Comment, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("video_id = ? AND status IN ?", videoID, visibleStatuses).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var comments []domain.Comment
	err = r.db.WithContext(ctx).
		Where("video_id = ? AND status IN ?", videoID, visibleStatuses).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// CountByVideo returns the authoritative visible-comment count for a video.
func (r *GormCommentRepository) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).
		Where("video_id = ? AND status IN ?", videoID, visibleStatuses).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// InsertLike creates a comment-like row; unique per (user, comment).
func (r *GormCommentRepository) InsertLike(ctx context.Context, userID, commentID string) (*domain.CommentLike, error) {
	like := domain.CommentLike{UserID: userID, CommentID: commentID}
	if err := r.db.WithContext(ctx).Create(&like).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return &like, nil
}

// DeleteLikeByPair removes the comment-like row for (userID, commentID).
func (r *GormCommentRepository) DeleteLikeByPair(ctx context.Context, userID, commentID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Delete(&domain.CommentLike{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LikeExists reports whether userID has liked commentID.
func (r *GormCommentRepository) LikeExists(ctx context.Context, userID, commentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CommentLike{}).
		Where("user_id = ? AND comment_id = ?", userID, commentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountLikes returns the authoritative like count for a comment.
func (r *GormCommentRepository) CountLikes(ctx context.Context, commentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.CommentLike{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ CommentRepository = (*GormCommentRepository)(nil)
