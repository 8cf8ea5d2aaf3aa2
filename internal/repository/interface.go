package repository

import (
	"context"
	"errors"

	"github.com/cliply/interaction-service/internal/domain"
)

var (
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record not found")
)

// LikeRepository persists video likes. Insert relies on the unique
// (user_id, video_id) constraint: under a race, exactly one writer wins
// and the rest get ErrAlreadyExists.
type LikeRepository interface {
	Insert(ctx context.Context, userID, videoID string) (*domain.Like, error)
	DeleteByPair(ctx context.Context, userID, videoID string) error
	Exists(ctx context.Context, userID, videoID string) (bool, error)
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}

// CommentRepository persists comments and comment likes.
type CommentRepository interface {
	Insert(ctx context.Context, comment *domain.Comment) error
	FindByID(ctx context.Context, commentID string) (*domain.Comment, error)
	Delete(ctx context.Context, commentID string) error
	UpdateStatus(ctx context.Context, commentID string, status domain.CommentStatus) error
	IncrementReplies(ctx context.Context, commentID string, delta int) error
	FindPageByVideo(ctx context.Context, videoID string, offset, limit int) ([]domain.Comment, int64, error)
	CountByVideo(ctx context.Context, videoID string) (int64, error)

	InsertLike(ctx context.Context, userID, commentID string) (*domain.CommentLike, error)
	DeleteLikeByPair(ctx context.Context, userID, commentID string) error
	LikeExists(ctx context.Context, userID, commentID string) (bool, error)
	CountLikes(ctx context.Context, commentID string) (int64, error)
}

// FollowRepository persists follow edges; unique (follower_id, following_id).
type FollowRepository interface {
	Insert(ctx context.Context, followerID, followingID string) (*domain.Follow, error)
	DeleteByPair(ctx context.Context, followerID, followingID string) error
	Exists(ctx context.Context, followerID, followingID string) (bool, error)
	CountFollowers(ctx context.Context, userID string) (int64, error)
	CountFollowing(ctx context.Context, userID string) (int64, error)
	FindFollowersPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error)
	FindFollowingPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error)
}

// ShareRepository persists share records.
type ShareRepository interface {
	Insert(ctx context.Context, share *domain.Share) error
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}

// ViewRepository persists view records so view counters stay rebuildable.
type ViewRepository interface {
	Insert(ctx context.Context, videoID, userID string) error
	CountByVideo(ctx context.Context, videoID string) (int64, error)
}
