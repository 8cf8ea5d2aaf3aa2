package service

import (
	"context"
	"errors"

	"github.com/cliply/interaction-service/internal/domain"
)

// Terminal errors returned to the caller unchanged; the engine never
// retries these. Anything else is an infrastructure failure and is
// retryable by the caller.
var (
	ErrAlreadyLiked     = errors.New("already liked")
	ErrNotLiked         = errors.New("not liked")
	ErrAlreadyFollowing = errors.New("already following")
	ErrNotFollowing     = errors.New("not following")
	ErrSelfFollow       = errors.New("cannot follow yourself")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrNotCommentOwner  = errors.New("only the comment author may delete it")
	ErrEmptyContent     = errors.New("content must not be empty")
	ErrContentTooLong   = errors.New("content exceeds maximum length")
	ErrInvalidStatus    = errors.New("invalid moderation status")
	ErrInvalidShareType = errors.New("invalid share type")
)

// InteractionService is the interaction engine: it owns every write to the
// interactions database, the counter cache, and the event bus, and answers
// reads cache-first with database fallback.
type InteractionService interface {
	// Video likes
	LikeVideo(ctx context.Context, userID, videoID string) (int64, error)
	UnlikeVideo(ctx context.Context, userID, videoID string) (int64, error)
	LikeStatus(ctx context.Context, userID, videoID string) (bool, error)

	// Comments
	AddComment(ctx context.Context, userID, videoID, content string, parentID *string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, commentID, userID string) error
	ModerateComment(ctx context.Context, commentID string, status domain.CommentStatus) error
	Comments(ctx context.Context, videoID string, page, limit int) (*domain.CommentPage, error)

	// Comment likes
	LikeComment(ctx context.Context, userID, commentID string) (int64, error)
	UnlikeComment(ctx context.Context, userID, commentID string) (int64, error)
	CommentLikeStatus(ctx context.Context, userID, commentID string) (bool, error)

	// Follows
	FollowUser(ctx context.Context, followerID, followingID string) (*domain.FollowerCounts, error)
	UnfollowUser(ctx context.Context, followerID, followingID string) error
	FollowStatus(ctx context.Context, followerID, followingID string) (bool, error)
	Followers(ctx context.Context, userID string, page, limit int) (*domain.FollowPage, error)
	Following(ctx context.Context, userID string, page, limit int) (*domain.FollowPage, error)

	// Views and shares
	RecordView(ctx context.Context, videoID, userID string) (int64, error)
	ShareVideo(ctx context.Context, userID, videoID string, shareType domain.ShareType, platform, targetUserID string) (int64, error)

	// Counters
	VideoStats(ctx context.Context, videoID string) (*domain.VideoStats, error)
	FollowerCounts(ctx context.Context, userID string) (*domain.FollowerCounts, error)
}
