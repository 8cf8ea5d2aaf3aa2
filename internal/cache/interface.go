package cache

import (
	"context"
	"fmt"
)

// Counter names used in cache keys.
const (
	CounterLikes      = "likes"
	CounterComments   = "comments"
	CounterViews      = "views"
	CounterShares     = "shares"
	CounterFollowers  = "followers"
	CounterFollowings = "followings"
)

// CounterCache is the fast-path store for derived counters and membership
// flags. Every value here is re-derivable from the database; a miss is
// normal and answered by the read path, never an error.
type CounterCache interface {
	// GetCount returns (count, true, nil) on hit and (0, false, nil) on miss.
	GetCount(ctx context.Context, key string) (int64, bool, error)
	SetCount(ctx context.Context, key string, count int64) error

	// CondIncr atomically increments key only if it already exists, so a
	// wiped counter stays missing until the read path rebuilds it from the
	// database. Returns the new value and whether the key existed.
	CondIncr(ctx context.Context, key string) (int64, bool, error)

	// CondDecr atomically decrements key only if it exists and is above
	// zero; the floor guards against concurrent over-decrements.
	CondDecr(ctx context.Context, key string) (int64, bool, error)

	// GetFlag returns (value, true, nil) on hit and (false, false, nil)
	// when the flag was never cached.
	GetFlag(ctx context.Context, key string) (bool, bool, error)
	SetFlag(ctx context.Context, key string, value bool) error

	// Hot-key tracking for the background reconciler.
	RecordAccess(ctx context.Context, entityKey string) error
	TopHotKeys(ctx context.Context, n int64) ([]string, error)
	ResetHotKeys(ctx context.Context) error

	Close() error
}

// VideoCounterKey builds the cache key for one of a video's counters.
func VideoCounterKey(videoID, counter string) string {
	return fmt.Sprintf("video:%s:%s", videoID, counter)
}

// UserCounterKey builds the cache key for one of a user's counters.
func UserCounterKey(userID, counter string) string {
	return fmt.Sprintf("user:%s:%s", userID, counter)
}

// CommentCounterKey builds the cache key for a comment's like counter.
func CommentCounterKey(commentID string) string {
	return fmt.Sprintf("comment:%s:%s", commentID, CounterLikes)
}

// LikeFlagKey mirrors the existence of a (user, video) like row.
func LikeFlagKey(userID, videoID string) string {
	return fmt.Sprintf("flag:like:%s:%s", userID, videoID)
}

// CommentLikeFlagKey mirrors the existence of a (user, comment) like row.
func CommentLikeFlagKey(userID, commentID string) string {
	return fmt.Sprintf("flag:commentlike:%s:%s", userID, commentID)
}

// FollowFlagKey mirrors the existence of a (follower, following) edge.
func FollowFlagKey(followerID, followingID string) string {
	return fmt.Sprintf("flag:follow:%s:%s", followerID, followingID)
}

// VideoHotKey and UserHotKey name entities in the reconciler's hot-key set.
func VideoHotKey(videoID string) string { return "video:" + videoID }
func UserHotKey(userID string) string   { return "user:" + userID }
