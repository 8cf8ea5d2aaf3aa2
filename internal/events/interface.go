package events

import "context"

// Topics published by this service, one per state transition.
const (
	TopicVideoLiked     = "video.liked"
	TopicVideoUnliked   = "video.unliked"
	TopicCommentCreated = "comment.created"
	TopicCommentDeleted = "comment.deleted"
	TopicCommentLiked   = "comment.liked"
	TopicCommentUnliked = "comment.unliked"
	TopicUserFollowed   = "user.followed"
	TopicUserUnfollowed = "user.unfollowed"
	TopicVideoViewed    = "video.viewed"
	TopicVideoShared    = "video.shared"
)

// Topics lists every topic for broker provisioning.
func Topics() []string {
	return []string{
		TopicVideoLiked, TopicVideoUnliked,
		TopicCommentCreated, TopicCommentDeleted,
		TopicCommentLiked, TopicCommentUnliked,
		TopicUserFollowed, TopicUserUnfollowed,
		TopicVideoViewed, TopicVideoShared,
	}
}

// Publisher announces state transitions on the event bus. Delivery is
// at-least-once; consumers must tolerate redelivery. Publish failures are
// never surfaced to the interaction caller.
type Publisher interface {
	// Publish enqueues payload on topic. key selects the partition so
	// events for one entity stay ordered.
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

// NopPublisher discards every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	return nil
}

func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}

// LikeEvent is the payload for video.liked / video.unliked.
type LikeEvent struct {
	UserID     string `json:"userId"`
	VideoID    string `json:"videoId"`
	TotalLikes int64  `json:"totalLikes"`
}

// CommentEvent is the payload for comment.created / comment.deleted.
type CommentEvent struct {
	CommentID     string `json:"commentId"`
	UserID        string `json:"userId"`
	VideoID       string `json:"videoId"`
	Content       string `json:"content,omitempty"`
	ParentID      string `json:"parentId,omitempty"`
	TotalComments int64  `json:"totalComments"`
}

// CommentLikeEvent is the payload for comment.liked / comment.unliked.
type CommentLikeEvent struct {
	UserID     string `json:"userId"`
	CommentID  string `json:"commentId"`
	TotalLikes int64  `json:"totalLikes"`
}

// FollowEvent is the payload for user.followed / user.unfollowed.
type FollowEvent struct {
	FollowerID     string `json:"followerId"`
	FollowingID    string `json:"followingId"`
	FollowersCount int64  `json:"followersCount"`
	FollowingCount int64  `json:"followingCount"`
}

// ViewEvent is the payload for video.viewed.
type ViewEvent struct {
	VideoID    string `json:"videoId"`
	UserID     string `json:"userId,omitempty"`
	TotalViews int64  `json:"totalViews"`
}

// ShareEvent is the payload for video.shared.
type ShareEvent struct {
	UserID      string `json:"userId"`
	VideoID     string `json:"videoId"`
	ShareType   string `json:"shareType"`
	Platform    string `json:"platform,omitempty"`
	TotalShares int64  `json:"totalShares"`
}
