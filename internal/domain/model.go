package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentActive   CommentStatus = "active"
	CommentHidden   CommentStatus = "hidden"
	CommentDeleted  CommentStatus = "deleted"
	CommentReported CommentStatus = "reported"
)

// VisibleCommentStatus reports whether comments in state s appear in
// feeds and in the per-video comment counter.
func VisibleCommentStatus(s CommentStatus) bool {
	return s == CommentActive || s == CommentReported
}

// ValidCommentStatus reports whether s is a known moderation state.
func ValidCommentStatus(s CommentStatus) bool {
	switch s {
	case CommentActive, CommentHidden, CommentDeleted, CommentReported:
		return true
	}
	return false
}

// FollowStatus is the state of a follow relationship.
type FollowStatus string

const (
	FollowFollowing FollowStatus = "following"
	FollowRequested FollowStatus = "requested" // private accounts
	FollowBlocked   FollowStatus = "blocked"
)

// ShareType is the channel a video was shared through.
type ShareType string

const (
	ShareDirect   ShareType = "direct"
	ShareSocial   ShareType = "social"
	ShareCopyLink ShareType = "copy_link"
	ShareDownload ShareType = "download"
)

// ValidShareType reports whether t is a known share channel.
func ValidShareType(t ShareType) bool {
	switch t {
	case ShareDirect, ShareSocial, ShareCopyLink, ShareDownload:
		return true
	}
	return false
}

// Like is one user's like on one video. The (user_id, video_id) pair is
// unique: the database constraint is the arbiter under concurrent likes.
// Unlike removes the row outright; there is no soft delete here.
type Like struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;index;uniqueIndex:uidx_like_pair" json:"userId"`
	VideoID   string    `gorm:"column:video_id;type:varchar(36);not null;index;uniqueIndex:uidx_like_pair" json:"videoId"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (Like) TableName() string { return "likes" }

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

// Comment is a user's comment on a video, optionally threaded under a
// parent comment. Comments have no uniqueness constraint.
type Comment struct {
	ID           string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string        `gorm:"column:user_id;type:varchar(36);not null;index" json:"userId"`
	VideoID      string        `gorm:"column:video_id;type:varchar(36);not null;index" json:"videoId"`
	ParentID     *string       `gorm:"column:parent_id;type:varchar(36);index" json:"parentId,omitempty"`
	Content      string        `gorm:"type:text;not null" json:"content"`
	Status       CommentStatus `gorm:"type:varchar(16);not null;default:active;index" json:"status"`
	IsPinned     bool          `gorm:"column:is_pinned;not null;default:false" json:"isPinned"`
	RepliesCount int           `gorm:"column:replies_count;not null;default:0" json:"repliesCount"`
	CreatedAt    time.Time     `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"-"`
}

func (Comment) TableName() string { return "comments" }

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = CommentActive
	}
	return nil
}

// CommentLike is one user's like on one comment; unique per pair.
type CommentLike struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);not null;index;uniqueIndex:uidx_comment_like_pair" json:"userId"`
	CommentID string    `gorm:"column:comment_id;type:varchar(36);not null;index;uniqueIndex:uidx_comment_like_pair" json:"commentId"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

func (CommentLike) TableName() string { return "comment_likes" }

func (cl *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	return nil
}

// Follow is a directed follow edge; unique per (follower, following) pair,
// removed outright on unfollow.
type Follow struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FollowerID  string       `gorm:"column:follower_id;type:varchar(36);not null;index;uniqueIndex:uidx_follow_pair" json:"followerId"`
	FollowingID string       `gorm:"column:following_id;type:varchar(36);not null;index;uniqueIndex:uidx_follow_pair" json:"followingId"`
	Status      FollowStatus `gorm:"type:varchar(16);not null;default:following" json:"status"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"-"`
}

func (Follow) TableName() string { return "follows" }

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Status == "" {
		f.Status = FollowFollowing
	}
	return nil
}

// Share records one share of a video through some channel. No uniqueness.
type Share struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string    `gorm:"column:user_id;type:varchar(36);not null;index" json:"userId"`
	VideoID      string    `gorm:"column:video_id;type:varchar(36);not null;index" json:"videoId"`
	ShareType    ShareType `gorm:"column:share_type;type:varchar(16);not null" json:"shareType"`
	Platform     string    `gorm:"type:varchar(32)" json:"platform,omitempty"`
	TargetUserID string    `gorm:"column:target_user_id;type:varchar(36)" json:"targetUserId,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Share) TableName() string { return "shares" }

func (s *Share) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// View records one playback of a video. Views are unconditional (no
// uniqueness) and UserID is empty for anonymous viewers. Rows exist so the
// view counter can always be rebuilt from the database after a cache loss.
type View struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	VideoID   string    `gorm:"column:video_id;type:varchar(36);not null;index" json:"videoId"`
	UserID    string    `gorm:"column:user_id;type:varchar(36);index" json:"userId,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (View) TableName() string { return "views" }

func (v *View) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}

// Models lists every GORM model for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&Like{}, &Comment{}, &CommentLike{}, &Follow{}, &Share{}, &View{},
	}
}
