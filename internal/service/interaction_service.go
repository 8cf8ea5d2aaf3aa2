package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/cliply/interaction-service/internal/cache"
	"github.com/cliply/interaction-service/internal/domain"
	"github.com/cliply/interaction-service/internal/events"
	"github.com/cliply/interaction-service/internal/repository"
	pkglog "github.com/cliply/interaction-service/pkg/log"
)

// maxContentLength caps comment content, measured in runes.
const maxContentLength = 2000

// interactionService implements InteractionService.
//
// Write order is fixed: idempotency check, database write (durability
// boundary), cache mutation, event publish. Cache and publish failures
// after the database write never fail the operation; the read path and
// the reconciler heal any divergence.
type interactionService struct {
	likes    repository.LikeRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	shares   repository.ShareRepository
	views    repository.ViewRepository
	cache    cache.CounterCache
	bus      events.Publisher
	sf       singleflight.Group
}

// NewInteractionService creates the interaction engine.
func NewInteractionService(
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	follows repository.FollowRepository,
	shares repository.ShareRepository,
	views repository.ViewRepository,
	counterCache cache.CounterCache,
	bus events.Publisher,
) InteractionService {
	return &interactionService{
		likes:    likes,
		comments: comments,
		follows:  follows,
		shares:   shares,
		views:    views,
		cache:    counterCache,
		bus:      bus,
	}
}

// LikeVideo records one like per (user, video). The unique index in the
// database is the arbiter under races; the cached membership flag only
// short-circuits the common duplicate call.
func (s *interactionService) LikeVideo(ctx context.Context, userID, videoID string) (int64, error) {
	liked, err := s.membership(ctx, cache.LikeFlagKey(userID, videoID), func(ctx context.Context) (bool, error) {
		return s.likes.Exists(ctx, userID, videoID)
	})
	if err != nil {
		return 0, err
	}
	if liked {
		return 0, ErrAlreadyLiked
	}

	if _, err := s.likes.Insert(ctx, userID, videoID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			// Lost the race to a concurrent like; make the flag catch
			// the next duplicate without a database round-trip.
			s.setFlag(ctx, cache.LikeFlagKey(userID, videoID), true)
			return 0, ErrAlreadyLiked
		}
		return 0, err
	}

	s.setFlag(ctx, cache.LikeFlagKey(userID, videoID), true)
	total := s.bumpCounter(ctx, cache.VideoCounterKey(videoID, cache.CounterLikes), func(ctx context.Context) (int64, error) {
		return s.likes.CountByVideo(ctx, videoID)
	})

	s.publish(ctx, events.TopicVideoLiked, videoID, events.LikeEvent{
		UserID:     userID,
		VideoID:    videoID,
		TotalLikes: total,
	})

	return total, nil
}

// UnlikeVideo removes the like row; absent row means ErrNotLiked.
func (s *interactionService) UnlikeVideo(ctx context.Context, userID, videoID string) (int64, error) {
	liked, err := s.membership(ctx, cache.LikeFlagKey(userID, videoID), func(ctx context.Context) (bool, error) {
		return s.likes.Exists(ctx, userID, videoID)
	})
	if err != nil {
		return 0, err
	}
	if !liked {
		return 0, ErrNotLiked
	}

	if err := s.likes.DeleteByPair(ctx, userID, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.setFlag(ctx, cache.LikeFlagKey(userID, videoID), false)
			return 0, ErrNotLiked
		}
		return 0, err
	}

	s.setFlag(ctx, cache.LikeFlagKey(userID, videoID), false)
	total := s.dropCounter(ctx, cache.VideoCounterKey(videoID, cache.CounterLikes), func(ctx context.Context) (int64, error) {
		return s.likes.CountByVideo(ctx, videoID)
	})

	s.publish(ctx, events.TopicVideoUnliked, videoID, events.LikeEvent{
		UserID:     userID,
		VideoID:    videoID,
		TotalLikes: total,
	})

	return total, nil
}

// AddComment validates content, persists the comment, bumps the counter
// and announces it. Comments carry no uniqueness constraint.
func (s *interactionService) AddComment(ctx context.Context, userID, videoID, content string, parentID *string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, ErrContentTooLong
	}

	if parentID != nil {
		parent, err := s.comments.FindByID(ctx, *parentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCommentNotFound
			}
			return nil, err
		}
		if parent.VideoID != videoID {
			return nil, ErrCommentNotFound
		}
	}

	comment := &domain.Comment{
		UserID:   userID,
		VideoID:  videoID,
		ParentID: parentID,
		Content:  content,
	}
	if err := s.comments.Insert(ctx, comment); err != nil {
		return nil, err
	}

	if parentID != nil {
		if err := s.comments.IncrementReplies(ctx, *parentID, 1); err != nil {
			pkglog.Ctx(ctx).Warn().Err(err).Str(pkglog.FieldCommentID, *parentID).Msg("failed to bump parent reply count")
		}
	}

	total := s.bumpCounter(ctx, cache.VideoCounterKey(videoID, cache.CounterComments), func(ctx context.Context) (int64, error) {
		return s.comments.CountByVideo(ctx, videoID)
	})

	evt := events.CommentEvent{
		CommentID:     comment.ID,
		UserID:        userID,
		VideoID:       videoID,
		Content:       content,
		TotalComments: total,
	}
	if parentID != nil {
		evt.ParentID = *parentID
	}
	s.publish(ctx, events.TopicCommentCreated, videoID, evt)

	return comment, nil
}

// DeleteComment removes a comment; only the author may do so.
func (s *interactionService) DeleteComment(ctx context.Context, commentID, userID string) error {
	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	if comment.UserID != userID {
		return ErrNotCommentOwner
	}

	if err := s.comments.Delete(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if comment.ParentID != nil {
		if err := s.comments.IncrementReplies(ctx, *comment.ParentID, -1); err != nil {
			pkglog.Ctx(ctx).Warn().Err(err).Str(pkglog.FieldCommentID, *comment.ParentID).Msg("failed to drop parent reply count")
		}
	}

	// The counter tracks visible comments only; deleting one that was
	// already hidden or soft-deleted must not move it.
	recount := func(ctx context.Context) (int64, error) {
		return s.comments.CountByVideo(ctx, comment.VideoID)
	}
	var total int64
	if domain.VisibleCommentStatus(comment.Status) {
		total = s.dropCounter(ctx, cache.VideoCounterKey(comment.VideoID, cache.CounterComments), recount)
	} else if v, err := s.counter(ctx, cache.VideoCounterKey(comment.VideoID, cache.CounterComments), recount); err == nil {
		total = v
	}

	s.publish(ctx, events.TopicCommentDeleted, comment.VideoID, events.CommentEvent{
		CommentID:     commentID,
		UserID:        userID,
		VideoID:       comment.VideoID,
		TotalComments: total,
	})

	return nil
}

// ModerateComment sets a comment's moderation status and rewrites the
// video's comment counter, since moderation changes the visible count.
func (s *interactionService) ModerateComment(ctx context.Context, commentID string, status domain.CommentStatus) error {
	if !domain.ValidCommentStatus(status) {
		return ErrInvalidStatus
	}

	comment, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	if err := s.comments.UpdateStatus(ctx, commentID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	count, err := s.comments.CountByVideo(ctx, comment.VideoID)
	if err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str(pkglog.FieldVideoID, comment.VideoID).Msg("failed to recount comments after moderation")
		return nil
	}
	if err := s.cache.SetCount(ctx, cache.VideoCounterKey(comment.VideoID, cache.CounterComments), count); err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str(pkglog.FieldVideoID, comment.VideoID).Msg("failed to rewrite comment counter after moderation")
	}
	return nil
}

// LikeComment records one like per (user, comment).
func (s *interactionService) LikeComment(ctx context.Context, userID, commentID string) (int64, error) {
	liked, err := s.membership(ctx, cache.CommentLikeFlagKey(userID, commentID), func(ctx context.Context) (bool, error) {
		return s.comments.LikeExists(ctx, userID, commentID)
	})
	if err != nil {
		return 0, err
	}
	if liked {
		return 0, ErrAlreadyLiked
	}

	if _, err := s.comments.FindByID(ctx, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrCommentNotFound
		}
		return 0, err
	}

	if _, err := s.comments.InsertLike(ctx, userID, commentID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.setFlag(ctx, cache.CommentLikeFlagKey(userID, commentID), true)
			return 0, ErrAlreadyLiked
		}
		return 0, err
	}

	s.setFlag(ctx, cache.CommentLikeFlagKey(userID, commentID), true)
	total := s.bumpCounter(ctx, cache.CommentCounterKey(commentID), func(ctx context.Context) (int64, error) {
		return s.comments.CountLikes(ctx, commentID)
	})

	s.publish(ctx, events.TopicCommentLiked, commentID, events.CommentLikeEvent{
		UserID:     userID,
		CommentID:  commentID,
		TotalLikes: total,
	})

	return total, nil
}

// UnlikeComment removes a comment like.
func (s *interactionService) UnlikeComment(ctx context.Context, userID, commentID string) (int64, error) {
	liked, err := s.membership(ctx, cache.CommentLikeFlagKey(userID, commentID), func(ctx context.Context) (bool, error) {
		return s.comments.LikeExists(ctx, userID, commentID)
	})
	if err != nil {
		return 0, err
	}
	if !liked {
		return 0, ErrNotLiked
	}

	if err := s.comments.DeleteLikeByPair(ctx, userID, commentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.setFlag(ctx, cache.CommentLikeFlagKey(userID, commentID), false)
			return 0, ErrNotLiked
		}
		return 0, err
	}

	s.setFlag(ctx, cache.CommentLikeFlagKey(userID, commentID), false)
	total := s.dropCounter(ctx, cache.CommentCounterKey(commentID), func(ctx context.Context) (int64, error) {
		return s.comments.CountLikes(ctx, commentID)
	})

	s.publish(ctx, events.TopicCommentUnliked, commentID, events.CommentLikeEvent{
		UserID:     userID,
		CommentID:  commentID,
		TotalLikes: total,
	})

	return total, nil
}

// FollowUser creates a follow edge and maintains both counters:
// followers on the target, followings on the actor.
func (s *interactionService) FollowUser(ctx context.Context, followerID, followingID string) (*domain.FollowerCounts, error) {
	if followerID == followingID {
		return nil, ErrSelfFollow
	}

	following, err := s.membership(ctx, cache.FollowFlagKey(followerID, followingID), func(ctx context.Context) (bool, error) {
		return s.follows.Exists(ctx, followerID, followingID)
	})
	if err != nil {
		return nil, err
	}
	if following {
		return nil, ErrAlreadyFollowing
	}

	if _, err := s.follows.Insert(ctx, followerID, followingID); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			s.setFlag(ctx, cache.FollowFlagKey(followerID, followingID), true)
			return nil, ErrAlreadyFollowing
		}
		return nil, err
	}

	s.setFlag(ctx, cache.FollowFlagKey(followerID, followingID), true)
	followers := s.bumpCounter(ctx, cache.UserCounterKey(followingID, cache.CounterFollowers), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowers(ctx, followingID)
	})
	followings := s.bumpCounter(ctx, cache.UserCounterKey(followerID, cache.CounterFollowings), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowing(ctx, followerID)
	})

	s.publish(ctx, events.TopicUserFollowed, followingID, events.FollowEvent{
		FollowerID:     followerID,
		FollowingID:    followingID,
		FollowersCount: followers,
		FollowingCount: followings,
	})

	return &domain.FollowerCounts{
		UserID:     followingID,
		Followers:  followers,
		Followings: followings,
	}, nil
}

// UnfollowUser removes the follow edge; absent edge means ErrNotFollowing.
func (s *interactionService) UnfollowUser(ctx context.Context, followerID, followingID string) error {
	following, err := s.membership(ctx, cache.FollowFlagKey(followerID, followingID), func(ctx context.Context) (bool, error) {
		return s.follows.Exists(ctx, followerID, followingID)
	})
	if err != nil {
		return err
	}
	if !following {
		return ErrNotFollowing
	}

	if err := s.follows.DeleteByPair(ctx, followerID, followingID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.setFlag(ctx, cache.FollowFlagKey(followerID, followingID), false)
			return ErrNotFollowing
		}
		return err
	}

	s.setFlag(ctx, cache.FollowFlagKey(followerID, followingID), false)
	followers := s.dropCounter(ctx, cache.UserCounterKey(followingID, cache.CounterFollowers), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowers(ctx, followingID)
	})
	followings := s.dropCounter(ctx, cache.UserCounterKey(followerID, cache.CounterFollowings), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowing(ctx, followerID)
	})

	s.publish(ctx, events.TopicUserUnfollowed, followingID, events.FollowEvent{
		FollowerID:     followerID,
		FollowingID:    followingID,
		FollowersCount: followers,
		FollowingCount: followings,
	})

	return nil
}

// RecordView is unconditional: every call persists a view row and bumps
// the counter. UserID is empty for anonymous viewers.
func (s *interactionService) RecordView(ctx context.Context, videoID, userID string) (int64, error) {
	if err := s.views.Insert(ctx, videoID, userID); err != nil {
		return 0, err
	}

	total := s.bumpCounter(ctx, cache.VideoCounterKey(videoID, cache.CounterViews), func(ctx context.Context) (int64, error) {
		return s.views.CountByVideo(ctx, videoID)
	})

	s.publish(ctx, events.TopicVideoViewed, videoID, events.ViewEvent{
		VideoID:    videoID,
		UserID:     userID,
		TotalViews: total,
	})

	return total, nil
}

// ShareVideo records a share through some channel. No uniqueness.
func (s *interactionService) ShareVideo(ctx context.Context, userID, videoID string, shareType domain.ShareType, platform, targetUserID string) (int64, error) {
	if !domain.ValidShareType(shareType) {
		return 0, ErrInvalidShareType
	}

	share := &domain.Share{
		UserID:       userID,
		VideoID:      videoID,
		ShareType:    shareType,
		Platform:     platform,
		TargetUserID: targetUserID,
	}
	if err := s.shares.Insert(ctx, share); err != nil {
		return 0, err
	}

	total := s.bumpCounter(ctx, cache.VideoCounterKey(videoID, cache.CounterShares), func(ctx context.Context) (int64, error) {
		return s.shares.CountByVideo(ctx, videoID)
	})

	s.publish(ctx, events.TopicVideoShared, videoID, events.ShareEvent{
		UserID:      userID,
		VideoID:     videoID,
		ShareType:   string(shareType),
		Platform:    platform,
		TotalShares: total,
	})

	return total, nil
}

// publish announces a state transition. Failures are logged and never
// surfaced: the database and cache already reflect the new state, and
// rolling them back for a slow broker would be worse than a late event.
func (s *interactionService) publish(ctx context.Context, topic, key string, payload interface{}) {
	if err := s.bus.Publish(ctx, topic, key, payload); err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str(pkglog.FieldTopic, topic).Msg("event publish failed")
	}
}

// setFlag best-effort writes a membership flag; a failure just costs the
// next duplicate check a database round-trip.
func (s *interactionService) setFlag(ctx context.Context, key string, value bool) {
	if err := s.cache.SetFlag(ctx, key, value); err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to set membership flag")
	}
}

var _ InteractionService = (*interactionService)(nil)
