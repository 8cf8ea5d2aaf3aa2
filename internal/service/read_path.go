package service

import (
	"context"

	"github.com/cliply/interaction-service/internal/cache"
	"github.com/cliply/interaction-service/internal/domain"
	pkglog "github.com/cliply/interaction-service/pkg/log"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// counter answers a counter read cache-first. On a miss it recounts from
// the database, repopulates the cache and returns the fresh value, so a
// cache wipe costs latency, never data. Concurrent misses for the same
// key collapse into one recount via singleflight.
func (s *interactionService) counter(ctx context.Context, key string, recount func(context.Context) (int64, error)) (int64, error) {
	count, ok, err := s.cache.GetCount(ctx, key)
	if err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache get failed, falling back to database")
	} else if ok {
		return count, nil
	}

	v, err, _ := s.sf.Do(key, func() (interface{}, error) {
		fresh, err := recount(ctx)
		if err != nil {
			return int64(0), err
		}
		if err := s.cache.SetCount(ctx, key, fresh); err != nil {
			pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("failed to repopulate counter")
		}
		return fresh, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// bumpCounter is the write-path increment: atomic and conditional, so a
// missing (wiped) counter is rebuilt from the database rather than
// restarted at one. Returns the post-mutation value best-effort; by this
// point the database write has succeeded and the operation must not fail.
func (s *interactionService) bumpCounter(ctx context.Context, key string, recount func(context.Context) (int64, error)) int64 {
	value, existed, err := s.cache.CondIncr(ctx, key)
	if err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache increment failed, reconciliation debt logged")
	} else if existed {
		return value
	}

	fresh, err := s.counter(ctx, key, recount)
	if err != nil {
		pkglog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to recount after increment miss")
		return 0
	}
	return fresh
}

// dropCounter is the write-path decrement, floored at zero in the cache
// script so concurrent over-calls cannot drive a counter negative.
func (s *interactionService) dropCounter(ctx context.Context, key string, recount func(context.Context) (int64, error)) int64 {
	value, existed, err := s.cache.CondDecr(ctx, key)
	if err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("cache decrement failed, reconciliation debt logged")
	} else if existed {
		return value
	}

	fresh, err := s.counter(ctx, key, recount)
	if err != nil {
		pkglog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to recount after decrement miss")
		return 0
	}
	return fresh
}

// membership answers "does this relation exist" cache-first; on a miss it
// consults the database's unique index and caches the answer. A cache
// error degrades to the database, never to a failure.
func (s *interactionService) membership(ctx context.Context, key string, exists func(context.Context) (bool, error)) (bool, error) {
	value, ok, err := s.cache.GetFlag(ctx, key)
	if err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("flag get failed, falling back to database")
	} else if ok {
		return value, nil
	}

	fresh, err := exists(ctx)
	if err != nil {
		return false, err
	}
	s.setFlag(ctx, key, fresh)
	return fresh, nil
}

// LikeStatus reports whether userID has liked videoID.
func (s *interactionService) LikeStatus(ctx context.Context, userID, videoID string) (bool, error) {
	return s.membership(ctx, cache.LikeFlagKey(userID, videoID), func(ctx context.Context) (bool, error) {
		return s.likes.Exists(ctx, userID, videoID)
	})
}

// CommentLikeStatus reports whether userID has liked commentID.
func (s *interactionService) CommentLikeStatus(ctx context.Context, userID, commentID string) (bool, error) {
	return s.membership(ctx, cache.CommentLikeFlagKey(userID, commentID), func(ctx context.Context) (bool, error) {
		return s.comments.LikeExists(ctx, userID, commentID)
	})
}

// FollowStatus reports whether followerID follows followingID.
func (s *interactionService) FollowStatus(ctx context.Context, followerID, followingID string) (bool, error) {
	return s.membership(ctx, cache.FollowFlagKey(followerID, followingID), func(ctx context.Context) (bool, error) {
		return s.follows.Exists(ctx, followerID, followingID)
	})
}

// VideoStats returns the full counter snapshot for one video.
func (s *interactionService) VideoStats(ctx context.Context, videoID string) (*domain.VideoStats, error) {
	s.recordAccess(ctx, cache.VideoHotKey(videoID))

	likes, err := s.counter(ctx, cache.VideoCounterKey(videoID, cache.CounterLikes), func(ctx context.Context) (int64, error) {
		return s.likes.CountByVideo(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	comments, err := s.counter(ctx, cache.VideoCounterKey(videoID, cache.CounterComments), func(ctx context.Context) (int64, error) {
		return s.comments.CountByVideo(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	views, err := s.counter(ctx, cache.VideoCounterKey(videoID, cache.CounterViews), func(ctx context.Context) (int64, error) {
		return s.views.CountByVideo(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	shares, err := s.counter(ctx, cache.VideoCounterKey(videoID, cache.CounterShares), func(ctx context.Context) (int64, error) {
		return s.shares.CountByVideo(ctx, videoID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.VideoStats{
		VideoID:  videoID,
		Likes:    likes,
		Comments: comments,
		Views:    views,
		Shares:   shares,
	}, nil
}

// FollowerCounts returns follower and following counts for one user.
func (s *interactionService) FollowerCounts(ctx context.Context, userID string) (*domain.FollowerCounts, error) {
	s.recordAccess(ctx, cache.UserHotKey(userID))

	followers, err := s.counter(ctx, cache.UserCounterKey(userID, cache.CounterFollowers), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowers(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	followings, err := s.counter(ctx, cache.UserCounterKey(userID, cache.CounterFollowings), func(ctx context.Context) (int64, error) {
		return s.follows.CountFollowing(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	return &domain.FollowerCounts{
		UserID:     userID,
		Followers:  followers,
		Followings: followings,
	}, nil
}

// Comments returns one page of comments straight from the database.
// Pagination bypasses the cache: correctness beats latency here, and
// cached pages would need invalidation machinery out of proportion to
// their benefit.
func (s *interactionService) Comments(ctx context.Context, videoID string, page, limit int) (*domain.CommentPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	comments, total, err := s.comments.FindPageByVideo(ctx, videoID, offset, limit)
	if err != nil {
		return nil, err
	}

	return &domain.CommentPage{
		Comments: comments,
		Page:     page,
		Limit:    limit,
		Total:    total,
		HasMore:  int64(offset+len(comments)) < total,
	}, nil
}

// Followers returns one page of follower IDs, newest first.
func (s *interactionService) Followers(ctx context.Context, userID string, page, limit int) (*domain.FollowPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	ids, total, err := s.follows.FindFollowersPage(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	return &domain.FollowPage{
		UserIDs: ids,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: int64(offset+len(ids)) < total,
	}, nil
}

// Following returns one page of followed-user IDs, newest first.
func (s *interactionService) Following(ctx context.Context, userID string, page, limit int) (*domain.FollowPage, error) {
	page, limit = normalizePage(page, limit)
	offset := (page - 1) * limit

	ids, total, err := s.follows.FindFollowingPage(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}

	return &domain.FollowPage{
		UserIDs: ids,
		Page:    page,
		Limit:   limit,
		Total:   total,
		HasMore: int64(offset+len(ids)) < total,
	}, nil
}

// recordAccess best-effort tracks hot entities for the reconciler.
func (s *interactionService) recordAccess(ctx context.Context, entityKey string) {
	if err := s.cache.RecordAccess(ctx, entityKey); err != nil {
		pkglog.Ctx(ctx).Warn().Err(err).Str("key", entityKey).Msg("failed to record hot key access")
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}
