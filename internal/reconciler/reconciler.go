package reconciler

import (
	"context"
	"strings"
	"time"

	"github.com/cliply/interaction-service/internal/cache"
	"github.com/cliply/interaction-service/internal/config"
	"github.com/cliply/interaction-service/internal/repository"
	pkglog "github.com/cliply/interaction-service/pkg/log"
)

// Reconciler periodically rewrites hot entities' cached counters from the
// database. It closes the window left by the write path: a crash between
// the database commit and the cache update leaves the cache stale until
// either a read miss or this loop heals it.
type Reconciler struct {
	cache    cache.CounterCache
	likes    repository.LikeRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
	shares   repository.ShareRepository
	views    repository.ViewRepository
	cfg      config.ReconcilerConfig
	quit     chan struct{}
	doneCh   chan struct{}
}

// New creates a new Reconciler.
func New(
	counterCache cache.CounterCache,
	likes repository.LikeRepository,
	comments repository.CommentRepository,
	follows repository.FollowRepository,
	shares repository.ShareRepository,
	views repository.ViewRepository,
	cfg config.ReconcilerConfig,
) *Reconciler {
	return &Reconciler{
		cache:    counterCache,
		likes:    likes,
		comments: comments,
		follows:  follows,
		shares:   shares,
		views:    views,
		cfg:      cfg,
		quit:     make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the reconciler in a background goroutine.
func (r *Reconciler) Start(ctx context.Context) {
	go r.run(ctx)
}

// Stop signals the reconciler to stop and returns immediately.
// Call Done() to wait for it to exit.
func (r *Reconciler) Stop() {
	close(r.quit)
}

// Done returns a channel that is closed when the reconciler has fully stopped.
func (r *Reconciler) Done() <-chan struct{} {
	return r.doneCh
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.doneCh)

	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce runs one reconciliation pass: fetch the top-N hot entity
// keys, recount each entity's counters from the database, rewrite the
// cache, then reset the scores for the next cycle.
func (r *Reconciler) ReconcileOnce(ctx context.Context) {
	l := pkglog.L()

	topN := int64(r.cfg.TopN)
	if topN <= 0 {
		topN = 100
	}

	entityKeys, err := r.cache.TopHotKeys(ctx, topN)
	if err != nil {
		l.Error().Err(err).Msg("reconciler: failed to get top hot keys")
		return
	}
	if len(entityKeys) == 0 {
		return
	}

	for _, entityKey := range entityKeys {
		kind, id, ok := strings.Cut(entityKey, ":")
		if !ok {
			l.Warn().Str("key", entityKey).Msg("reconciler: malformed hot key, skipping")
			continue
		}

		switch kind {
		case "video":
			r.reconcileVideo(ctx, id)
		case "user":
			r.reconcileUser(ctx, id)
		default:
			l.Warn().Str("key", entityKey).Msg("reconciler: unknown entity kind, skipping")
		}
	}

	if err := r.cache.ResetHotKeys(ctx); err != nil {
		l.Error().Err(err).Msg("reconciler: failed to reset hot key scores")
	}

	l.Info().Int("count", len(entityKeys)).Msg("reconciler: hot-key reconciliation complete")
}

func (r *Reconciler) reconcileVideo(ctx context.Context, videoID string) {
	r.rewrite(ctx, cache.VideoCounterKey(videoID, cache.CounterLikes), func() (int64, error) {
		return r.likes.CountByVideo(ctx, videoID)
	})
	r.rewrite(ctx, cache.VideoCounterKey(videoID, cache.CounterComments), func() (int64, error) {
		return r.comments.CountByVideo(ctx, videoID)
	})
	r.rewrite(ctx, cache.VideoCounterKey(videoID, cache.CounterViews), func() (int64, error) {
		return r.views.CountByVideo(ctx, videoID)
	})
	r.rewrite(ctx, cache.VideoCounterKey(videoID, cache.CounterShares), func() (int64, error) {
		return r.shares.CountByVideo(ctx, videoID)
	})
}

func (r *Reconciler) reconcileUser(ctx context.Context, userID string) {
	r.rewrite(ctx, cache.UserCounterKey(userID, cache.CounterFollowers), func() (int64, error) {
		return r.follows.CountFollowers(ctx, userID)
	})
	r.rewrite(ctx, cache.UserCounterKey(userID, cache.CounterFollowings), func() (int64, error) {
		return r.follows.CountFollowing(ctx, userID)
	})
}

func (r *Reconciler) rewrite(ctx context.Context, key string, recount func() (int64, error)) {
	l := pkglog.L()

	count, err := recount()
	if err != nil {
		l.Error().Err(err).Str("key", key).Msg("reconciler: failed to recount from database")
		return
	}
	if err := r.cache.SetCount(ctx, key, count); err != nil {
		l.Error().Err(err).Str("key", key).Msg("reconciler: failed to rewrite counter")
	}
}
