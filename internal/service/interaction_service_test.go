package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliply/interaction-service/internal/cache"
	"github.com/cliply/interaction-service/internal/domain"
	"github.com/cliply/interaction-service/internal/events"
)

func TestLikeVideo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	total, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	liked, err := f.svc.LikeStatus(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.True(t, liked)

	evts := f.bus.byTopic(events.TopicVideoLiked)
	require.Len(t, evts, 1)
	payload := evts[0].Payload.(events.LikeEvent)
	assert.Equal(t, "user-1", payload.UserID)
	assert.Equal(t, int64(1), payload.TotalLikes)
}

func TestLikeVideoIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)

	_, err = f.svc.LikeVideo(ctx, "user-1", "video-1")
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	// The counter must not have moved on the duplicate.
	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterLikes))
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	assert.Len(t, f.bus.byTopic(events.TopicVideoLiked), 1)
}

func TestLikeVideoLostRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Row exists but the flag is cached stale-false: the engine passes the
	// flag check, loses the insert to the unique constraint, and repairs
	// the flag.
	f.likes.pairs[pairKey("user-1", "video-1")] = "video-1"
	require.NoError(t, f.cache.SetFlag(ctx, cache.LikeFlagKey("user-1", "video-1"), false))

	_, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	flag, ok, err := f.cache.GetFlag(ctx, cache.LikeFlagKey("user-1", "video-1"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, flag)
}

func TestUnlikeVideo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)

	total, err := f.svc.UnlikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, err = f.svc.UnlikeVideo(ctx, "user-1", "video-1")
	assert.ErrorIs(t, err, ErrNotLiked)

	liked, err := f.svc.LikeStatus(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestUnlikeVideoNeverLiked(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UnlikeVideo(context.Background(), "user-1", "video-1")
	assert.ErrorIs(t, err, ErrNotLiked)
	assert.Empty(t, f.bus.byTopic(events.TopicVideoUnliked))
}

func TestCounterFlooredAtZero(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Stale cached zero alongside an existing row: the decrement must not
	// drive the counter negative.
	f.likes.pairs[pairKey("user-1", "video-1")] = "video-1"
	require.NoError(t, f.cache.SetCount(ctx, cache.VideoCounterKey("video-1", cache.CounterLikes), 0))

	total, err := f.svc.UnlikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestCacheWipeReconstruction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, user := range []string{"user-1", "user-2", "user-3"} {
		_, err := f.svc.LikeVideo(ctx, user, "video-1")
		require.NoError(t, err)
	}
	_, err := f.svc.RecordView(ctx, "video-1", "user-1")
	require.NoError(t, err)

	f.cache.wipe()

	stats, err := f.svc.VideoStats(ctx, "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Likes)
	assert.Equal(t, int64(1), stats.Views)

	// The read rebuilt the cache from the database.
	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterLikes))
	require.True(t, ok)
	assert.Equal(t, int64(3), count)
}

func TestWriteSurvivesCacheOutage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.cache.fail(errors.New("connection refused"))

	total, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// The durable write landed and the event still went out.
	exists, err := f.likes.Exists(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Len(t, f.bus.byTopic(events.TopicVideoLiked), 1)
}

func TestWriteSurvivesPublishFailure(t *testing.T) {
	f := newFixture()
	f.bus.err = errors.New("broker unreachable")
	ctx := context.Background()

	total, err := f.svc.LikeVideo(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	exists, err := f.likes.Exists(ctx, "user-1", "video-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAddComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	comment, err := f.svc.AddComment(ctx, "user-1", "video-1", "  nice video  ", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "nice video", comment.Content)
	assert.Equal(t, domain.CommentActive, comment.Status)

	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterComments))
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	evts := f.bus.byTopic(events.TopicCommentCreated)
	require.Len(t, evts, 1)
	assert.Equal(t, comment.ID, evts[0].Payload.(events.CommentEvent).CommentID)
}

func TestAddCommentValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.AddComment(ctx, "user-1", "video-1", "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyContent)

	_, err = f.svc.AddComment(ctx, "user-1", "video-1", strings.Repeat("a", 2001), nil)
	assert.ErrorIs(t, err, ErrContentTooLong)

	missing := "no-such-comment"
	_, err = f.svc.AddComment(ctx, "user-1", "video-1", "reply", &missing)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestAddCommentReply(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	parent, err := f.svc.AddComment(ctx, "user-1", "video-1", "parent", nil)
	require.NoError(t, err)

	reply, err := f.svc.AddComment(ctx, "user-2", "video-1", "reply", &parent.ID)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)

	got, err := f.comments.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RepliesCount)

	// A parent on another video is rejected.
	_, err = f.svc.AddComment(ctx, "user-3", "video-other", "reply", &parent.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestDeleteComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.AddComment(ctx, "user-1", "video-1", "one", nil)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, "user-2", "video-1", "two", nil)
	require.NoError(t, err)

	err = f.svc.DeleteComment(ctx, first.ID, "user-2")
	assert.ErrorIs(t, err, ErrNotCommentOwner)

	require.NoError(t, f.svc.DeleteComment(ctx, first.ID, "user-1"))

	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterComments))
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	err = f.svc.DeleteComment(ctx, first.ID, "user-1")
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestDeleteHiddenCommentKeepsCounter(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	hidden, err := f.svc.AddComment(ctx, "user-1", "video-1", "one", nil)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, "user-2", "video-1", "two", nil)
	require.NoError(t, err)

	// Hiding rewrites the counter down to the one visible comment.
	require.NoError(t, f.svc.ModerateComment(ctx, hidden.ID, domain.CommentHidden))
	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterComments))
	require.True(t, ok)
	require.Equal(t, int64(1), count)

	// The hidden comment already left the visible count; deleting it must
	// not decrement a second time.
	require.NoError(t, f.svc.DeleteComment(ctx, hidden.ID, "user-1"))

	count, ok = f.cache.count(cache.VideoCounterKey("video-1", cache.CounterComments))
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	dbCount, err := f.comments.CountByVideo(ctx, "video-1")
	require.NoError(t, err)
	assert.Equal(t, dbCount, count)

	assert.Len(t, f.bus.byTopic(events.TopicCommentDeleted), 1)
}

func TestModerateComment(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.AddComment(ctx, "user-1", "video-1", "one", nil)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, "user-2", "video-1", "two", nil)
	require.NoError(t, err)

	err = f.svc.ModerateComment(ctx, first.ID, domain.CommentStatus("bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, f.svc.ModerateComment(ctx, first.ID, domain.CommentHidden))

	// Hiding removes the comment from the visible count and the counter
	// is rewritten to match.
	count, ok := f.cache.count(cache.VideoCounterKey("video-1", cache.CounterComments))
	require.True(t, ok)
	assert.Equal(t, int64(1), count)

	page, err := f.svc.Comments(ctx, "video-1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 1)

	err = f.svc.ModerateComment(ctx, "no-such-comment", domain.CommentHidden)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestCommentLikes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.LikeComment(ctx, "user-1", "no-such-comment")
	assert.ErrorIs(t, err, ErrCommentNotFound)

	comment, err := f.svc.AddComment(ctx, "user-1", "video-1", "hello", nil)
	require.NoError(t, err)

	total, err := f.svc.LikeComment(ctx, "user-2", comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, err = f.svc.LikeComment(ctx, "user-2", comment.ID)
	assert.ErrorIs(t, err, ErrAlreadyLiked)

	liked, err := f.svc.CommentLikeStatus(ctx, "user-2", comment.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	total, err = f.svc.UnlikeComment(ctx, "user-2", comment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	_, err = f.svc.UnlikeComment(ctx, "user-2", comment.ID)
	assert.ErrorIs(t, err, ErrNotLiked)
}

func TestFollowUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FollowUser(ctx, "user-1", "user-1")
	assert.ErrorIs(t, err, ErrSelfFollow)

	counts, err := f.svc.FollowUser(ctx, "user-1", "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Followers)
	assert.Equal(t, int64(1), counts.Followings)

	_, err = f.svc.FollowUser(ctx, "user-1", "user-2")
	assert.ErrorIs(t, err, ErrAlreadyFollowing)

	following, err := f.svc.FollowStatus(ctx, "user-1", "user-2")
	require.NoError(t, err)
	assert.True(t, following)

	// The reverse direction is independent.
	following, err = f.svc.FollowStatus(ctx, "user-2", "user-1")
	require.NoError(t, err)
	assert.False(t, following)
}

func TestUnfollowUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.FollowUser(ctx, "user-1", "user-2")
	require.NoError(t, err)

	require.NoError(t, f.svc.UnfollowUser(ctx, "user-1", "user-2"))

	err = f.svc.UnfollowUser(ctx, "user-1", "user-2")
	assert.ErrorIs(t, err, ErrNotFollowing)

	counts, err := f.svc.FollowerCounts(ctx, "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Followers)
}

func TestRecordView(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	total, err := f.svc.RecordView(ctx, "video-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	// Views are unconditional; repeats and anonymous viewers all count.
	total, err = f.svc.RecordView(ctx, "video-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	total, err = f.svc.RecordView(ctx, "video-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestShareVideo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.ShareVideo(ctx, "user-1", "video-1", domain.ShareType("carrier-pigeon"), "", "")
	assert.ErrorIs(t, err, ErrInvalidShareType)

	total, err := f.svc.ShareVideo(ctx, "user-1", "video-1", domain.ShareDirect, "", "user-2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	total, err = f.svc.ShareVideo(ctx, "user-1", "video-1", domain.ShareSocial, "twitter", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	evts := f.bus.byTopic(events.TopicVideoShared)
	assert.Len(t, evts, 2)
}

func TestCommentsPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := f.svc.AddComment(ctx, "user-1", "video-1", "comment", nil)
		require.NoError(t, err)
	}

	page, err := f.svc.Comments(ctx, "video-1", 1, 20)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 20)
	assert.Equal(t, int64(25), page.Total)
	assert.True(t, page.HasMore)

	page, err = f.svc.Comments(ctx, "video-1", 2, 20)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 5)
	assert.False(t, page.HasMore)

	// Out-of-range inputs fall back to sane values.
	page, err = f.svc.Comments(ctx, "video-1", 0, 1000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
}

func TestFollowPages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, follower := range []string{"a", "b", "c"} {
		_, err := f.svc.FollowUser(ctx, follower, "user-1")
		require.NoError(t, err)
	}
	_, err := f.svc.FollowUser(ctx, "user-1", "a")
	require.NoError(t, err)

	followers, err := f.svc.Followers(ctx, "user-1", 1, 2)
	require.NoError(t, err)
	assert.Len(t, followers.UserIDs, 2)
	assert.Equal(t, int64(3), followers.Total)
	assert.True(t, followers.HasMore)

	following, err := f.svc.Following(ctx, "user-1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, following.UserIDs)
	assert.False(t, following.HasMore)
}

func TestVideoStatsTracksHotKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.VideoStats(ctx, "video-1")
	require.NoError(t, err)

	keys, err := f.cache.TopHotKeys(ctx, 10)
	require.NoError(t, err)
	assert.Contains(t, keys, cache.VideoHotKey("video-1"))
}
