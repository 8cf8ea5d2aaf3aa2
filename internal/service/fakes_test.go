package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/cliply/interaction-service/internal/domain"
	"github.com/cliply/interaction-service/internal/repository"
)

// In-memory fakes for the engine's dependencies. They reproduce the
// contracts the real implementations promise: unique-pair inserts fail
// with ErrAlreadyExists, deletes of absent rows fail with ErrNotFound,
// and conditional cache mutations touch only keys that already exist.

func pairKey(a, b string) string { return a + "|" + b }

type fakeLikeRepo struct {
	mu    sync.Mutex
	pairs map[string]string // pairKey(user, video) -> videoID
}

func newFakeLikeRepo() *fakeLikeRepo {
	return &fakeLikeRepo{pairs: make(map[string]string)}
}

func (f *fakeLikeRepo) Insert(ctx context.Context, userID, videoID string) (*domain.Like, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(userID, videoID)
	if _, ok := f.pairs[key]; ok {
		return nil, repository.ErrAlreadyExists
	}
	f.pairs[key] = videoID
	return &domain.Like{ID: uuid.NewString(), UserID: userID, VideoID: videoID}, nil
}

func (f *fakeLikeRepo) DeleteByPair(ctx context.Context, userID, videoID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(userID, videoID)
	if _, ok := f.pairs[key]; !ok {
		return repository.ErrNotFound
	}
	delete(f.pairs, key)
	return nil
}

func (f *fakeLikeRepo) Exists(ctx context.Context, userID, videoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.pairs[pairKey(userID, videoID)]
	return ok, nil
}

func (f *fakeLikeRepo) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.pairs {
		if v == videoID {
			n++
		}
	}
	return n, nil
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments map[string]*domain.Comment
	order    []string
	likes    map[string]string // pairKey(user, comment) -> commentID
}

func newFakeCommentRepo() *fakeCommentRepo {
	return &fakeCommentRepo{
		comments: make(map[string]*domain.Comment),
		likes:    make(map[string]string),
	}
}

func (f *fakeCommentRepo) Insert(ctx context.Context, comment *domain.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Status == "" {
		comment.Status = domain.CommentActive
	}
	cp := *comment
	f.comments[comment.ID] = &cp
	f.order = append(f.order, comment.ID)
	return nil
}

func (f *fakeCommentRepo) FindByID(ctx context.Context, commentID string) (*domain.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCommentRepo) Delete(ctx context.Context, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.comments[commentID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.comments, commentID)
	for i, id := range f.order {
		if id == commentID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	for key, cid := range f.likes {
		if cid == commentID {
			delete(f.likes, key)
		}
	}
	return nil
}

func (f *fakeCommentRepo) UpdateStatus(ctx context.Context, commentID string, status domain.CommentStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeCommentRepo) IncrementReplies(ctx context.Context, commentID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return repository.ErrNotFound
	}
	if c.RepliesCount+delta >= 0 {
		c.RepliesCount += delta
	}
	return nil
}

func visible(c *domain.Comment) bool {
	return c.Status == domain.CommentActive || c.Status == domain.CommentReported
}

func (f *fakeCommentRepo) FindPageByVideo(ctx context.Context, videoID string, offset, limit int) ([]domain.Comment, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.Comment
	for _, id := range f.order {
		c := f.comments[id]
		if c.VideoID == videoID && visible(c) {
			all = append(all, *c)
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (f *fakeCommentRepo) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.comments {
		if c.VideoID == videoID && visible(c) {
			n++
		}
	}
	return n, nil
}

func (f *fakeCommentRepo) InsertLike(ctx context.Context, userID, commentID string) (*domain.CommentLike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(userID, commentID)
	if _, ok := f.likes[key]; ok {
		return nil, repository.ErrAlreadyExists
	}
	f.likes[key] = commentID
	return &domain.CommentLike{ID: uuid.NewString(), UserID: userID, CommentID: commentID}, nil
}

func (f *fakeCommentRepo) DeleteLikeByPair(ctx context.Context, userID, commentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(userID, commentID)
	if _, ok := f.likes[key]; !ok {
		return repository.ErrNotFound
	}
	delete(f.likes, key)
	return nil
}

func (f *fakeCommentRepo) LikeExists(ctx context.Context, userID, commentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.likes[pairKey(userID, commentID)]
	return ok, nil
}

func (f *fakeCommentRepo) CountLikes(ctx context.Context, commentID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, cid := range f.likes {
		if cid == commentID {
			n++
		}
	}
	return n, nil
}

type fakeFollowRepo struct {
	mu    sync.Mutex
	edges map[string][2]string // pairKey -> {follower, following}
	order []string
}

func newFakeFollowRepo() *fakeFollowRepo {
	return &fakeFollowRepo{edges: make(map[string][2]string)}
}

func (f *fakeFollowRepo) Insert(ctx context.Context, followerID, followingID string) (*domain.Follow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(followerID, followingID)
	if _, ok := f.edges[key]; ok {
		return nil, repository.ErrAlreadyExists
	}
	f.edges[key] = [2]string{followerID, followingID}
	f.order = append(f.order, key)
	return &domain.Follow{ID: uuid.NewString(), FollowerID: followerID, FollowingID: followingID}, nil
}

func (f *fakeFollowRepo) DeleteByPair(ctx context.Context, followerID, followingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := pairKey(followerID, followingID)
	if _, ok := f.edges[key]; !ok {
		return repository.ErrNotFound
	}
	delete(f.edges, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeFollowRepo) Exists(ctx context.Context, followerID, followingID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.edges[pairKey(followerID, followingID)]
	return ok, nil
}

func (f *fakeFollowRepo) CountFollowers(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.edges {
		if e[1] == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollowRepo) CountFollowing(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.edges {
		if e[0] == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeFollowRepo) FindFollowersPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, key := range f.order {
		e := f.edges[key]
		if e[1] == userID {
			all = append(all, e[0])
		}
	}
	return pageOf(all, offset, limit), int64(len(all)), nil
}

func (f *fakeFollowRepo) FindFollowingPage(ctx context.Context, userID string, offset, limit int) ([]string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []string
	for _, key := range f.order {
		e := f.edges[key]
		if e[0] == userID {
			all = append(all, e[1])
		}
	}
	return pageOf(all, offset, limit), int64(len(all)), nil
}

func pageOf(all []string, offset, limit int) []string {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type fakeShareRepo struct {
	mu     sync.Mutex
	shares []domain.Share
}

func (f *fakeShareRepo) Insert(ctx context.Context, share *domain.Share) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if share.ID == "" {
		share.ID = uuid.NewString()
	}
	f.shares = append(f.shares, *share)
	return nil
}

func (f *fakeShareRepo) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.shares {
		if s.VideoID == videoID {
			n++
		}
	}
	return n, nil
}

type fakeViewRepo struct {
	mu    sync.Mutex
	views []domain.View
}

func (f *fakeViewRepo) Insert(ctx context.Context, videoID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, domain.View{ID: uuid.NewString(), VideoID: videoID, UserID: userID})
	return nil
}

func (f *fakeViewRepo) CountByVideo(ctx context.Context, videoID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.views {
		if v.VideoID == videoID {
			n++
		}
	}
	return n, nil
}

// fakeCache mirrors the Redis cache's conditional semantics. Setting
// failAll makes every call error, simulating a cache outage.
type fakeCache struct {
	mu      sync.Mutex
	counts  map[string]int64
	flags   map[string]bool
	hot     map[string]int64
	failAll error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		counts: make(map[string]int64),
		flags:  make(map[string]bool),
		hot:    make(map[string]int64),
	}
}

func (f *fakeCache) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

// wipe simulates a cache flush: every counter and flag disappears.
func (f *fakeCache) wipe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[string]int64)
	f.flags = make(map[string]bool)
}

func (f *fakeCache) GetCount(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, false, f.failAll
	}
	v, ok := f.counts[key]
	return v, ok, nil
}

func (f *fakeCache) SetCount(ctx context.Context, key string, count int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.counts[key] = count
	return nil
}

func (f *fakeCache) CondIncr(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, false, f.failAll
	}
	v, ok := f.counts[key]
	if !ok {
		return 0, false, nil
	}
	v++
	f.counts[key] = v
	return v, true, nil
}

func (f *fakeCache) CondDecr(ctx context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return 0, false, f.failAll
	}
	v, ok := f.counts[key]
	if !ok {
		return 0, false, nil
	}
	if v > 0 {
		v--
	}
	f.counts[key] = v
	return v, true, nil
}

func (f *fakeCache) GetFlag(ctx context.Context, key string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return false, false, f.failAll
	}
	v, ok := f.flags[key]
	return v, ok, nil
}

func (f *fakeCache) SetFlag(ctx context.Context, key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.flags[key] = value
	return nil
}

func (f *fakeCache) RecordAccess(ctx context.Context, entityKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.hot[entityKey]++
	return nil
}

func (f *fakeCache) TopHotKeys(ctx context.Context, n int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var keys []string
	for k := range f.hot {
		keys = append(keys, k)
	}
	if int64(len(keys)) > n {
		keys = keys[:n]
	}
	return keys, nil
}

func (f *fakeCache) ResetHotKeys(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.hot = make(map[string]int64)
	return nil
}

func (f *fakeCache) Close() error { return nil }

func (f *fakeCache) count(key string) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.counts[key]
	return v, ok
}

type publishedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

type fakeBus struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakeBus) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) byTopic(topic string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

// fixture bundles a fully wired engine over fakes.
type fixture struct {
	svc      InteractionService
	likes    *fakeLikeRepo
	comments *fakeCommentRepo
	follows  *fakeFollowRepo
	shares   *fakeShareRepo
	views    *fakeViewRepo
	cache    *fakeCache
	bus      *fakeBus
}

func newFixture() *fixture {
	f := &fixture{
		likes:    newFakeLikeRepo(),
		comments: newFakeCommentRepo(),
		follows:  newFakeFollowRepo(),
		shares:   &fakeShareRepo{},
		views:    &fakeViewRepo{},
		cache:    newFakeCache(),
		bus:      &fakeBus{},
	}
	f.svc = NewInteractionService(f.likes, f.comments, f.follows, f.shares, f.views, f.cache, f.bus)
	return f
}
