package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pkglog "github.com/cliply/interaction-service/pkg/log"
)

const (
	defaultWindow = 10 * time.Millisecond
	defaultTTL    = time.Minute
)

// ErrResultCountMismatch is returned when a loader yields a different
// number of results than ids it was given.
var ErrResultCountMismatch = errors.New("batch loader returned wrong result count")

// LoaderFunc resolves a batch of ids in one upstream call. The result
// slice must be index-aligned with ids: results[i] belongs to ids[i].
type LoaderFunc func(ctx context.Context, ids []string) ([]interface{}, error)

type result struct {
	value interface{}
	err   error
}

type cacheEntry struct {
	value  interface{}
	expiry time.Time
}

// pending is one open batch for a namespace. The dispatch timer starts
// when the batch is created and is not reset by later arrivals: the
// coalescing window is fixed, not adaptive.
type pending struct {
	ids     []string
	waiters map[string][]chan result
}

// Loader coalesces single-id lookups into batched loader calls and
// short-term caches the results. Calls for the same namespace arriving
// within one coalescing window are dispatched as a single LoaderFunc
// invocation; duplicate ids in a window share one slot. On loader
// failure every caller in the batch gets the same error and nothing is
// cached.
type Loader struct {
	mu      sync.Mutex
	window  time.Duration
	ttl     time.Duration
	batches map[string]*pending
	cache   map[string]cacheEntry
}

// NewLoader creates a Loader. Non-positive window or ttl fall back to
// the defaults (10ms window, 1 minute TTL).
func NewLoader(window, ttl time.Duration) *Loader {
	if window <= 0 {
		window = defaultWindow
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Loader{
		window:  window,
		ttl:     ttl,
		batches: make(map[string]*pending),
		cache:   make(map[string]cacheEntry),
	}
}

func cacheKey(namespace, id string) string {
	return namespace + ":" + id
}

// Load returns the value for id, either from the TTL cache or from a
// batched loader call that includes every id requested for namespace
// within the current coalescing window.
func (l *Loader) Load(ctx context.Context, namespace, id string, fn LoaderFunc) (interface{}, error) {
	key := cacheKey(namespace, id)

	l.mu.Lock()
	if entry, ok := l.cache[key]; ok && time.Now().Before(entry.expiry) {
		l.mu.Unlock()
		return entry.value, nil
	}

	batch, ok := l.batches[namespace]
	if !ok {
		batch = &pending{waiters: make(map[string][]chan result)}
		l.batches[namespace] = batch
		time.AfterFunc(l.window, func() {
			l.dispatch(namespace, fn)
		})
	}

	if _, ok := batch.waiters[id]; !ok {
		batch.ids = append(batch.ids, id)
	}
	ch := make(chan result, 1)
	batch.waiters[id] = append(batch.waiters[id], ch)
	l.mu.Unlock()

	select {
	case res := <-ch:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// dispatch fires when a batch's window closes: it detaches the batch,
// runs the loader once, caches per-id results and wakes every waiter.
func (l *Loader) dispatch(namespace string, fn LoaderFunc) {
	l.mu.Lock()
	batch, ok := l.batches[namespace]
	if !ok {
		l.mu.Unlock()
		return
	}
	delete(l.batches, namespace)
	l.mu.Unlock()

	values, err := fn(context.Background(), batch.ids)
	if err == nil && len(values) != len(batch.ids) {
		err = fmt.Errorf("%w: got %d results for %d ids", ErrResultCountMismatch, len(values), len(batch.ids))
	}
	if err != nil {
		pkglog.L().Warn().Err(err).Str("namespace", namespace).Int("ids", len(batch.ids)).Msg("batch load failed")
		for _, chans := range batch.waiters {
			for _, ch := range chans {
				ch <- result{err: err}
			}
		}
		return
	}

	now := time.Now()
	expiry := now.Add(l.ttl)
	l.mu.Lock()
	// Expired entries are only ever read past, never removed, so sweep
	// them here while the lock is already held for the inserts.
	for key, entry := range l.cache {
		if !now.Before(entry.expiry) {
			delete(l.cache, key)
		}
	}
	for i, id := range batch.ids {
		l.cache[cacheKey(namespace, id)] = cacheEntry{value: values[i], expiry: expiry}
	}
	l.mu.Unlock()

	for i, id := range batch.ids {
		for _, ch := range batch.waiters[id] {
			ch <- result{value: values[i]}
		}
	}
}

// Prime inserts a value into the cache without a loader call.
func (l *Loader) Prime(namespace, id string, value interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache[cacheKey(namespace, id)] = cacheEntry{
		value:  value,
		expiry: time.Now().Add(l.ttl),
	}
}

// ClearCache drops every cached entry whose key starts with prefix; an
// empty prefix drops everything. Keys are "namespace:id".
func (l *Loader) ClearCache(prefix string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if prefix == "" {
		l.cache = make(map[string]cacheEntry)
		return
	}
	for key := range l.cache {
		if strings.HasPrefix(key, prefix) {
			delete(l.cache, key)
		}
	}
}
