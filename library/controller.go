// Package library owns the client-side view of the document list: the active
// filter and sort state, pagination, and the mutations that patch individual
// documents. The backend applies all filtering and ordering; the list held
// here is only ever a suffix-extended or wholesale-replaced copy of a
// server-ordered result.
package library

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
	"github.com/readstack/readstack-mcp/session"
)

// ErrFetchInFlight is returned by LoadMore while a fetch is outstanding.
// It is not user-facing; the triggering action is simply a no-op.
var ErrFetchInFlight = errors.New("fetch already in flight")

// Lister is the listing side of the API client.
type Lister interface {
	ListDocuments(ctx context.Context, q api.ListQuery) (*api.DocumentList, error)
}

// Mutator is the document mutation side of the API client.
type Mutator interface {
	ToggleRead(ctx context.Context, docID string, isRead bool) (*api.Document, error)
	DeleteDocument(ctx context.Context, docID string) error
	TriggerCodeAnalysis(ctx context.Context, docID string) error
}

// Backend is what the controller needs from the API client.
type Backend interface {
	Lister
	Mutator
}

type Options struct {
	PageSize       int
	SearchDebounce time.Duration
	// FetchTimeout bounds a background refresh triggered by a filter change.
	FetchTimeout time.Duration
}

func (o *Options) fill() {
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.SearchDebounce <= 0 {
		o.SearchDebounce = 300 * time.Millisecond
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
}

type Controller struct {
	backend Backend
	session *session.Session
	logger  *zap.Logger
	opts    Options

	// seq guards against out-of-order arrival: a response is applied only if
	// its id still equals the latest issued one.
	seq atomic.Uint64

	mu            sync.Mutex
	search        string
	tag           string
	readFilter    api.ReadFilter
	sort          api.SortOrder
	docs          []api.Document
	hasMore       bool
	lastErr       error
	inFlight      bool
	debounceTimer *time.Timer
	onChange      func()
	closed        bool
}

func NewController(backend Backend, sess *session.Session, logger *zap.Logger, opts Options) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.fill()
	return &Controller{
		backend: backend,
		session: sess,
		logger:  logger,
		opts:    opts,
		sort:    api.SortNewest,
	}
}

// OnChange registers a callback fired after every applied fetch result,
// successful or failed. Mutations that patch the list fire it too.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Documents returns a snapshot of the accumulated list.
func (c *Controller) Documents() []api.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Document, len(c.docs))
	copy(out, c.docs)
	return out
}

func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// LastError returns the classified failure of the most recent fetch, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SetSearch schedules a debounced reset-and-refetch. Each keystroke replaces
// the pending timer, so only the final value fires.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.search = q
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceTimer = time.AfterFunc(c.opts.SearchDebounce, c.refresh)
	c.mu.Unlock()
}

func (c *Controller) SetTag(tag string) {
	c.mu.Lock()
	c.tag = tag
	c.mu.Unlock()
	c.refresh()
}

func (c *Controller) SetReadFilter(f api.ReadFilter) {
	c.mu.Lock()
	c.readFilter = f
	c.mu.Unlock()
	c.refresh()
}

// SetFilters replaces the whole filter state at once without triggering a
// fetch; callers follow up with Refresh or RefreshWait. A pending search
// debounce is cancelled since the new state supersedes it.
func (c *Controller) SetFilters(search, tag string, readFilter api.ReadFilter, sort api.SortOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.search = search
	c.tag = tag
	c.readFilter = readFilter
	c.sort = sort
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}

func (c *Controller) SetSort(s api.SortOrder) {
	c.mu.Lock()
	c.sort = s
	c.mu.Unlock()
	c.refresh()
}

// Refresh restarts pagination from offset zero with the current filter
// state. It is also the retry action after a failed fetch.
func (c *Controller) Refresh() { c.refresh() }

// RefreshWait refreshes and blocks until that particular fetch has been
// applied or superseded. Used by callers that need the result in hand.
func (c *Controller) RefreshWait(ctx context.Context) error {
	done := make(chan struct{})
	c.startFetch(func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Controller) refresh() {
	c.startFetch(nil)
}

// startFetch issues a sequence-guarded fetch at offset zero. A newer fetch
// issued before this one returns wins; the stale response is dropped
// silently.
func (c *Controller) startFetch(done func()) {
	id := c.seq.Add(1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if done != nil {
			done()
		}
		return
	}
	q := c.queryLocked(0)
	c.inFlight = true
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		defer cancel()
		list, err := c.backend.ListDocuments(ctx, q)

		c.mu.Lock()
		if id != c.seq.Load() {
			// Superseded by a later filter change; never merged.
			c.mu.Unlock()
			c.logger.Debug("dropping stale list response", zap.Uint64("seq", id))
			if done != nil {
				done()
			}
			return
		}
		c.inFlight = false
		if err != nil {
			// Accumulated list stays untouched on failure.
			c.lastErr = err
			c.logger.Warn("document list fetch failed", zap.Error(err))
		} else {
			c.lastErr = nil
			c.docs = list.Items
			c.hasMore = pageHasMore(list, q.Limit)
		}
		notify := c.onChange
		c.mu.Unlock()
		if notify != nil {
			notify()
		}
		if done != nil {
			done()
		}
	}()
}

// LoadMore appends the next page at the current accumulated offset. It is a
// no-op while any fetch is outstanding, and its response is discarded if a
// filter change superseded it while it was in flight: the page belongs to the
// old filter state and must never merge into the new list.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrFetchInFlight
	}
	if !c.hasMore && len(c.docs) > 0 {
		c.mu.Unlock()
		return nil
	}
	id := c.seq.Load()
	c.inFlight = true
	q := c.queryLocked(len(c.docs))
	c.mu.Unlock()

	list, err := c.backend.ListDocuments(ctx, q)

	c.mu.Lock()
	if id != c.seq.Load() {
		// A refresh took over while this page was in flight. Its result
		// replaced the list wholesale; this page extends a state that no
		// longer exists.
		c.inFlight = false
		c.mu.Unlock()
		c.logger.Debug("dropping stale page response", zap.Uint64("seq", id))
		return nil
	}
	c.inFlight = false
	if err != nil {
		c.lastErr = err
		notify := c.onChange
		c.mu.Unlock()
		if notify != nil {
			notify()
		}
		return err
	}
	c.lastErr = nil
	c.docs = append(c.docs, list.Items...)
	c.hasMore = pageHasMore(list, q.Limit)
	notify := c.onChange
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
	return nil
}

func (c *Controller) queryLocked(offset int) api.ListQuery {
	return api.ListQuery{
		Limit:      c.opts.PageSize,
		Offset:     offset,
		Sort:       c.sort,
		Search:     c.search,
		ReadFilter: c.readFilter,
		Tag:        c.tag,
	}
}

// pageHasMore prefers the explicit server flag and falls back to inferring
// from a full page.
func pageHasMore(list *api.DocumentList, limit int) bool {
	if list.HasMore != nil {
		return *list.HasMore
	}
	return len(list.Items) == limit
}

// Close stops the debounce timer. In-flight responses after Close are
// dropped by the sequence guard.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.seq.Add(1)
}
