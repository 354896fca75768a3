package library

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/readstack/readstack-mcp/api"
)

const tagCacheKey = "tags"

// TagLister is the tag side of the API client.
type TagLister interface {
	ListTags(ctx context.Context) ([]api.Tag, error)
}

// TagCatalog serves the available tags for filter population. Tags are
// immutable for a session, so the first successful fetch is cached. A failed
// fetch is logged and yields an empty catalog: tag filtering is an optional
// enhancement, not a user-facing error.
type TagCatalog struct {
	backend TagLister
	cache   *gocache.Cache
	logger  *zap.Logger
}

func NewTagCatalog(backend TagLister, ttl time.Duration, logger *zap.Logger) *TagCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TagCatalog{
		backend: backend,
		cache:   gocache.New(ttl, 10*time.Minute),
		logger:  logger,
	}
}

func (t *TagCatalog) Tags(ctx context.Context) []api.Tag {
	if x, found := t.cache.Get(tagCacheKey); found {
		return x.([]api.Tag)
	}
	tags, err := t.backend.ListTags(ctx)
	if err != nil {
		t.logger.Warn("tag catalog fetch failed", zap.Error(err))
		return nil
	}
	t.cache.Set(tagCacheKey, tags, gocache.DefaultExpiration)
	return tags
}
