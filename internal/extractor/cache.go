package extractor

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/metrics"
)

// Source extracts page metadata.
type Source interface {
	Extract(ctx context.Context, url string) (domain.Metadata, error)
}

// Cache stores extracted metadata by URL. Both the redis store and the
// in-memory index implement it.
type Cache interface {
	GetMetadata(ctx context.Context, url string) (domain.Metadata, bool, error)
	PutMetadata(ctx context.Context, url string, meta domain.Metadata, ttl time.Duration) error
}

// Cached serves repeated extractions of a URL from a cache. Failures are
// never cached and cache errors only cost a fresh fetch.
type Cached struct {
	next  Source
	cache Cache
	ttl   time.Duration
	log   logger.Logger
}

// NewCached wraps next with cache, keeping successful results for ttl.
func NewCached(next Source, cache Cache, ttl time.Duration, log logger.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *Cached) Extract(ctx context.Context, url string) (domain.Metadata, error) {
	meta, ok, err := c.cache.GetMetadata(ctx, url)
	switch {
	case err != nil:
		metrics.RecordCache("error")
		c.log.Warn("metadata cache lookup failed", logger.String("url", url), logger.Error(err))
	case ok:
		metrics.RecordCache("hit")
		return meta, nil
	default:
		metrics.RecordCache("miss")
	}

	meta, err = c.next.Extract(ctx, url)
	if err != nil {
		return domain.Metadata{}, err
	}

	if err := c.cache.PutMetadata(ctx, url, meta, c.ttl); err != nil {
		c.log.Warn("metadata cache store failed", logger.String("url", url), logger.Error(err))
	}
	return meta, nil
}
