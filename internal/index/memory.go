package index

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// DefaultMaxEntries bounds the number of cached pages.
const DefaultMaxEntries = 10_000

type entry struct {
	meta    domain.Metadata
	expires time.Time
}

// MemoryIndex is an in-process TTL cache for page metadata.
// It is used when Redis is not configured.
type MemoryIndex struct {
	mu         sync.RWMutex
	entries    map[string]entry // URL -> metadata
	maxEntries int
	now        func() time.Time
}

// NewMemoryIndex creates a new memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries:    make(map[string]entry),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
}

// GetMetadata returns the live entry for url.
func (idx *MemoryIndex) GetMetadata(_ context.Context, url string) (domain.Metadata, bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	e, ok := idx.entries[url]
	if !ok || !idx.now().Before(e.expires) {
		return domain.Metadata{}, false, nil
	}
	return e.meta, true, nil
}

// PutMetadata stores meta for ttl, making room first when the index is full.
func (idx *MemoryIndex) PutMetadata(_ context.Context, url string, meta domain.Metadata, ttl time.Duration) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	now := idx.now()
	if _, exists := idx.entries[url]; !exists && len(idx.entries) >= idx.maxEntries {
		idx.sweepLocked(now)
		if len(idx.entries) >= idx.maxEntries {
			idx.evictOneLocked()
		}
	}

	idx.entries[url] = entry{meta: meta, expires: now.Add(ttl)}
	return nil
}

// InvalidateMetadata drops the entry for url.
func (idx *MemoryIndex) InvalidateMetadata(_ context.Context, url string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.entries, url)
	return nil
}

// FlushMetadata drops every entry and returns how many live ones were removed.
func (idx *MemoryIndex) FlushMetadata(_ context.Context) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sweepLocked(idx.now())
	removed := len(idx.entries)
	clear(idx.entries)
	return removed, nil
}

// Count returns the number of entries, expired ones included.
func (idx *MemoryIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.entries)
}

func (idx *MemoryIndex) sweepLocked(now time.Time) int {
	removed := 0
	for url, e := range idx.entries {
		if !now.Before(e.expires) {
			delete(idx.entries, url)
			removed++
		}
	}
	return removed
}

// evictOneLocked drops the entry closest to expiry.
func (idx *MemoryIndex) evictOneLocked() {
	var (
		victim string
		soon   time.Time
	)
	for url, e := range idx.entries {
		if victim == "" || e.expires.Before(soon) {
			victim, soon = url, e.expires
		}
	}
	delete(idx.entries, victim)
}
