package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/stash/internal/domain"
)

// GetMetadata returns cached metadata for url. A miss is (zero, false, nil).
func (s *Store) GetMetadata(ctx context.Context, url string) (domain.Metadata, bool, error) {
	data, err := s.client.Get(ctx, MetadataKey(url)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Metadata{}, false, nil // Cache miss
		}
		return domain.Metadata{}, false, fmt.Errorf("failed to get cached metadata: %w", err)
	}

	var meta domain.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Metadata{}, false, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return meta, true, nil
}

// PutMetadata caches meta under url for ttl.
func (s *Store) PutMetadata(ctx context.Context, url string, meta domain.Metadata, ttl time.Duration) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := s.client.Set(ctx, MetadataKey(url), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache metadata: %w", err)
	}
	return nil
}

// InvalidateMetadata removes the cached entry for url.
func (s *Store) InvalidateMetadata(ctx context.Context, url string) error {
	if err := s.client.Del(ctx, MetadataKey(url)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate metadata: %w", err)
	}
	return nil
}

// FlushMetadata removes every cached metadata entry.
func (s *Store) FlushMetadata(ctx context.Context) (int, error) {
	removed := 0
	iter := s.client.Scan(ctx, 0, KeyPrefixMetadata+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("failed to delete cache key: %w", err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to flush cache: %w", err)
	}
	return removed, nil
}
