package redis

import (
	"context"
	"errors"
	"time"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
)

// StructureCache implements content.StructureCache on the generic Cache.
type StructureCache struct {
	cache *Cache
}

// NewStructureCache creates a new StructureCache.
func NewStructureCache(cache *Cache) *StructureCache {
	return &StructureCache{cache: cache}
}

// Get returns the cached structure for (tenant, lesson), or
// content.ErrStructureNotCached on a miss.
func (s *StructureCache) Get(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	var structure content.Structure
	err := s.cache.Get(ctx, StructureKey(tenantID, lessonID), &structure)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, content.ErrStructureNotCached
		}
		return nil, err
	}
	return structure, nil
}

// Set replaces the entry wholesale with the given TTL.
func (s *StructureCache) Set(ctx context.Context, tenantID, lessonID int64, structure content.Structure, ttl time.Duration) error {
	return s.cache.Set(ctx, StructureKey(tenantID, lessonID), structure, ttl)
}

// Delete evicts the entry for (tenant, lesson).
func (s *StructureCache) Delete(ctx context.Context, tenantID, lessonID int64) error {
	return s.cache.Delete(ctx, StructureKey(tenantID, lessonID))
}
