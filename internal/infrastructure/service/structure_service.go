// Package service composes domain interfaces into higher-level components.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/observability/metrics"
)

// StructureService is the read-through structure provider: cache first, then
// resolve from the store and fill the cache with a fixed TTL. The cache is an
// injected dependency with an explicit lifecycle, shared by reference.
//
// The store stays authoritative: any cache failure other than a miss is
// logged and degraded to a store read, never surfaced to the caller.
type StructureService struct {
	repo   content.Repository
	cache  content.StructureCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewStructureService creates a new StructureService. A nil cache disables
// caching entirely (every Get resolves from the store).
func NewStructureService(repo content.Repository, cache content.StructureCache, ttl time.Duration, logger *slog.Logger) *StructureService {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StructureService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the resolved structure for (tenant, lesson). On a cache hit
// within TTL the store is not touched at all.
func (s *StructureService) Get(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	if s.cache != nil {
		structure, err := s.cache.Get(ctx, tenantID, lessonID)
		if err == nil {
			metrics.ObserveCacheLookup("hit")
			return structure, nil
		}
		if errors.Is(err, content.ErrStructureNotCached) {
			metrics.ObserveCacheLookup("miss")
		} else {
			metrics.ObserveCacheLookup("error")
			s.logger.Warn("structure cache read failed, falling back to store",
				slog.Int64("tenant_id", tenantID),
				slog.Int64("lesson_id", lessonID),
				slog.Any("error", err),
			)
		}
	}

	structure, err := s.resolve(ctx, tenantID, lessonID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, lessonID, structure, s.ttl); err != nil {
			// Serving the resolved structure matters more than caching it.
			s.logger.Warn("structure cache write failed",
				slog.Int64("tenant_id", tenantID),
				slog.Int64("lesson_id", lessonID),
				slog.Any("error", err),
			)
		}
	}

	return structure, nil
}

// resolve fetches ordered blocks and candidate variants from the store and
// merges them. Two queries on a cache miss, none for an empty lesson's
// variant fetch.
func (s *StructureService) resolve(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	start := time.Now()

	blocks, err := s.repo.ListOrderedBlocks(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return content.Structure{}, nil
	}

	blockIDs := make([]int64, len(blocks))
	for i, b := range blocks {
		blockIDs[i] = b.BlockID
	}

	variants, err := s.repo.ListVariants(ctx, blockIDs, tenantID)
	if err != nil {
		return nil, err
	}

	structure := content.ResolveStructure(blocks, variants)
	metrics.ObserveStructureResolve(time.Since(start))
	return structure, nil
}
