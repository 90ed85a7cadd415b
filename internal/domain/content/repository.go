package content

import (
	"context"
	"errors"
	"time"
)

// ErrStructureNotCached is returned by StructureCache.Get on a cache miss.
var ErrStructureNotCached = errors.New("content: structure not cached")

// Repository defines the content store query surface.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// GetUserInTenant returns the user only if it belongs to the tenant.
	// Returns ErrTenantRelationNotFound otherwise; a nonexistent user and a
	// cross-tenant user are indistinguishable.
	GetUserInTenant(ctx context.Context, tenantID, userID int64) (*User, error)

	// GetLessonInTenant returns the lesson only if it belongs to the tenant.
	// Returns ErrLessonNotFound otherwise.
	GetLessonInTenant(ctx context.Context, tenantID, lessonID int64) (*Lesson, error)

	// ListOrderedBlocks returns the lesson's blocks with their type, ordered
	// ascending by position. An empty lesson yields an empty slice.
	ListOrderedBlocks(ctx context.Context, lessonID int64) ([]OrderedBlock, error)

	// ListVariants returns every variant whose block is in blockIDs and whose
	// tenant is either the given tenant or null (default).
	ListVariants(ctx context.Context, blockIDs []int64, tenantID int64) ([]BlockVariant, error)

	// ListLessonsContainingBlock returns every lesson that includes the block,
	// each with its owning tenant.
	ListLessonsContainingBlock(ctx context.Context, blockID int64) ([]LessonRef, error)
}

// StructureCache is the TTL-bounded cache of resolved structures, keyed by
// (tenant, lesson). Two tenants viewing the same lesson never share an entry.
type StructureCache interface {
	// Get returns the cached structure or ErrStructureNotCached.
	Get(ctx context.Context, tenantID, lessonID int64) (Structure, error)

	// Set replaces the entry wholesale with the given TTL.
	Set(ctx context.Context, tenantID, lessonID int64, structure Structure, ttl time.Duration) error

	// Delete evicts the entry. Deleting an absent entry is not an error.
	Delete(ctx context.Context, tenantID, lessonID int64) error
}

// StructureProvider serves resolved structures, consulting the cache before
// the store. The read path and the progress write path both go through it.
type StructureProvider interface {
	Get(ctx context.Context, tenantID, lessonID int64) (Structure, error)
}
