// Package content models tenant-scoped lesson content: lessons, their
// ordered blocks, and block variants. A variant is either the default
// (tenant-agnostic) payload for a block or a tenant-scoped override.
package content

import (
	"encoding/json"
	"time"
)

// Tenant is the isolation boundary. Every user and lesson belongs to exactly
// one tenant.
type Tenant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// User belongs to one tenant for its whole lifetime (no re-parenting).
type User struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Lesson belongs to one tenant and owns an ordered sequence of blocks via
// LessonBlock.
type Lesson struct {
	ID        int64     `json:"id"`
	TenantID  int64     `json:"tenant_id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// Block is a typed unit of content, identified independent of any lesson.
// The same block may appear in multiple lessons.
type Block struct {
	ID        int64     `json:"id"`
	BlockType string    `json:"block_type"`
	CreatedAt time.Time `json:"created_at"`
}

// LessonBlock binds a block into a lesson at an integer position. Position is
// unique within a lesson and defines display order.
type LessonBlock struct {
	LessonID int64 `json:"lesson_id"`
	BlockID  int64 `json:"block_id"`
	Position int   `json:"position"`
}

// OrderedBlock is the read model for a lesson's block list: the join row with
// the block's type pulled in, ordered by position.
type OrderedBlock struct {
	BlockID   int64  `json:"block_id"`
	BlockType string `json:"block_type"`
	Position  int    `json:"position"`
}

// BlockVariant is a content payload for a block. TenantID nil means the
// default variant, applying to every tenant without an override.
type BlockVariant struct {
	ID       int64           `json:"id"`
	BlockID  int64           `json:"block_id"`
	TenantID *int64          `json:"tenant_id"`
	Data     json.RawMessage `json:"data"`
}

// IsDefault reports whether the variant is the tenant-agnostic default.
func (v BlockVariant) IsDefault() bool {
	return v.TenantID == nil
}

// ResolvedBlock is one entry of a resolved structure: a lesson block merged
// with its winning variant. Variant fields are nil when the block has neither
// a tenant-scoped nor a default variant.
type ResolvedBlock struct {
	BlockID         int64           `json:"block_id"`
	BlockType       string          `json:"block_type"`
	Position        int             `json:"position"`
	VariantID       *int64          `json:"variant_id"`
	VariantTenantID *int64          `json:"variant_tenant_id"`
	VariantData     json.RawMessage `json:"variant_data"`
}

// Structure is a lesson's resolved block list, ordered ascending by position.
// It is tenant-scoped (variant selection depends on the tenant) and
// independent of any user.
type Structure []ResolvedBlock

// Contains reports whether the structure includes the given block.
func (s Structure) Contains(blockID int64) bool {
	for _, b := range s {
		if b.BlockID == blockID {
			return true
		}
	}
	return false
}

// BlockIDs returns the block IDs in position order.
func (s Structure) BlockIDs() []int64 {
	ids := make([]int64, len(s))
	for i, b := range s {
		ids[i] = b.BlockID
	}
	return ids
}

// LessonRef identifies a lesson together with its owning tenant. Used by the
// cache invalidator to scope evictions.
type LessonRef struct {
	LessonID int64 `json:"lesson_id"`
	TenantID int64 `json:"tenant_id"`
}
