package postgres

import (
	"context"
	"fmt"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ContentRepository implements content.Repository for PostgreSQL.
type ContentRepository struct {
	conn *Connection
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(conn *Connection) *ContentRepository {
	return &ContentRepository{conn: conn}
}

// GetUserInTenant returns the user only if it belongs to the tenant. The
// tenant's own existence is proven implicitly by the user belonging to it.
func (r *ContentRepository) GetUserInTenant(ctx context.Context, tenantID, userID int64) (*content.User, error) {
	query := `
		SELECT id, tenant_id, email, created_at
		FROM users
		WHERE id = $1 AND tenant_id = $2
	`

	var u content.User
	err := r.conn.QueryRow(ctx, query, userID, tenantID).Scan(
		&u.ID,
		&u.TenantID,
		&u.Email,
		&u.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrTenantRelationNotFound
		}
		return nil, shared.WrapError("content", "GetUserInTenant", shared.ErrStoreUnavailable, "query failed", err)
	}

	return &u, nil
}

// GetLessonInTenant returns the lesson only if it belongs to the tenant.
func (r *ContentRepository) GetLessonInTenant(ctx context.Context, tenantID, lessonID int64) (*content.Lesson, error) {
	query := `
		SELECT id, tenant_id, slug, title, created_at
		FROM lessons
		WHERE id = $1 AND tenant_id = $2
	`

	var l content.Lesson
	err := r.conn.QueryRow(ctx, query, lessonID, tenantID).Scan(
		&l.ID,
		&l.TenantID,
		&l.Slug,
		&l.Title,
		&l.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLessonNotFound
		}
		return nil, shared.WrapError("content", "GetLessonInTenant", shared.ErrStoreUnavailable, "query failed", err)
	}

	return &l, nil
}

// ListOrderedBlocks returns the lesson's blocks with their type, ordered by
// position. An empty lesson yields an empty slice, not an error.
func (r *ContentRepository) ListOrderedBlocks(ctx context.Context, lessonID int64) ([]content.OrderedBlock, error) {
	query := `
		SELECT lb.block_id, b.block_type, lb.position
		FROM lesson_blocks lb
		JOIN blocks b ON b.id = lb.block_id
		WHERE lb.lesson_id = $1
		ORDER BY lb.position ASC
	`

	rows, err := r.conn.Query(ctx, query, lessonID)
	if err != nil {
		return nil, shared.WrapError("content", "ListOrderedBlocks", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	blocks := make([]content.OrderedBlock, 0)
	for rows.Next() {
		var b content.OrderedBlock
		if err := rows.Scan(&b.BlockID, &b.BlockType, &b.Position); err != nil {
			return nil, fmt.Errorf("failed to scan lesson block: %w", err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("content", "ListOrderedBlocks", shared.ErrStoreUnavailable, "row iteration failed", err)
	}

	return blocks, nil
}

// ListVariants returns every variant whose block is in blockIDs and whose
// tenant is either the given tenant or null (default).
func (r *ContentRepository) ListVariants(ctx context.Context, blockIDs []int64, tenantID int64) ([]content.BlockVariant, error) {
	if len(blockIDs) == 0 {
		return []content.BlockVariant{}, nil
	}

	query := `
		SELECT id, block_id, tenant_id, data
		FROM block_variants
		WHERE block_id = ANY($1)
		  AND (tenant_id = $2 OR tenant_id IS NULL)
	`

	rows, err := r.conn.Query(ctx, query, blockIDs, tenantID)
	if err != nil {
		return nil, shared.WrapError("content", "ListVariants", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	variants := make([]content.BlockVariant, 0, len(blockIDs))
	for rows.Next() {
		var v content.BlockVariant
		if err := rows.Scan(&v.ID, &v.BlockID, &v.TenantID, &v.Data); err != nil {
			return nil, fmt.Errorf("failed to scan block variant: %w", err)
		}
		variants = append(variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("content", "ListVariants", shared.ErrStoreUnavailable, "row iteration failed", err)
	}

	return variants, nil
}

// ListLessonsContainingBlock returns every lesson that includes the block,
// each with its owning tenant. Used to scope variant-change evictions.
func (r *ContentRepository) ListLessonsContainingBlock(ctx context.Context, blockID int64) ([]content.LessonRef, error) {
	query := `
		SELECT lb.lesson_id, l.tenant_id
		FROM lesson_blocks lb
		JOIN lessons l ON l.id = lb.lesson_id
		WHERE lb.block_id = $1
	`

	rows, err := r.conn.Query(ctx, query, blockID)
	if err != nil {
		return nil, shared.WrapError("content", "ListLessonsContainingBlock", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	refs := make([]content.LessonRef, 0)
	for rows.Next() {
		var ref content.LessonRef
		if err := rows.Scan(&ref.LessonID, &ref.TenantID); err != nil {
			return nil, fmt.Errorf("failed to scan lesson ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("content", "ListLessonsContainingBlock", shared.ErrStoreUnavailable, "row iteration failed", err)
	}

	return refs, nil
}
