package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: TENANCY AND CONTENT
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Tenancy and lesson content
-- Version: 001

CREATE TABLE IF NOT EXISTS tenants (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    email TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_users_tenant_id ON users(tenant_id);

CREATE TABLE IF NOT EXISTS lessons (
    id BIGSERIAL PRIMARY KEY,
    tenant_id BIGINT NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE (tenant_id, slug)
);

CREATE INDEX IF NOT EXISTS idx_lessons_tenant_id ON lessons(tenant_id);

CREATE TABLE IF NOT EXISTS blocks (
    id BIGSERIAL PRIMARY KEY,
    block_type TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- A block appears in a lesson at exactly one position; position defines
-- display order and is unique within the lesson.
CREATE TABLE IF NOT EXISTS lesson_blocks (
    lesson_id BIGINT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    block_id BIGINT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,

    PRIMARY KEY (lesson_id, block_id),
    UNIQUE (lesson_id, position)
);

CREATE INDEX IF NOT EXISTS idx_lesson_blocks_block_id ON lesson_blocks(block_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: VARIANTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Block variants
-- Version: 002

CREATE TABLE IF NOT EXISTS block_variants (
    id BIGSERIAL PRIMARY KEY,
    block_id BIGINT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
    tenant_id BIGINT REFERENCES tenants(id) ON DELETE CASCADE,
    data JSONB NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

-- The resolver's merge is only deterministic if the store holds at most one
-- default variant per block and at most one variant per (block, tenant).
CREATE UNIQUE INDEX IF NOT EXISTS uq_block_variants_default
    ON block_variants(block_id) WHERE tenant_id IS NULL;
CREATE UNIQUE INDEX IF NOT EXISTS uq_block_variants_tenant
    ON block_variants(block_id, tenant_id) WHERE tenant_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_block_variants_block_id ON block_variants(block_id);
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Per-user block progress
-- Version: 003

CREATE TABLE IF NOT EXISTS user_block_progress (
    user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    lesson_id BIGINT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
    block_id BIGINT NOT NULL REFERENCES blocks(id) ON DELETE CASCADE,
    status TEXT NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, lesson_id, block_id),
    CONSTRAINT valid_status CHECK (status IN ('seen', 'completed'))
);

CREATE INDEX IF NOT EXISTS idx_user_block_progress_user_lesson
    ON user_block_progress(user_id, lesson_id);
`

// migrations in execution order.
var migrations = []struct {
	version int
	name    string
	sql     string
}{
	{1, "tenancy_and_content", migration001Up},
	{2, "block_variants", migration002Up},
	{3, "user_block_progress", migration003Up},
}

// Migrate applies all migrations. Statements are idempotent, so re-running
// on an already-migrated database is safe.
func Migrate(ctx context.Context, conn *Connection) error {
	for _, m := range migrations {
		if _, err := conn.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("postgres: migration %03d (%s) failed: %w", m.version, m.name, err)
		}
	}
	return nil
}
