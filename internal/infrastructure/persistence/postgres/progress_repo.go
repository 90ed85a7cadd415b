package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lessonhub/lesson-content-hub/internal/domain/progress"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
	"github.com/lessonhub/lesson-content-hub/internal/observability/metrics"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// maxUpsertAttempts bounds the insert-race retry loop. After one failed
// insert the row exists for every later attempt, so the loop converges on
// the second pass unless the store itself is misbehaving.
const maxUpsertAttempts = 3

// ProgressRepository implements progress.Repository for PostgreSQL.
// It is the sole writer of user_block_progress rows.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Map returns the user's progress for a lesson as blockID -> status.
func (r *ProgressRepository) Map(ctx context.Context, userID, lessonID int64) (progress.Map, error) {
	query := `
		SELECT block_id, status
		FROM user_block_progress
		WHERE user_id = $1 AND lesson_id = $2
	`

	rows, err := r.conn.Query(ctx, query, userID, lessonID)
	if err != nil {
		return nil, shared.WrapError("progress", "Map", shared.ErrStoreUnavailable, "query failed", err)
	}
	defer rows.Close()

	m := make(progress.Map)
	for rows.Next() {
		var blockID int64
		var status progress.Status
		if err := rows.Scan(&blockID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		m[blockID] = status
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("progress", "Map", shared.ErrStoreUnavailable, "row iteration failed", err)
	}

	return m, nil
}

// Upsert applies the monotonic merge for one (user, lesson, block) key.
//
// Update path: the existing row is locked with SELECT ... FOR UPDATE for the
// duration of the read-compare-write, inside one transaction, so two
// concurrent upgrades cannot both act on a stale comparison.
//
// Insert path: the row is inserted outside any row lock to keep lock hold
// time minimal. If two requests race to insert the same key, exactly one
// insert succeeds; the loser sees a unique violation and retries the whole
// upsert, now taking the update path against the winner's row. The loop is
// bounded rather than recursive.
func (r *ProgressRepository) Upsert(ctx context.Context, userID, lessonID, blockID int64, requested progress.Status) (progress.Status, error) {
	if !requested.Valid() {
		return "", shared.ErrInvalidStatus
	}

	for attempt := 1; attempt <= maxUpsertAttempts; attempt++ {
		stored, found, err := r.updateExisting(ctx, userID, lessonID, blockID, requested)
		if err != nil {
			return "", err
		}
		if found {
			return stored, nil
		}

		err = r.insert(ctx, userID, lessonID, blockID, requested)
		if err == nil {
			return requested, nil
		}
		if IsUniqueViolation(err) {
			// Concurrent insert won; retry as an update.
			metrics.ObserveUpsertInsertRace()
			continue
		}
		return "", shared.WrapError("progress", "Upsert", shared.ErrStoreUnavailable, "insert failed", err)
	}

	return "", shared.ErrUpsertNotConverge
}

// updateExisting locks the row and applies the monotonic merge. Returns
// found=false without error when the row does not exist yet.
func (r *ProgressRepository) updateExisting(ctx context.Context, userID, lessonID, blockID int64, requested progress.Status) (progress.Status, bool, error) {
	var stored progress.Status
	var found bool

	err := r.conn.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		query := `
			SELECT status
			FROM user_block_progress
			WHERE user_id = $1 AND lesson_id = $2 AND block_id = $3
			FOR UPDATE
		`

		var existing progress.Status
		err := tx.QueryRow(ctx, query, userID, lessonID, blockID).Scan(&existing)
		if err != nil {
			if IsNoRows(err) {
				return nil
			}
			return shared.WrapError("progress", "Upsert", shared.ErrStoreUnavailable, "row lock failed", err)
		}

		found = true
		stored = progress.Merge(existing, requested)
		if stored == existing {
			// Lower-or-equal rank: no-op, the existing status stands.
			return nil
		}

		update := `
			UPDATE user_block_progress
			SET status = $1, updated_at = $2
			WHERE user_id = $3 AND lesson_id = $4 AND block_id = $5
		`
		if _, err := tx.Exec(ctx, update, string(stored), time.Now().UTC(), userID, lessonID, blockID); err != nil {
			return shared.WrapError("progress", "Upsert", shared.ErrStoreUnavailable, "update failed", err)
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}

	return stored, found, nil
}

// insert creates the row. Unique-violation errors are returned as-is for the
// caller to classify.
func (r *ProgressRepository) insert(ctx context.Context, userID, lessonID, blockID int64, status progress.Status) error {
	query := `
		INSERT INTO user_block_progress (user_id, lesson_id, block_id, status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query, userID, lessonID, blockID, string(status), time.Now().UTC())
	return err
}
