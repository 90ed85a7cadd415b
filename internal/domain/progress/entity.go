// Package progress models per-user per-lesson block completion. Status is
// monotonic: once a block is completed it never reverts to seen.
package progress

import (
	"time"

	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// Status is a user's progress on one block within one lesson.
type Status string

const (
	// StatusSeen means the user has opened the block.
	StatusSeen Status = "seen"

	// StatusCompleted means the user has finished the block. Terminal: a
	// normal upsert never leaves this state.
	StatusCompleted Status = "completed"
)

// statusRank orders statuses for the monotonic merge. Unknown statuses rank
// below every valid one, so they can never downgrade a stored value.
var statusRank = map[Status]int{
	StatusSeen:      1,
	StatusCompleted: 2,
}

// Rank returns the status's position in the order seen < completed.
// Invalid statuses rank zero.
func (s Status) Rank() int {
	return statusRank[s]
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	return s.Rank() > 0
}

// ParseStatus validates a raw status value from the boundary.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", shared.ErrInvalidStatus
	}
	return s, nil
}

// Merge applies the monotonic rule: the higher-ranked status wins, and equal
// ranks keep the existing value (idempotent no-op).
func Merge(existing, requested Status) Status {
	if requested.Rank() > existing.Rank() {
		return requested
	}
	return existing
}

// Record is one stored progress row for a (user, lesson, block) key.
type Record struct {
	UserID    int64     `json:"user_id"`
	LessonID  int64     `json:"lesson_id"`
	BlockID   int64     `json:"block_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Map is one user's progress within one lesson, keyed by block ID.
type Map map[int64]Status
