package progress

import "context"

// Repository is the sole writer of progress rows.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Map returns the user's progress for a lesson as blockID -> status.
	// A user with no progress yields an empty map.
	Map(ctx context.Context, userID, lessonID int64) (Map, error)

	// Upsert applies the monotonic merge for one (user, lesson, block) key
	// and returns the stored status after the merge. A request for a
	// lower-or-equal-rank status is a no-op returning the existing status;
	// the call is infallible in that case, it corrects rather than errors.
	//
	// Implementations must serialize concurrent upgrades on the same key
	// (exclusive row lock inside one transaction) and must resolve insert
	// races by retrying as an update, with a bounded number of attempts.
	Upsert(ctx context.Context, userID, lessonID, blockID int64, requested Status) (Status, error)
}
