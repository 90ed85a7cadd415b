// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"log/slog"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/progress"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD PROGRESS COMMAND
// Validates the tenant/user/lesson relationship and the block's membership in
// the (cached) structure, applies the monotonic upsert, then re-reads the
// progress map so the returned summary reflects at least this write.
// ══════════════════════════════════════════════════════════════════════════════

// RecordProgressCommand carries the parameters of a progress write.
type RecordProgressCommand struct {
	TenantID int64
	UserID   int64
	LessonID int64
	BlockID  int64

	// Status is the raw requested status from the boundary.
	Status string
}

// Validate checks parameter shape. Relationship checks happen in Handle.
func (c *RecordProgressCommand) Validate() error {
	if c.TenantID <= 0 || c.UserID <= 0 || c.LessonID <= 0 || c.BlockID <= 0 {
		return shared.NewDomainError("progress", "Validate", shared.ErrInvalidID, "ids must be positive")
	}
	if _, err := progress.ParseStatus(c.Status); err != nil {
		return err
	}
	return nil
}

// RecordProgressResult is returned to the boundary after a write.
type RecordProgressResult struct {
	StoredStatus    progress.Status  `json:"stored_status"`
	ProgressSummary progress.Summary `json:"progress_summary"`
}

// RecordProgressHandler executes progress writes.
type RecordProgressHandler struct {
	contentRepo  content.Repository
	structures   content.StructureProvider
	progressRepo progress.Repository
	events       shared.EventPublisher
	logger       *slog.Logger
}

// NewRecordProgressHandler creates a new RecordProgressHandler.
func NewRecordProgressHandler(
	contentRepo content.Repository,
	structures content.StructureProvider,
	progressRepo progress.Repository,
	events shared.EventPublisher,
	logger *slog.Logger,
) *RecordProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordProgressHandler{
		contentRepo:  contentRepo,
		structures:   structures,
		progressRepo: progressRepo,
		events:       events,
		logger:       logger,
	}
}

// Handle applies the command. The stored status it returns is the resolved
// state after the monotonic merge, which may be higher than the requested
// one (a downgrade request is corrected, not rejected).
func (h *RecordProgressHandler) Handle(ctx context.Context, cmd RecordProgressCommand) (*RecordProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	requested, err := progress.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	if _, err := h.contentRepo.GetUserInTenant(ctx, cmd.TenantID, cmd.UserID); err != nil {
		return nil, err
	}
	if _, err := h.contentRepo.GetLessonInTenant(ctx, cmd.TenantID, cmd.LessonID); err != nil {
		return nil, err
	}

	// Membership check against the cached structure: zero extra store
	// queries when the cache is warm, and the same structure feeds the
	// summary below.
	structure, err := h.structures.Get(ctx, cmd.TenantID, cmd.LessonID)
	if err != nil {
		return nil, err
	}
	if !structure.Contains(cmd.BlockID) {
		return nil, shared.ErrBlockNotInLesson
	}

	stored, err := h.progressRepo.Upsert(ctx, cmd.UserID, cmd.LessonID, cmd.BlockID, requested)
	if err != nil {
		return nil, err
	}

	if h.events != nil {
		event := shared.NewProgressRecordedEvent(cmd.TenantID, cmd.UserID, cmd.LessonID, cmd.BlockID, string(stored))
		if err := h.events.Publish(event); err != nil {
			// Informational event; the write already committed.
			h.logger.Warn("failed to publish progress event",
				slog.Int64("user_id", cmd.UserID),
				slog.Int64("lesson_id", cmd.LessonID),
				slog.Any("error", err),
			)
		}
	}

	progressMap, err := h.progressRepo.Map(ctx, cmd.UserID, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	return &RecordProgressResult{
		StoredStatus:    stored,
		ProgressSummary: progress.Summarize(structure, progressMap),
	}, nil
}
