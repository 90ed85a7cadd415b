package command

import (
	"context"
	"log/slog"

	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFY CONTENT CHANGED COMMAND
// The authoring pipeline mutates lesson membership and variant content
// directly in the store; it then reports the mutation here, and the handler
// publishes the corresponding domain event for the cache invalidator. This
// is an explicit domain-event interface, not an implicit store hook.
// ══════════════════════════════════════════════════════════════════════════════

// NotifyContentChangedHandler turns content-change notifications into
// domain events.
type NotifyContentChangedHandler struct {
	events shared.EventPublisher
	logger *slog.Logger
}

// NewNotifyContentChangedHandler creates a new NotifyContentChangedHandler.
func NewNotifyContentChangedHandler(events shared.EventPublisher, logger *slog.Logger) *NotifyContentChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotifyContentChangedHandler{
		events: events,
		logger: logger,
	}
}

// LessonBlocksChanged reports that a block was added, removed, or reordered
// within the lesson. The error reflects invalidation failures so the caller
// can surface them; staleness remains bounded by the cache TTL either way.
func (h *NotifyContentChangedHandler) LessonBlocksChanged(ctx context.Context, lessonID, tenantID int64) error {
	if lessonID <= 0 || tenantID <= 0 {
		return shared.NewDomainError("content", "NotifyChange", shared.ErrInvalidID, "ids must be positive")
	}

	h.logger.Info("lesson block membership changed",
		slog.Int64("lesson_id", lessonID),
		slog.Int64("tenant_id", tenantID),
	)
	return h.events.Publish(shared.NewLessonBlockChangedEvent(lessonID, tenantID))
}

// VariantChanged reports that a variant's content changed. tenantID is nil
// for the default variant.
func (h *NotifyContentChangedHandler) VariantChanged(ctx context.Context, blockID int64, tenantID *int64) error {
	if blockID <= 0 || (tenantID != nil && *tenantID <= 0) {
		return shared.NewDomainError("content", "NotifyChange", shared.ErrInvalidID, "ids must be positive")
	}

	h.logger.Info("block variant changed",
		slog.Int64("block_id", blockID),
		slog.Any("tenant_id", tenantID),
	)
	return h.events.Publish(shared.NewVariantChangedEvent(blockID, tenantID))
}
