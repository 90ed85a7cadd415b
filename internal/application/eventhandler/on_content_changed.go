// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
	"github.com/lessonhub/lesson-content-hub/internal/observability/metrics"
	"github.com/lessonhub/lesson-content-hub/pkg/retry"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON CONTENT CHANGED HANDLER
// Evicts exactly the structure cache entries a mutation could have staled:
//
//   - lesson_block_changed(lesson, tenant): one entry, (tenant, lesson).
//   - variant_changed(block, tenant): every lesson containing the block,
//     keyed by that tenant.
//   - variant_changed(block, default): every lesson containing the block,
//     keyed by the lesson's owning tenant — a default variant affects all
//     tenants without an override, and a lesson is tenant-exclusive, so one
//     key per lesson covers it.
//
// Eviction is scoped this tightly so unrelated tenants keep their warm
// entries. A failed eviction is retried, then logged and surfaced; the TTL
// still bounds staleness if it never lands.
// ═══════════════════════════════════════════════════════════════════════════

// Config for the content-changed handler.
type Config struct {
	// EvictionAttempts is how many times a single eviction is tried.
	EvictionAttempts int

	// EvictionRetryDelay is the wait between eviction attempts.
	EvictionRetryDelay time.Duration

	// EvictionTimeout bounds the handling of one event.
	EvictionTimeout time.Duration
}

// DefaultConfig returns the default handler configuration.
func DefaultConfig() Config {
	return Config{
		EvictionAttempts:   2,
		EvictionRetryDelay: 50 * time.Millisecond,
		EvictionTimeout:    5 * time.Second,
	}
}

// OnContentChangedHandler reacts to content mutations by evicting stale
// structure cache entries.
type OnContentChangedHandler struct {
	contentRepo content.Repository
	cache       content.StructureCache
	logger      *slog.Logger
	config      Config
}

// NewOnContentChangedHandler creates a new OnContentChangedHandler.
func NewOnContentChangedHandler(
	contentRepo content.Repository,
	cache content.StructureCache,
	logger *slog.Logger,
	config Config,
) *OnContentChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.EvictionAttempts < 1 {
		config.EvictionAttempts = 1
	}
	if config.EvictionTimeout <= 0 {
		config.EvictionTimeout = 5 * time.Second
	}
	return &OnContentChangedHandler{
		contentRepo: contentRepo,
		cache:       cache,
		logger:      logger,
		config:      config,
	}
}

// Register subscribes the handler to both content mutation event types.
func (h *OnContentChangedHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventLessonBlockChanged, h.handleLessonBlockChanged); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventVariantChanged, h.handleVariantChanged)
}

func (h *OnContentChangedHandler) handleLessonBlockChanged(event shared.Event) error {
	e, ok := event.(shared.LessonBlockChangedEvent)
	if !ok {
		return fmt.Errorf("eventhandler: unexpected event payload for %s", event.EventType())
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.EvictionTimeout)
	defer cancel()

	return h.evict(ctx, e.TenantID, e.LessonID, "lesson_block_changed")
}

func (h *OnContentChangedHandler) handleVariantChanged(event shared.Event) error {
	e, ok := event.(shared.VariantChangedEvent)
	if !ok {
		return fmt.Errorf("eventhandler: unexpected event payload for %s", event.EventType())
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.EvictionTimeout)
	defer cancel()

	refs, err := h.contentRepo.ListLessonsContainingBlock(ctx, e.BlockID)
	if err != nil {
		h.logger.Error("failed to resolve lessons for variant eviction",
			slog.Int64("block_id", e.BlockID),
			slog.Any("error", err),
		)
		return err
	}

	var firstErr error
	for _, ref := range refs {
		tenantID := ref.TenantID
		if !e.IsDefault() {
			// A tenant-scoped variant only affects readers of that tenant.
			tenantID = *e.TenantID
		}
		if err := h.evict(ctx, tenantID, ref.LessonID, "variant_changed"); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// evict removes one (tenant, lesson) entry, retrying transient failures.
func (h *OnContentChangedHandler) evict(ctx context.Context, tenantID, lessonID int64, event string) error {
	err := retry.Do(ctx, h.config.EvictionAttempts, h.config.EvictionRetryDelay, func() error {
		return h.cache.Delete(ctx, tenantID, lessonID)
	})
	if err != nil {
		metrics.ObserveCacheEviction(event, "error")
		h.logger.Error("structure cache eviction failed, entry stays until TTL expiry",
			slog.Int64("tenant_id", tenantID),
			slog.Int64("lesson_id", lessonID),
			slog.String("event", event),
			slog.Any("error", err),
		)
		return err
	}

	metrics.ObserveCacheEviction(event, "ok")
	h.logger.Debug("structure cache entry evicted",
		slog.Int64("tenant_id", tenantID),
		slog.Int64("lesson_id", lessonID),
		slog.String("event", event),
	)
	return nil
}
