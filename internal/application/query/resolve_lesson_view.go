// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/progress"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESOLVE LESSON VIEW QUERY
// Composes the personalized lesson view: resolved structure (served from the
// structure cache when warm) merged with the user's progress map and an
// aggregate summary. Cache hit: one store query (progress). Cache miss: three.
// ══════════════════════════════════════════════════════════════════════════════

// LessonDTO carries the lesson metadata in the view.
type LessonDTO struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// VariantDTO carries the winning variant for a block. All fields are null
// when the block has neither a tenant override nor a default variant.
type VariantDTO struct {
	ID       *int64          `json:"id"`
	TenantID *int64          `json:"tenant_id"`
	Data     json.RawMessage `json:"data"`
}

// BlockDTO is one block of the view, in position order.
type BlockDTO struct {
	ID           int64            `json:"id"`
	Type         string           `json:"type"`
	Position     int              `json:"position"`
	Variant      VariantDTO       `json:"variant"`
	UserProgress *progress.Status `json:"user_progress"`
}

// LessonView is the composed read model returned to the boundary.
type LessonView struct {
	Lesson          LessonDTO        `json:"lesson"`
	Blocks          []BlockDTO       `json:"blocks"`
	ProgressSummary progress.Summary `json:"progress_summary"`
}

// ResolveLessonViewHandler serves the lesson view query.
type ResolveLessonViewHandler struct {
	contentRepo  content.Repository
	structures   content.StructureProvider
	progressRepo progress.Repository
	logger       *slog.Logger
}

// NewResolveLessonViewHandler creates a new ResolveLessonViewHandler.
func NewResolveLessonViewHandler(
	contentRepo content.Repository,
	structures content.StructureProvider,
	progressRepo progress.Repository,
	logger *slog.Logger,
) *ResolveLessonViewHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolveLessonViewHandler{
		contentRepo:  contentRepo,
		structures:   structures,
		progressRepo: progressRepo,
		logger:       logger,
	}
}

// Handle resolves the personalized lesson view for (tenant, user, lesson).
// Relationship validation runs first: a nonexistent or cross-tenant user or
// lesson surfaces as NotFound before any content is touched.
func (h *ResolveLessonViewHandler) Handle(ctx context.Context, tenantID, userID, lessonID int64) (*LessonView, error) {
	if _, err := h.contentRepo.GetUserInTenant(ctx, tenantID, userID); err != nil {
		return nil, err
	}
	lesson, err := h.contentRepo.GetLessonInTenant(ctx, tenantID, lessonID)
	if err != nil {
		return nil, err
	}

	structure, err := h.structures.Get(ctx, tenantID, lessonID)
	if err != nil {
		return nil, err
	}

	progressMap, err := h.progressRepo.Map(ctx, userID, lessonID)
	if err != nil {
		return nil, err
	}

	return assembleView(lesson, structure, progressMap), nil
}

// assembleView merges structure and progress into the response shape.
func assembleView(lesson *content.Lesson, structure content.Structure, progressMap progress.Map) *LessonView {
	blocks := make([]BlockDTO, 0, len(structure))
	for _, row := range structure {
		dto := BlockDTO{
			ID:       row.BlockID,
			Type:     row.BlockType,
			Position: row.Position,
			Variant: VariantDTO{
				ID:       row.VariantID,
				TenantID: row.VariantTenantID,
				Data:     row.VariantData,
			},
		}
		if status, ok := progressMap[row.BlockID]; ok {
			s := status
			dto.UserProgress = &s
		}
		blocks = append(blocks, dto)
	}

	return &LessonView{
		Lesson: LessonDTO{
			ID:    lesson.ID,
			Slug:  lesson.Slug,
			Title: lesson.Title,
		},
		Blocks:          blocks,
		ProgressSummary: progress.Summarize(structure, progressMap),
	}
}
