package query

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/progress"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

type fakeContentRepo struct {
	users   map[int64]*content.User   // keyed by user ID
	lessons map[int64]*content.Lesson // keyed by lesson ID
}

func (f *fakeContentRepo) GetUserInTenant(ctx context.Context, tenantID, userID int64) (*content.User, error) {
	u, ok := f.users[userID]
	if !ok || u.TenantID != tenantID {
		return nil, shared.ErrTenantRelationNotFound
	}
	return u, nil
}

func (f *fakeContentRepo) GetLessonInTenant(ctx context.Context, tenantID, lessonID int64) (*content.Lesson, error) {
	l, ok := f.lessons[lessonID]
	if !ok || l.TenantID != tenantID {
		return nil, shared.ErrLessonNotFound
	}
	return l, nil
}

func (f *fakeContentRepo) ListOrderedBlocks(ctx context.Context, lessonID int64) ([]content.OrderedBlock, error) {
	return nil, nil
}

func (f *fakeContentRepo) ListVariants(ctx context.Context, blockIDs []int64, tenantID int64) ([]content.BlockVariant, error) {
	return nil, nil
}

func (f *fakeContentRepo) ListLessonsContainingBlock(ctx context.Context, blockID int64) ([]content.LessonRef, error) {
	return nil, nil
}

type fakeProvider struct {
	structures map[int64]content.Structure // keyed by lesson ID
}

func (f *fakeProvider) Get(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	return f.structures[lessonID], nil
}

type fakeProgressRepo struct {
	maps map[int64]progress.Map // keyed by user ID
}

func (f *fakeProgressRepo) Map(ctx context.Context, userID, lessonID int64) (progress.Map, error) {
	m, ok := f.maps[userID]
	if !ok {
		return progress.Map{}, nil
	}
	return m, nil
}

func (f *fakeProgressRepo) Upsert(ctx context.Context, userID, lessonID, blockID int64, requested progress.Status) (progress.Status, error) {
	return requested, nil
}

func newFixture() (*fakeContentRepo, *fakeProvider, *fakeProgressRepo) {
	repo := &fakeContentRepo{
		users: map[int64]*content.User{
			100: {ID: 100, TenantID: 7, Email: "learner@acme.test", CreatedAt: time.Now()},
		},
		lessons: map[int64]*content.Lesson{
			42: {ID: 42, TenantID: 7, Slug: "intro-go", Title: "Intro to Go", CreatedAt: time.Now()},
		},
	}
	provider := &fakeProvider{
		structures: map[int64]content.Structure{
			42: {
				{BlockID: 10, BlockType: "text", Position: 1, VariantData: json.RawMessage(`{"body":"hello"}`)},
				{BlockID: 20, BlockType: "video", Position: 2},
				{BlockID: 30, BlockType: "quiz", Position: 3},
			},
		},
	}
	progressRepo := &fakeProgressRepo{maps: map[int64]progress.Map{}}
	return repo, provider, progressRepo
}

func TestResolveLessonView_EndToEnd(t *testing.T) {
	repo, provider, progressRepo := newFixture()
	// Mark the position-1 block seen and the position-3 block completed.
	progressRepo.maps[100] = progress.Map{
		10: progress.StatusSeen,
		30: progress.StatusCompleted,
	}
	handler := NewResolveLessonViewHandler(repo, provider, progressRepo, nil)

	view, err := handler.Handle(context.Background(), 7, 100, 42)

	require.NoError(t, err)
	assert.Equal(t, int64(42), view.Lesson.ID)
	assert.Equal(t, "intro-go", view.Lesson.Slug)
	require.Len(t, view.Blocks, 3)

	require.NotNil(t, view.Blocks[0].UserProgress)
	assert.Equal(t, progress.StatusSeen, *view.Blocks[0].UserProgress)
	assert.Nil(t, view.Blocks[1].UserProgress)
	require.NotNil(t, view.Blocks[2].UserProgress)
	assert.Equal(t, progress.StatusCompleted, *view.Blocks[2].UserProgress)

	summary := view.ProgressSummary
	assert.Equal(t, 3, summary.TotalBlocks)
	assert.Equal(t, 2, summary.SeenBlocks)
	assert.Equal(t, 1, summary.CompletedBlocks)
	require.NotNil(t, summary.LastSeenBlockID)
	assert.Equal(t, int64(30), *summary.LastSeenBlockID)
	assert.False(t, summary.Completed)
}

func TestResolveLessonView_NoProgress(t *testing.T) {
	repo, provider, progressRepo := newFixture()
	handler := NewResolveLessonViewHandler(repo, provider, progressRepo, nil)

	view, err := handler.Handle(context.Background(), 7, 100, 42)

	require.NoError(t, err)
	assert.Equal(t, 0, view.ProgressSummary.SeenBlocks)
	assert.Nil(t, view.ProgressSummary.LastSeenBlockID)
	for _, b := range view.Blocks {
		assert.Nil(t, b.UserProgress)
	}
}

func TestResolveLessonView_UnknownUserIsNotFound(t *testing.T) {
	repo, provider, progressRepo := newFixture()
	handler := NewResolveLessonViewHandler(repo, provider, progressRepo, nil)

	_, err := handler.Handle(context.Background(), 7, 999, 42)

	assert.True(t, shared.IsNotFound(err))
}

func TestResolveLessonView_CrossTenantLooksLikeNotFound(t *testing.T) {
	repo, provider, progressRepo := newFixture()
	handler := NewResolveLessonViewHandler(repo, provider, progressRepo, nil)

	// User 100 exists but belongs to tenant 7, not tenant 8.
	_, err := handler.Handle(context.Background(), 8, 100, 42)
	assert.True(t, shared.IsNotFound(err))

	// Same for a lesson from another tenant.
	repo.users[200] = &content.User{ID: 200, TenantID: 8}
	_, err = handler.Handle(context.Background(), 8, 200, 42)
	assert.True(t, shared.IsNotFound(err))
}

func TestResolveLessonView_EmptyLesson(t *testing.T) {
	repo, provider, progressRepo := newFixture()
	repo.lessons[43] = &content.Lesson{ID: 43, TenantID: 7, Slug: "empty", Title: "Empty"}
	provider.structures[43] = content.Structure{}
	handler := NewResolveLessonViewHandler(repo, provider, progressRepo, nil)

	view, err := handler.Handle(context.Background(), 7, 100, 43)

	require.NoError(t, err)
	assert.Empty(t, view.Blocks)
	assert.Equal(t, 0, view.ProgressSummary.TotalBlocks)
	assert.False(t, view.ProgressSummary.Completed)
}
