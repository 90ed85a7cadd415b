package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
)

type fakeContentRepo struct {
	blocks     map[int64][]content.OrderedBlock
	variants   []content.BlockVariant
	blockCalls int
	err        error
}

func (f *fakeContentRepo) GetUserInTenant(ctx context.Context, tenantID, userID int64) (*content.User, error) {
	return nil, errors.New("not used")
}

func (f *fakeContentRepo) GetLessonInTenant(ctx context.Context, tenantID, lessonID int64) (*content.Lesson, error) {
	return nil, errors.New("not used")
}

func (f *fakeContentRepo) ListOrderedBlocks(ctx context.Context, lessonID int64) ([]content.OrderedBlock, error) {
	f.blockCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks[lessonID], nil
}

func (f *fakeContentRepo) ListVariants(ctx context.Context, blockIDs []int64, tenantID int64) ([]content.BlockVariant, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []content.BlockVariant
	for _, v := range f.variants {
		for _, id := range blockIDs {
			if v.BlockID == id && (v.TenantID == nil || *v.TenantID == tenantID) {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) ListLessonsContainingBlock(ctx context.Context, blockID int64) ([]content.LessonRef, error) {
	return nil, errors.New("not used")
}

type fakeStructureCache struct {
	entries map[string]content.Structure
	getErr  error
	setErr  error
}

func newFakeStructureCache() *fakeStructureCache {
	return &fakeStructureCache{entries: make(map[string]content.Structure)}
}

func (f *fakeStructureCache) key(tenantID, lessonID int64) string {
	return fmt.Sprintf("%d/%d", tenantID, lessonID)
}

func (f *fakeStructureCache) Get(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.entries[f.key(tenantID, lessonID)]
	if !ok {
		return nil, content.ErrStructureNotCached
	}
	return s, nil
}

func (f *fakeStructureCache) Set(ctx context.Context, tenantID, lessonID int64, structure content.Structure, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[f.key(tenantID, lessonID)] = structure
	return nil
}

func (f *fakeStructureCache) Delete(ctx context.Context, tenantID, lessonID int64) error {
	delete(f.entries, f.key(tenantID, lessonID))
	return nil
}

func tenantPtr(id int64) *int64 { return &id }

func TestStructureService_CacheMissResolvesAndFills(t *testing.T) {
	repo := &fakeContentRepo{
		blocks: map[int64][]content.OrderedBlock{
			42: {
				{BlockID: 10, BlockType: "text", Position: 1},
				{BlockID: 20, BlockType: "quiz", Position: 2},
			},
		},
		variants: []content.BlockVariant{
			{ID: 1, BlockID: 10, TenantID: nil, Data: json.RawMessage(`{"v":"default"}`)},
			{ID: 2, BlockID: 10, TenantID: tenantPtr(7), Data: json.RawMessage(`{"v":"override"}`)},
		},
	}
	cache := newFakeStructureCache()
	svc := NewStructureService(repo, cache, time.Minute, nil)

	structure, err := svc.Get(context.Background(), 7, 42)

	require.NoError(t, err)
	require.Len(t, structure, 2)
	require.NotNil(t, structure[0].VariantID)
	assert.Equal(t, int64(2), *structure[0].VariantID)
	assert.Equal(t, 1, repo.blockCalls)

	// Second call is served from cache, store untouched.
	again, err := svc.Get(context.Background(), 7, 42)
	require.NoError(t, err)
	assert.Equal(t, structure, again)
	assert.Equal(t, 1, repo.blockCalls)
}

func TestStructureService_TenantsGetSeparateEntries(t *testing.T) {
	repo := &fakeContentRepo{
		blocks: map[int64][]content.OrderedBlock{
			42: {{BlockID: 10, BlockType: "text", Position: 1}},
		},
		variants: []content.BlockVariant{
			{ID: 1, BlockID: 10, TenantID: nil, Data: json.RawMessage(`{"v":"default"}`)},
			{ID: 2, BlockID: 10, TenantID: tenantPtr(7), Data: json.RawMessage(`{"v":"t7"}`)},
		},
	}
	cache := newFakeStructureCache()
	svc := NewStructureService(repo, cache, time.Minute, nil)

	t7, err := svc.Get(context.Background(), 7, 42)
	require.NoError(t, err)
	t8, err := svc.Get(context.Background(), 8, 42)
	require.NoError(t, err)

	require.NotNil(t, t7[0].VariantID)
	assert.Equal(t, int64(2), *t7[0].VariantID)
	require.NotNil(t, t8[0].VariantID)
	assert.Equal(t, int64(1), *t8[0].VariantID)
}

func TestStructureService_EmptyLesson(t *testing.T) {
	repo := &fakeContentRepo{blocks: map[int64][]content.OrderedBlock{}}
	svc := NewStructureService(repo, newFakeStructureCache(), time.Minute, nil)

	structure, err := svc.Get(context.Background(), 7, 42)

	require.NoError(t, err)
	assert.Empty(t, structure)
}

func TestStructureService_CacheErrorDegradesToStore(t *testing.T) {
	repo := &fakeContentRepo{
		blocks: map[int64][]content.OrderedBlock{
			42: {{BlockID: 10, BlockType: "text", Position: 1}},
		},
	}
	cache := newFakeStructureCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	svc := NewStructureService(repo, cache, time.Minute, nil)

	structure, err := svc.Get(context.Background(), 7, 42)

	require.NoError(t, err)
	require.Len(t, structure, 1)
}

func TestStructureService_StoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	repo := &fakeContentRepo{err: storeErr}
	svc := NewStructureService(repo, newFakeStructureCache(), time.Minute, nil)

	_, err := svc.Get(context.Background(), 7, 42)

	assert.ErrorIs(t, err, storeErr)
}

func TestStructureService_NilCacheAlwaysResolves(t *testing.T) {
	repo := &fakeContentRepo{
		blocks: map[int64][]content.OrderedBlock{
			42: {{BlockID: 10, BlockType: "text", Position: 1}},
		},
	}
	svc := NewStructureService(repo, nil, time.Minute, nil)

	_, err := svc.Get(context.Background(), 7, 42)
	require.NoError(t, err)
	_, err = svc.Get(context.Background(), 7, 42)
	require.NoError(t, err)

	assert.Equal(t, 2, repo.blockCalls)
}
