package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lessonhub/lesson-content-hub/internal/application/command"
	"github.com/lessonhub/lesson-content-hub/internal/application/query"
	"github.com/lessonhub/lesson-content-hub/internal/domain/content"
	"github.com/lessonhub/lesson-content-hub/internal/domain/progress"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

type fakeContentRepo struct {
	users   map[int64]*content.User
	lessons map[int64]*content.Lesson
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
	structures map[int64]content.Structure
}

func (f *fakeProvider) Get(ctx context.Context, tenantID, lessonID int64) (content.Structure, error) {
	return f.structures[lessonID], nil
}

type fakeProgressRepo struct {
	mu   sync.Mutex
	rows map[int64]progress.Status // keyed by block ID; single user in tests
}

func (f *fakeProgressRepo) Map(ctx context.Context, userID, lessonID int64) (progress.Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := progress.Map{}
	for blockID, s := range f.rows {
		out[blockID] = s
	}
	return out, nil
}

func (f *fakeProgressRepo) Upsert(ctx context.Context, userID, lessonID, blockID int64, requested progress.Status) (progress.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.rows[blockID]; ok {
		requested = progress.Merge(existing, requested)
	}
	f.rows[blockID] = requested
	return requested, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

const testAPIKey = "authoring-pipeline-key"

func newTestServer(t *testing.T) (*Server, *capturingPublisher) {
	t.Helper()

	repo := &fakeContentRepo{
		users: map[int64]*content.User{
			100: {ID: 100, TenantID: 7, CreatedAt: time.Now()},
		},
		lessons: map[int64]*content.Lesson{
			42: {ID: 42, TenantID: 7, Slug: "intro-go", Title: "Intro to Go"},
		},
	}
	provider := &fakeProvider{
		structures: map[int64]content.Structure{
			42: {
				{BlockID: 10, BlockType: "text", Position: 1},
				{BlockID: 20, BlockType: "video", Position: 2},
			},
		},
	}
	progressRepo := &fakeProgressRepo{rows: map[int64]progress.Status{}}
	publisher := &capturingPublisher{}

	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.EnableMetrics = false
	cfg.InternalAPIKeyHash = string(hash)

	server := NewServer(cfg, Dependencies{
		ResolveLessonViewHandler:    query.NewResolveLessonViewHandler(repo, provider, progressRepo, nil),
		RecordProgressHandler:       command.NewRecordProgressHandler(repo, provider, progressRepo, publisher, nil),
		NotifyContentChangedHandler: command.NewNotifyContentChangedHandler(publisher, nil),
	})
	return server, publisher
}

func do(t *testing.T, server *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestGetLessonView_OK(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/api/v1/tenants/7/users/100/lessons/42", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var view query.LessonView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, int64(42), view.Lesson.ID)
	assert.Len(t, view.Blocks, 2)
	assert.Equal(t, 2, view.ProgressSummary.TotalBlocks)
}

func TestGetLessonView_CrossTenantIsNotFound(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/api/v1/tenants/8/users/100/lessons/42", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))
}

func TestGetLessonView_BadPathID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/api/v1/tenants/0/users/100/lessons/42", "", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestRecordProgress_OK(t *testing.T) {
	server, publisher := newTestServer(t)

	rec := do(t, server, http.MethodPut,
		"/api/v1/tenants/7/users/100/lessons/42/blocks/10/progress",
		`{"status":"completed"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var result command.RecordProgressResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, progress.StatusCompleted, result.StoredStatus)
	assert.Equal(t, 1, result.ProgressSummary.CompletedBlocks)
	assert.Equal(t, 1, publisher.count())
}

func TestRecordProgress_InvalidStatus(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPut,
		"/api/v1/tenants/7/users/100/lessons/42/blocks/10/progress",
		`{"status":"done"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestRecordProgress_BlockOutsideLesson(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPut,
		"/api/v1/tenants/7/users/100/lessons/42/blocks/999/progress",
		`{"status":"seen"}`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorCode(t, rec))
}

func TestRecordProgress_MalformedBody(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPut,
		"/api/v1/tenants/7/users/100/lessons/42/blocks/10/progress",
		`{"status":`, nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentChanged_RequiresAPIKey(t *testing.T) {
	server, publisher := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/internal/v1/content-changed",
		`{"change":"lesson_blocks","lesson_id":42,"tenant_id":7}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, server, http.MethodPost, "/internal/v1/content-changed",
		`{"change":"lesson_blocks","lesson_id":42,"tenant_id":7}`,
		map[string]string{"X-Internal-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 0, publisher.count())
}

func TestContentChanged_LessonBlocks(t *testing.T) {
	server, publisher := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/internal/v1/content-changed",
		`{"change":"lesson_blocks","lesson_id":42,"tenant_id":7}`,
		map[string]string{"X-Internal-API-Key": testAPIKey})

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, publisher.count())
	assert.Equal(t, shared.EventLessonBlockChanged, publisher.events[0].EventType())
}

func TestContentChanged_DefaultVariant(t *testing.T) {
	server, publisher := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/internal/v1/content-changed",
		`{"change":"variant","block_id":10,"tenant_id":null}`,
		map[string]string{"X-Internal-API-Key": testAPIKey})

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, publisher.count())
	assert.Equal(t, shared.EventVariantChanged, publisher.events[0].EventType())
}

func TestContentChanged_UnknownChange(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/internal/v1/content-changed",
		`{"change":"reindex"}`,
		map[string]string{"X-Internal-API-Key": testAPIKey})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", errorCode(t, rec))
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}
