package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/lessonhub/lesson-content-hub/internal/application/command"
	"github.com/lessonhub/lesson-content-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"uptime": s.Uptime().String(),
	})
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON VIEW HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLessonView handles
// GET /api/v1/tenants/{tenant_id}/users/{user_id}/lessons/{lesson_id}
func (s *Server) handleGetLessonView(w http.ResponseWriter, r *http.Request) {
	tenantID, ok1 := pathValueInt64(r, "tenant_id")
	userID, ok2 := pathValueInt64(r, "user_id")
	lessonID, ok3 := pathValueInt64(r, "lesson_id")
	if !ok1 || !ok2 || !ok3 {
		writeError(w, http.StatusBadRequest, "invalid_request", "path IDs must be positive integers")
		return
	}

	view, err := s.deps.ResolveLessonViewHandler.Handle(r.Context(), tenantID, userID, lessonID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// recordProgressRequest is the PUT progress request body.
type recordProgressRequest struct {
	Status string `json:"status"`
}

// handleRecordProgress handles
// PUT /api/v1/tenants/{tenant_id}/users/{user_id}/lessons/{lesson_id}/blocks/{block_id}/progress
func (s *Server) handleRecordProgress(w http.ResponseWriter, r *http.Request) {
	tenantID, ok1 := pathValueInt64(r, "tenant_id")
	userID, ok2 := pathValueInt64(r, "user_id")
	lessonID, ok3 := pathValueInt64(r, "lesson_id")
	blockID, ok4 := pathValueInt64(r, "block_id")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		writeError(w, http.StatusBadRequest, "invalid_request", "path IDs must be positive integers")
		return
	}

	var req recordProgressRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a status field")
		return
	}

	result, err := s.deps.RecordProgressHandler.Handle(r.Context(), command.RecordProgressCommand{
		TenantID: tenantID,
		UserID:   userID,
		LessonID: lessonID,
		BlockID:  blockID,
		Status:   req.Status,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTENT CHANGED HANDLER (internal)
// ══════════════════════════════════════════════════════════════════════════════

// contentChangedRequest is the authoring pipeline notification body.
// Change is "lesson_blocks" or "variant". TenantID is null for a default
// variant change and required for a lesson_blocks change.
type contentChangedRequest struct {
	Change   string `json:"change"`
	LessonID int64  `json:"lesson_id,omitempty"`
	BlockID  int64  `json:"block_id,omitempty"`
	TenantID *int64 `json:"tenant_id"`
}

// handleContentChanged handles POST /internal/v1/content-changed.
func (s *Server) handleContentChanged(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeInternal(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or missing internal API key")
		return
	}

	var req contentChangedRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	var err error
	switch req.Change {
	case "lesson_blocks":
		if req.TenantID == nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "tenant_id is required for a lesson_blocks change")
			return
		}
		err = s.deps.NotifyContentChangedHandler.LessonBlocksChanged(r.Context(), req.LessonID, *req.TenantID)
	case "variant":
		err = s.deps.NotifyContentChangedHandler.VariantChanged(r.Context(), req.BlockID, req.TenantID)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "change must be 'lesson_blocks' or 'variant'")
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// authorizeInternal compares the presented API key against the configured
// bcrypt hash. No hash configured means the endpoint is disabled.
func (s *Server) authorizeInternal(r *http.Request) bool {
	if s.config.InternalAPIKeyHash == "" {
		return false
	}
	key := r.Header.Get("X-Internal-API-Key")
	if key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.config.InternalAPIKeyHash), []byte(key)) == nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR TRANSLATION
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors onto HTTP status codes. NotFound covers
// cross-tenant access as well, so the response gives a prober nothing to
// distinguish.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", domainMessage(err))
	case errors.Is(err, shared.ErrConflictRetryExhausted), shared.IsStoreUnavailable(err):
		s.logger.Error("request failed on backing store",
			slog.String("path", r.URL.Path),
			slog.String("request_id", getRequestID(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", "temporarily unable to process the request")
	default:
		s.logger.Error("unhandled error",
			slog.String("path", r.URL.Path),
			slog.String("request_id", getRequestID(r.Context())),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// domainMessage extracts the human-readable message of a DomainError without
// leaking the wrapped cause.
func domainMessage(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return "invalid request"
}

// decodeBody parses a bounded JSON request body.
func decodeBody(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst)
}
