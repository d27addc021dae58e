package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/models"
)

type SessionHandler struct {
	store *datastore.Store
}

func NewSessionHandler(store *datastore.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

func (h *SessionHandler) invalidate(extra ...string) {
	for _, kind := range append([]string{"sessions", "courseStats", "dailyActivity"}, extra...) {
		h.store.Invalidate(kind)
	}
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse(h.store.Sessions(r.Context())))
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CourseID string `json:"courseId"`
		models.SessionInput
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.CourseID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "courseId is required", r))
		return
	}

	id := h.store.CreateSession(r.Context(), req.CourseID, req.SessionInput)
	h.invalidate()

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	switch req.Status {
	case models.SessionInProgress, models.SessionCompleted, models.SessionRevised:
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Status must be in_progress, completed, or revised", r))
		return
	}

	synced := h.store.UpdateSessionStatus(r.Context(), id, req.Status)
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": req.Status, "synced": synced})
}

func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.SessionCompletion
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	synced := h.store.UpdateSessionCompletion(r.Context(), id, req)
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Session completion saved", "synced": synced})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	synced := h.store.DeleteSession(r.Context(), id)
	h.invalidate("revisions")

	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Session deleted", "synced": synced})
}

func (h *SessionHandler) AddRevision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.RevisionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.Duration <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Duration must be positive", r))
		return
	}

	revID := h.store.AddRevision(r.Context(), id, req)
	h.invalidate("revisions")

	writeJSON(w, http.StatusCreated, map[string]string{"id": revID})
}

func (h *SessionHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Session id is required", r))
		return
	}
	writeJSON(w, http.StatusOK, listResponse(h.store.Revisions(r.Context(), id)))
}
