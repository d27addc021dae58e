package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/models"
)

// ItemHandler serves lectures and labs; the two differ only by collection.
// Routes carry the type in the path ("/lectures", "/labs") and the router
// mounts one handler instance per type.
type ItemHandler struct {
	store *datastore.Store
	typ   string
	kind  string
}

func NewLectureHandler(store *datastore.Store) *ItemHandler {
	return &ItemHandler{store: store, typ: models.ItemLecture, kind: "lectures"}
}

func NewLabHandler(store *datastore.Store) *ItemHandler {
	return &ItemHandler{store: store, typ: models.ItemLab, kind: "labs"}
}

func (h *ItemHandler) invalidate() {
	h.store.Invalidate(h.kind)
	h.store.Invalidate("courseStats")
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, listResponse(h.store.ItemsForCourse(r.Context(), h.typ, courseID)))
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "id")

	var req models.ItemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Name is required", r))
		return
	}

	id := h.store.CreateItem(r.Context(), courseID, h.typ, req)
	h.invalidate()

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *ItemHandler) Study(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ItemStudyData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	synced := h.store.MarkItemStudied(r.Context(), h.typ, id, req)
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": models.ItemStudied, "synced": synced})
}

func (h *ItemHandler) Revise(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req models.ItemRevisionData
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if err := h.store.MarkItemRevised(r.Context(), h.typ, id, req); err != nil {
		handleDataError(w, r, err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": models.ItemRevised})
}
