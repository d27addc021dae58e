package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/models"
	"studytrack-backend/internal/stats"
)

type CourseHandler struct {
	store *datastore.Store
	stats *stats.Aggregator
}

func NewCourseHandler(store *datastore.Store, agg *stats.Aggregator) *CourseHandler {
	return &CourseHandler{store: store, stats: agg}
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse(h.store.Courses(r.Context())))
}

func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CourseInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Course name is required", r))
		return
	}

	id := h.store.CreateCourse(r.Context(), req)
	h.store.Invalidate("courses")

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	synced := h.store.DeleteCourse(r.Context(), id)
	for _, kind := range datastore.Kinds() {
		h.store.Invalidate(kind)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Course deleted",
		"synced":  synced,
	})
}

func (h *CourseHandler) Stats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, http.StatusOK, h.stats.CourseStats(r.Context(), id))
}
