package handlers

import (
	"net/http"
	"strconv"

	"studytrack-backend/internal/connectivity"
	"studytrack-backend/internal/datastore"
	"studytrack-backend/internal/stats"
)

type DashboardHandler struct {
	store   *datastore.Store
	stats   *stats.Aggregator
	monitor *connectivity.Monitor
}

func NewDashboardHandler(store *datastore.Store, agg *stats.Aggregator, monitor *connectivity.Monitor) *DashboardHandler {
	return &DashboardHandler{store: store, stats: agg, monitor: monitor}
}

func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "days must be between 1 and 90", r))
			return
		}
		days = n
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"activity": h.stats.DailyActivity(r.Context(), days),
	})
}

// SyncStatus reports connectivity and the number of offline writes still
// awaiting replay.
func (h *DashboardHandler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"online":  h.monitor.Online(),
		"pending": h.store.PendingOutbox(),
	})
}

// TriggerSync replays the outbox on demand rather than waiting for the next
// connectivity transition.
func (h *DashboardHandler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !h.monitor.Online() {
		writeJSON(w, http.StatusConflict, errorResp("OFFLINE", "Remote store is not reachable", r))
		return
	}

	replayed := h.store.ReplayOutbox(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"replayed": replayed,
		"pending":  h.store.PendingOutbox(),
	})
}

// InvalidateCache drops one cache kind, or every kind when none is given.
func (h *DashboardHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind == "" {
		for _, k := range datastore.Kinds() {
			h.store.Invalidate(k)
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "All cache kinds invalidated"})
		return
	}

	h.store.Invalidate(kind)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cache invalidated", "kind": kind})
}
