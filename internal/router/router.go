package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"studytrack-backend/internal/connectivity"
	"studytrack-backend/internal/handlers"
	"studytrack-backend/internal/middleware"
	"studytrack-backend/internal/websocket"
)

func New(
	courseHandler *handlers.CourseHandler,
	lectureHandler *handlers.ItemHandler,
	labHandler *handlers.ItemHandler,
	sessionHandler *handlers.SessionHandler,
	dashboardHandler *handlers.DashboardHandler,
	monitor *connectivity.Monitor,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Sync rate limiter (10 req/min per IP): replay is idempotent but not free
	syncLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"online": monitor.Online(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Course Routes ────
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", courseHandler.List)
			r.Post("/", courseHandler.Create)
			r.Delete("/{id}", courseHandler.Delete)
			r.Get("/{id}/stats", courseHandler.Stats)

			r.Route("/{id}/lectures", func(r chi.Router) {
				r.Get("/", lectureHandler.List)
				r.Post("/", lectureHandler.Create)
			})
			r.Route("/{id}/labs", func(r chi.Router) {
				r.Get("/", labHandler.List)
				r.Post("/", labHandler.Create)
			})
		})

		// ──── Lecture / Lab Item Routes ────
		r.Route("/lectures", func(r chi.Router) {
			r.Put("/{id}/study", lectureHandler.Study)
			r.Post("/{id}/revise", lectureHandler.Revise)
		})
		r.Route("/labs", func(r chi.Router) {
			r.Put("/{id}/study", labHandler.Study)
			r.Post("/{id}/revise", labHandler.Revise)
		})

		// ──── Study Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)
			r.Put("/{id}/status", sessionHandler.UpdateStatus)
			r.Put("/{id}/complete", sessionHandler.Complete)
			r.Delete("/{id}", sessionHandler.Delete)
			r.Get("/{id}/revisions", sessionHandler.ListRevisions)
			r.Post("/{id}/revisions", sessionHandler.AddRevision)
		})

		// ──── Dashboard Routes ────
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/activity", dashboardHandler.Activity)
		})

		// ──── Sync & Cache Routes ────
		r.Route("/sync", func(r chi.Router) {
			r.Get("/", dashboardHandler.SyncStatus)
			r.Group(func(r chi.Router) {
				r.Use(syncLimiter.Middleware)
				r.Post("/", dashboardHandler.TriggerSync)
			})
		})
		r.Post("/cache/invalidate", dashboardHandler.InvalidateCache)

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
