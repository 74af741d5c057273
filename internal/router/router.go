package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"sitechat-backend/internal/handlers"
	"sitechat-backend/internal/middleware"
	"sitechat-backend/internal/websocket"
)

func New(
	sessionAuth *middleware.SessionAuth,
	sessionHandler *handlers.SessionHandler,
	metaHandler *handlers.MetaHandler,
	wsHub *websocket.Hub,
	createLimiter *middleware.RateLimiter,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	if createLimiter == nil {
		createLimiter = middleware.NewRateLimiter(30, time.Minute)
	}

	r.Get("/health", metaHandler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/mode", metaHandler.Mode)

		// ──── Session creation (public) ────
		r.With(createLimiter.Middleware).Post("/sessions", sessionHandler.Create)

		// ──── Current session ────
		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth.Middleware)
			r.Get("/", sessionHandler.Get)
			r.Delete("/", sessionHandler.Delete)
			r.Post("/url", sessionHandler.SubmitURL)
			r.Post("/messages", sessionHandler.Ask)
			r.Post("/reset", sessionHandler.Reset)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
