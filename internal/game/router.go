package game

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Otar989/bugman-bot/internal/middleware"
)

// NewRouter assembles the HTTP surface. The debug verification endpoint is
// routed only when debug is explicitly enabled.
func NewRouter(h *Handler, log *slog.Logger, allowedOrigins []string, debug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Post("/score", h.SubmitScore)
	r.Options("/score", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/leaderboard", h.Leaderboard)

	if debug {
		r.Post("/debug/verify", h.DebugVerify)
	}

	return r
}
