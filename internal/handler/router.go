package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pavelanni/mrtutor/internal/i18n"
)

// NewRouter wires the middleware stack and all routes of h. origins lists
// the browser origins allowed to call the API; empty allows any origin but
// then no credentialed requests.
func NewRouter(h *Handler, lang string, origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: len(origins) > 0,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware(lang))
	h.Routes(r)
	return r
}
