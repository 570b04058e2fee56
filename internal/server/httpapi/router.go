// Package httpapi exposes the server over JSON HTTP: the auth flow, the
// batch sync endpoints and the websocket push channel.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/avoronova/notekeeper/internal/logging"
	"github.com/avoronova/notekeeper/internal/server/services"
	"github.com/avoronova/notekeeper/internal/server/ws"
)

// Handler bundles the services the endpoints need.
type Handler struct {
	users *services.UserService
	notes *services.NoteService
	hub   *ws.Hub
	log   logging.Logger
}

func NewHandler(users *services.UserService, notes *services.NoteService, hub *ws.Hub, log logging.Logger) *Handler {
	return &Handler{users: users, notes: notes, hub: hub, log: log}
}

// Router builds the chi route tree. Batch and notes endpoints sit behind
// the bearer-token middleware; auth and health do not.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/refresh", h.refresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/notes", h.getAllNotes)
			r.Post("/notes/batch-create", h.batchCreate)
			r.Post("/notes/batch-update", h.batchUpdate)
			r.Post("/notes/batch-delete", h.batchDelete)
			r.Get("/ws", h.serveWS)
		})
	})

	return r
}
