package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Note list.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/reload", h.Reload)
	r.Post("/notes/select", h.SelectNote)

	// Selected note.
	r.Route("/notes/selected", func(r chi.Router) {
		r.Get("/", h.GetSelected)
		r.Put("/", h.SaveSelected)
		r.Delete("/", h.DeleteSelected)
		r.Post("/rename", h.RenameSelected)
		r.Get("/blocks", h.ListBlocks)
		r.Post("/reorder", h.ReorderBlocks)
	})

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
