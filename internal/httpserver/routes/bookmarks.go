package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
)

func init() { Register("bookmarks", registerBookmarks, loggedIn) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Get("/api/bookmarks", handlers.ListBookmarks(d))
	r.Post("/api/bookmarks", handlers.SaveBookmark(d))
	r.Get("/api/bookmarks/{id}", handlers.GetBookmark(d))
	r.Put("/api/bookmarks/{id}", handlers.UpdateBookmark(d))
	r.Delete("/api/bookmarks/{id}", handlers.DeleteBookmark(d))
	r.Get("/api/tags", handlers.Tags(d))
}
