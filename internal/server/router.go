package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sparklink-app/sparklink/internal/token"
)

// NewRouter assembles the HTTP surface: public auth routes, the SSE stream,
// and the token-protected API.
func NewRouter(h *Handlers, tokens *token.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
	)

	// public
	r.Get("/health", h.Health)
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/google", h.GoogleLogin)

	// protected
	r.Group(func(r chi.Router) {
		r.Use(Auth(tokens))

		// the SSE stream must not inherit a request timeout
		r.Get("/events", h.Events)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(30 * time.Second))

			r.Get("/users/me", h.Me)
			r.Put("/users/me/profile", h.UpdateProfile)
			r.Get("/users/discover", h.Discover)

			r.Post("/swipes", h.Swipe)

			r.Get("/matches", h.Matches)
			r.Post("/matches/{matchUserId}/grant-photo-access", h.GrantPhotoAccess)
			r.Get("/matches/{matchUserId}/private-photos", h.PrivatePhotos)

			r.Get("/messages", h.Conversation)
			r.Post("/messages", h.SendMessage)
			r.Post("/typing", h.Typing)
		})
	})

	return r
}
