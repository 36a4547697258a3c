package handler

import (
	"net/http"
	"restaurant-auth/internal/ports"
	"restaurant-auth/internal/security"

	"github.com/go-chi/chi/v5"
)

func SetupAuthRoutes(r chi.Router, h *AuthenticationHandler, verifier ports.TokenVerifier) {
	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/refresh", h.RefreshToken)
		})
		r.Group(func(r chi.Router) {
			r.Use(security.AuthMiddleware(verifier))
			r.Post("/logout", h.Logout)
			r.Post("/revoke", h.Revoke)
			r.Get("/sessions", h.ListSessions)
			r.Get("/me", h.GetCurrentUser)
			r.Head("/me", h.GetCurrentUser)
		})
	})
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
