package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router wires the API routes. authn wraps the routes that require a bearer
// token.
func (s *Server) Router(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/token", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/devices", s.handleListDevices)
			r.Post("/devices", s.handleCreateDevice)
			r.Get("/devices/{deviceID}", s.handleGetDevice)
			r.Delete("/devices/{deviceID}", s.handleDeleteDevice)
			r.Get("/devices/{deviceID}/stats", s.handleDeviceStats)

			r.Post("/telemetry", s.handleIngest)
			r.Post("/query", s.handleQuery)
		})
	})

	return r
}
