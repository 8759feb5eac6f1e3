// Package server wires HTTP handlers into a ServeMux for the roomchat
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes configures the HTTP surface: health check, WebSocket gateway,
// room listing and Prometheus metrics, behind CORS for the allowed origins.
func (s *Server) SetupRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/rooms", s.RoomsHandler)
	mux.Handle("/metrics", s.metrics.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.Origins(),
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(mux)
}
