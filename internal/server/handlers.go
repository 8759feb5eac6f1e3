// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks and the room listing.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/Tyrowin/roomchat/internal/transport"
)

// WebSocketHandler upgrades GET requests from allowed origins and hands the
// connection to the hub. Each text frame is one protocol line.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
		return
	}

	if err := s.hub.Serve(transport.NewWebSocket(conn, s.cfg.MaxLineLength)); err != nil {
		s.logger.Debug("WebSocket not served", slog.String("remote", r.RemoteAddr), slog.Any("error", err))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Roomchat server is running!")
}

// RoomsHandler renders the live rooms as a plain text table, largest first.
func (s *Server) RoomsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Room", "Members"})
	for _, info := range s.rooms.List() {
		table.Append([]string{info.Name, strconv.Itoa(info.Members)})
	}
	table.Render()
}
