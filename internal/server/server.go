// Package server assembles the shared registries, the hub, the optional
// censor and Redis bridge into one Server.
package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/roomchat/internal/bus"
	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/Tyrowin/roomchat/internal/moderation"
	"github.com/Tyrowin/roomchat/internal/session"
)

//go:embed help.txt
var defaultHelp string

// Server owns everything shared by the sessions of one process.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	names    *chat.Names
	rooms    *chat.Rooms
	metrics  *metrics.Metrics
	hub      *Hub
	bridge   *bus.Bridge
	origins  *originPolicy
	upgrader websocket.Upgrader
}

// New builds a Server from cfg. When cfg.RedisAddr is set it connects to
// Redis and fails if Redis is unreachable.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = sanitizeConfig(cfg)

	help, err := loadHelp(cfg.HelpFile)
	if err != nil {
		return nil, err
	}

	censor, err := moderation.NewCensor(cfg.CensorList(), cfg.CensorRune())
	if err != nil {
		return nil, fmt.Errorf("build censor: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		names:   chat.NewNames(chat.WordGenerator{}),
		rooms:   chat.NewRooms(cfg.ChannelCapacity),
		origins: newOriginPolicy(cfg.Origins(), logger),
	}
	s.metrics = metrics.New(s.rooms, s.names)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}

	opts := session.Options{
		Names:         s.names,
		Rooms:         s.rooms,
		Help:          help,
		MaxNameLength: cfg.MaxNameLength,
		Filter:        censor,
		Metrics:       s.metrics,
		Logger:        logger,
	}

	if cfg.RedisAddr != "" {
		s.bridge, err = bus.NewBridge(ctx, cfg.RedisAddr, cfg.RedisDB, s.rooms, logger)
		if err != nil {
			return nil, err
		}
		opts.Relay = s.bridge
		logger.Info("Redis bridge enabled", slog.String("addr", cfg.RedisAddr))
	}

	s.hub = NewHub(opts, cfg.RateLimit(), cfg.MaxSessions)
	return s, nil
}

func loadHelp(path string) (string, error) {
	if path == "" {
		return strings.TrimRight(defaultHelp, "\n"), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read help file: %w", err)
	}
	return strings.TrimRight(string(raw), "\n"), nil
}

// Config returns the sanitized configuration.
func (s *Server) Config() Config { return s.cfg }

// Hub returns the session hub.
func (s *Server) Hub() *Hub { return s.hub }

// Rooms returns the room registry.
func (s *Server) Rooms() *chat.Rooms { return s.rooms }

// Names returns the name registry.
func (s *Server) Names() *chat.Names { return s.names }

// StartHub starts the hub loop in its own goroutine. It must be called
// before connections are served.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.logger.Info("Hub started and ready to manage sessions")
}

// RunBridge relays room traffic with other instances until ctx ends. It
// returns immediately when no bridge is configured.
func (s *Server) RunBridge(ctx context.Context) error {
	if s.bridge == nil {
		return nil
	}
	return s.bridge.Run(ctx)
}

// Shutdown ends every session and closes the Redis bridge.
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.hub.Shutdown(timeout)
	if s.bridge != nil {
		if cerr := s.bridge.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close redis bridge: %w", cerr))
		}
	}
	return err
}
