package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/Tyrowin/roomchat/internal/transport"
)

// ServeTCP accepts line protocol clients on ln until ctx ends. ln is closed
// when ServeTCP returns.
func (s *Server) ServeTCP(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()
	defer func() { _ = ln.Close() }()

	s.logger.Info("TCP listener accepting connections", slog.String("addr", ln.Addr().String()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept on %s: %w", ln.Addr(), err)
		}

		if err := s.hub.Serve(transport.NewLine(conn, s.cfg.MaxLineLength)); err != nil {
			s.logger.Debug("Connection not served", slog.String("remote", conn.RemoteAddr().String()), slog.Any("error", err))
		}
	}
}
