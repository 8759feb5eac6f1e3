package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"

	"github.com/Tyrowin/roomchat/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay together and blocks until a signal arrives or a
// listener fails. Deferred cleanup always runs before the process exits.
func run() error {
	// A missing .env file is fine outside development.
	_ = godotenv.Load()

	cfg, err := server.LoadConfig()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	log.Info("Starting roomchat server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	srv.StartHub()

	tcpListener, err := net.Listen("tcp", cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.TCPAddr, err)
	}

	var httpServer *http.Server
	var httpListener net.Listener
	if cfg.HTTPAddr != "" {
		httpListener, err = net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			_ = tcpListener.Close()
			return fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
		}
		httpServer = server.CreateServer(cfg.HTTPAddr, srv.SetupRoutes())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ServeTCP(gctx, tcpListener) })
	g.Go(func() error { return srv.RunBridge(gctx) })
	if httpServer != nil {
		g.Go(func() error { return server.StartServer(httpServer, httpListener, log) })
		g.Go(func() error {
			<-gctx.Done()
			return server.ShutdownServer(httpServer, cfg.ShutdownTimeout, log)
		})
	}

	err = g.Wait()
	log.Info("Shutting down gracefully...")

	if serr := srv.Shutdown(cfg.ShutdownTimeout); serr != nil {
		log.Error("Hub shutdown failed", slog.Any("error", serr))
		err = errors.Join(err, serr)
	}
	if err != nil {
		return err
	}

	log.Info("Program stopped cleanly")
	return nil
}
