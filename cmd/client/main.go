package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddr  string        `envconfig:"ROOMCHAT_ADDR" default:"localhost:4000"`
	DialTimeout time.Duration `envconfig:"ROOMCHAT_DIAL_TIMEOUT" default:"5s"`
	// ROOMCHAT_COLOURS highlights sender names and system notices
	Colours bool `envconfig:"ROOMCHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialer := net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.ServerAddr)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", cfg.ServerAddr, err)
	}
	defer func() { _ = conn.Close() }()
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	go forwardInput(os.Stdin, conn)

	if err := printLines(conn, os.Stdout, cfg.Colours); err != nil && ctx.Err() == nil {
		return exitRuntime, err
	}
	return exitOK, nil
}

// forwardInput copies stdin lines to the server until stdin ends.
func forwardInput(in io.Reader, conn net.Conn) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if _, err := io.WriteString(conn, scanner.Text()+"\n"); err != nil {
			return
		}
	}
	// Closing our side tells the server we are gone.
	_ = conn.Close()
}

func printLines(conn net.Conn, out io.Writer, colours bool) error {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		fmt.Fprintln(out, render(scanner.Text(), colours))
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("read from server: %w", err)
	}
	return nil
}

// render highlights the sender of chat lines and dims system notices.
func render(line string, colours bool) string {
	if !colours {
		return line
	}
	if sender, text, ok := strings.Cut(line, ": "); ok && !strings.ContainsAny(sender, " ") {
		return color.New(color.FgGreen, color.OpBold).Render(sender) + ": " + text
	}
	return color.New(color.FgYellow).Render(line)
}
