// Package session drives one client connection: it assigns the client a
// name, places it in a room, relays lines between the client and the room,
// and releases everything the client held when the connection ends.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/metrics"
	"github.com/Tyrowin/roomchat/internal/transport"
)

const relayTimeout = 2 * time.Second

// Transport is a bidirectional line stream. ReadLine is only called from one
// goroutine; WriteLine and Close may be called from others.
type Transport interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	Close() error
	RemoteAddr() string
}

// Filter rewrites chat text before it is published.
type Filter interface {
	Censor(text string) string
}

// Relay forwards room traffic to other server instances.
type Relay interface {
	Publish(ctx context.Context, room, msg string) error
}

// Limiter throttles chat messages.
type Limiter interface {
	Allow() bool
}

// Options carries the collaborators shared by all sessions. Names and Rooms
// are required; the rest may be left zero.
type Options struct {
	Names         *chat.Names
	Rooms         *chat.Rooms
	Help          string
	MaxNameLength int
	Filter        Filter
	Relay         Relay
	Limiter       Limiter
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Session is one connected client.
type Session struct {
	id     string
	conn   Transport
	opts   Options
	logger *slog.Logger
	state  atomic.Int32

	// Owned by the Run goroutine.
	name string
	room *chat.Handle

	cleanupOnce sync.Once
}

type inbound struct {
	line string
	err  error
}

// New prepares a session over conn. Nothing is claimed until Run.
func New(conn Transport, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	id := uuid.NewString()
	return &Session{
		id:   id,
		conn: conn,
		opts: opts,
		logger: opts.Logger.With(
			slog.String("session_id", id),
			slog.String("remote", conn.RemoteAddr()),
		),
	}
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state. Safe from any goroutine.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(state State) { s.state.Store(int32(state)) }

// Run serves the client until it quits, the connection fails, or ctx ends.
// The claimed name and room membership are always released before Run
// returns. A nil error means the session ended normally.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	var reader sync.WaitGroup
	defer reader.Wait()
	defer s.cleanup()
	defer cancel()

	s.connect(ctx)
	if err := s.welcome(); err != nil {
		return s.endOnError("welcome", err)
	}
	s.setState(Active)

	lines := make(chan inbound)
	reader.Add(1)
	go func() {
		defer reader.Done()
		s.readLoop(ctx, lines)
	}()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Session cancelled")
			return nil

		case in := <-lines:
			if in.err != nil {
				return s.endOnError("read", in.err)
			}
			if err := s.handleLine(ctx, in.line); err != nil {
				if errors.Is(err, errQuit) {
					s.logger.Debug("Client quit")
					return nil
				}
				return s.endOnError("write", err)
			}

		case <-s.room.Ready():
			if err := s.deliver(); err != nil {
				return s.endOnError("deliver", err)
			}
		}
	}
}

func (s *Session) connect(ctx context.Context) {
	s.opts.Metrics.SessionOpened()
	s.name = s.opts.Names.ClaimUnique()
	s.room = s.opts.Rooms.Join(chat.DefaultRoom)
	s.logger = s.logger.With(slog.String("name", s.name))
	s.logger.Info("Client connected", slog.String("room", s.room.Name()))
	s.publish(ctx, fmt.Sprintf("%s joined %s", s.name, s.room.Name()))
}

func (s *Session) welcome() error {
	if s.opts.Help != "" {
		if err := s.send(s.opts.Help); err != nil {
			return err
		}
	}
	return s.send("You are " + s.name)
}

// readLoop feeds lines to the session loop until the transport fails or ctx
// ends. The final error is delivered like any other line.
func (s *Session) readLoop(ctx context.Context, lines chan<- inbound) {
	for {
		line, err := s.conn.ReadLine()
		select {
		case lines <- inbound{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// deliver handles one outcome from the room subscription.
func (s *Session) deliver() error {
	msg, err := s.room.TryRecv()
	if err == nil {
		return s.send(msg)
	}
	if errors.Is(err, chat.ErrEmpty) {
		return nil
	}
	if lagged, ok := chat.IsLagged(err); ok {
		s.opts.Metrics.MessagesMissed(lagged.Missed)
		s.logger.Warn("Client lagged behind room",
			slog.String("room", s.room.Name()),
			slog.Uint64("missed", lagged.Missed))
		return s.send(fmt.Sprintf("(missed %d messages)", lagged.Missed))
	}
	return fmt.Errorf("room %s: %w", s.room.Name(), err)
}

// publish sends msg to the current room and, when configured, to the relay.
func (s *Session) publish(ctx context.Context, msg string) {
	s.room.Publish(msg)
	if s.opts.Relay == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), relayTimeout)
	defer cancel()
	if err := s.opts.Relay.Publish(ctx, s.room.Name(), msg); err != nil {
		s.logger.Warn("Relay publish failed", slog.String("room", s.room.Name()), slog.Any("error", err))
	}
}

func (s *Session) send(line string) error {
	if err := s.conn.WriteLine(line); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	return nil
}

// endOnError classifies the error that ended the session. Ordinary hang-ups
// are not errors.
func (s *Session) endOnError(stage string, err error) error {
	switch {
	case transport.IsExpectedClose(err):
		s.logger.Info("Client disconnected", slog.String("stage", stage))
		return nil
	case transport.IsProtocolError(err):
		s.logger.Warn("Client sent malformed input", slog.Any("error", err))
	default:
		s.logger.Error("Session failed", slog.String("stage", stage), slog.Any("error", err))
	}
	return fmt.Errorf("session %s %s: %w", s.id, stage, err)
}

// cleanup announces the departure and releases the room membership, the
// name and the connection. It runs once whatever ended the session.
func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.setState(Disconnecting)

		if s.room != nil {
			s.publish(context.Background(), fmt.Sprintf("%s left %s", s.name, s.room.Name()))
			s.opts.Rooms.Leave(s.room)
		}
		if s.name != "" {
			s.opts.Names.Release(s.name)
		}
		if err := s.conn.Close(); err != nil && !transport.IsExpectedClose(err) {
			s.logger.Warn("Error closing connection", slog.Any("error", err))
		}

		s.opts.Metrics.SessionClosed()
		s.setState(Gone)
	})
}
