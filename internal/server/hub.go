// Package server coordinates session registration, the session limit and
// connection cleanup for the roomchat relay via the Hub type.
package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/session"
	"github.com/Tyrowin/roomchat/internal/transport"
)

// FullMessage is sent to a client refused because the server is full.
const FullMessage = "Chat is full. Please try again later."

var (
	// ErrServerFull is returned by Serve when MaxSessions are connected.
	ErrServerFull = errors.New("server full")
	// ErrShuttingDown is returned by Serve once Shutdown has started.
	ErrShuttingDown = errors.New("server shutting down")
)

type registration struct {
	session  *session.Session
	conn     session.Transport
	accepted chan bool
}

// Hub tracks live sessions. Registration goes through the Run loop so the
// session limit is checked and applied in one place.
type Hub struct {
	opts        session.Options
	rateLimit   RateLimitConfig
	maxSessions int
	logger      *slog.Logger

	sessions   map[*session.Session]session.Transport
	register   chan registration
	unregister chan *session.Session
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub that starts sessions with opts. Each session gets its
// own rate limiter built from rateLimit. maxSessions of 0 means unlimited.
func NewHub(opts session.Options, rateLimit RateLimitConfig, maxSessions int) *Hub {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:        opts,
		rateLimit:   rateLimit,
		maxSessions: maxSessions,
		logger:      opts.Logger,
		sessions:    make(map[*session.Session]session.Transport),
		register:    make(chan registration),
		unregister:  make(chan *session.Session),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Serve hands conn to a new session. It returns once the session is
// registered and running, or with ErrServerFull or ErrShuttingDown after
// telling the client and closing conn.
func (h *Hub) Serve(conn session.Transport) error {
	opts := h.opts
	opts.Limiter = newRateLimiter(h.rateLimit)
	reg := registration{
		session:  session.New(conn, opts),
		conn:     conn,
		accepted: make(chan bool, 1),
	}

	select {
	case h.register <- reg:
	case <-h.ctx.Done():
		h.refuse(conn, "Server is shutting down")
		return ErrShuttingDown
	}

	if !<-reg.accepted {
		h.opts.Metrics.ConnectionRejected()
		h.refuse(conn, FullMessage)
		return ErrServerFull
	}
	return nil
}

func (h *Hub) refuse(conn session.Transport, reason string) {
	if err := conn.WriteLine(reason); err != nil && !transport.IsExpectedClose(err) {
		h.logger.Debug("Error writing refusal", slog.String("remote", conn.RemoteAddr()), slog.Any("error", err))
	}
	_ = conn.Close()
	h.logger.Info("Refused connection", slog.String("remote", conn.RemoteAddr()), slog.String("reason", reason))
}

// Run starts the hub's main event loop. It should be called in its own
// goroutine and returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownSessions()
			return

		case reg := <-h.register:
			h.mutex.Lock()
			full := h.maxSessions > 0 && len(h.sessions) >= h.maxSessions
			if !full {
				h.sessions[reg.session] = reg.conn
			}
			sessionCount := len(h.sessions)
			h.mutex.Unlock()

			if full {
				reg.accepted <- false
				continue
			}
			reg.accepted <- true
			h.logger.Info("Client registered",
				slog.String("session_id", reg.session.ID()),
				slog.String("remote", reg.conn.RemoteAddr()),
				slog.Int("total", sessionCount))

			h.wg.Add(1)
			go h.runSession(reg.session)

		case s := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
			}
			sessionCount := len(h.sessions)
			h.mutex.Unlock()
			h.logger.Info("Client unregistered",
				slog.String("session_id", s.ID()),
				slog.Int("total", sessionCount))
		}
	}
}

func (h *Hub) runSession(s *session.Session) {
	defer h.wg.Done()

	if err := s.Run(h.ctx); err != nil {
		h.logger.Warn("Session ended with error", slog.String("session_id", s.ID()), slog.Any("error", err))
	}

	select {
	case h.unregister <- s:
	case <-h.ctx.Done():
	}
}

// Len returns the number of registered sessions.
func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions)
}

// shutdownSessions closes every live connection so sessions blocked on a
// slow client notice the shutdown too.
func (h *Hub) shutdownSessions() {
	h.logger.Info("Shutting down all client connections...")

	h.mutex.Lock()
	conns := make([]session.Transport, 0, len(h.sessions))
	for _, conn := range h.sessions {
		conns = append(conns, conn)
	}
	h.mutex.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil && !transport.IsExpectedClose(err) {
			h.logger.Warn("Error closing client connection",
				slog.String("remote", conn.RemoteAddr()), slog.Any("error", err))
		}
	}

	h.logger.Info("Closed client connections", slog.Int("count", len(conns)))
}

// Shutdown stops accepting sessions, ends the live ones and waits for their
// cleanup to finish or for timeout to pass.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Hub shutdown timeout reached, some sessions may still be running")
		return context.DeadlineExceeded
	}
}
