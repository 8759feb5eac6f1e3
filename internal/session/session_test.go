package session

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/transport"
)

const (
	testHelp    = "help text"
	waitTimeout = 2 * time.Second
)

type testEnv struct {
	names *chat.Names
	rooms *chat.Rooms
	opts  Options
}

// sequence hands out "A", "B", "C" and so on, one per call.
func sequence() chat.NameGenerator {
	var n atomic.Int32
	return chat.GeneratorFunc(func() string {
		return string(rune('A' + n.Add(1) - 1))
	})
}

func newEnv(capacity int) *testEnv {
	names := chat.NewNames(sequence())
	rooms := chat.NewRooms(capacity)
	return &testEnv{
		names: names,
		rooms: rooms,
		opts: Options{
			Names:         names,
			Rooms:         rooms,
			Help:          testHelp,
			MaxNameLength: 16,
		},
	}
}

type testClient struct {
	conn  net.Conn
	lines chan string
	done  chan error
}

// connect starts a session over a pipe and reads everything it writes in the
// background, so the session never blocks on the client.
func (e *testEnv) connect(t *testing.T, ctx context.Context) *testClient {
	t.Helper()
	server, peer := net.Pipe()
	c := &testClient{
		conn:  peer,
		lines: make(chan string, 1024),
		done:  make(chan error, 1),
	}

	s := New(transport.NewLine(server, 0), e.opts)
	go func() { c.done <- s.Run(ctx) }()
	go func() {
		defer close(c.lines)
		scanner := bufio.NewScanner(peer)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
	}()
	t.Cleanup(func() { _ = peer.Close() })
	return c
}

func (c *testClient) send(t *testing.T, line string) {
	t.Helper()
	require.NoError(t, c.conn.SetWriteDeadline(time.Now().Add(waitTimeout)))
	_, err := io.WriteString(c.conn, line+"\n")
	require.NoError(t, err)
}

// waitFor skips lines until want arrives. Interleaving with other traffic is
// not deterministic, so tests only ever wait for lines, never assert order.
func (c *testClient) waitFor(t *testing.T, want string) {
	t.Helper()
	c.waitForFunc(t, want, func(line string) bool { return line == want })
}

func (c *testClient) waitForFunc(t *testing.T, desc string, match func(string) bool) string {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				t.Fatalf("connection closed while waiting for %q", desc)
			}
			if match(line) {
				return line
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", desc)
		}
	}
}

func (c *testClient) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.done:
		return err
	case <-time.After(waitTimeout):
		t.Fatal("session did not end")
		return nil
	}
}

func TestSession_Welcome(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)

	// Given a fresh server
	// When a client connects
	a := env.connect(t, context.Background())

	// Then it gets the help, its name and its own arrival notice
	a.waitFor(t, testHelp)
	a.waitFor(t, "You are A")
	a.waitFor(t, "A joined main")
	req.True(env.names.Contains("A"))
	req.Equal([]chat.RoomInfo{{Name: "main", Members: 1}}, env.rooms.List())
}

func TestSession_Two_Clients_Scenario(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)

	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")
	b := env.connect(t, context.Background())
	b.waitFor(t, "B joined main")
	a.waitFor(t, "B joined main")

	// When A says hi, both see it, A through its own subscription
	a.send(t, "hi")
	a.waitFor(t, "A: hi")
	b.waitFor(t, "A: hi")

	// When A moves to lobby
	a.send(t, "/join lobby")
	a.waitFor(t, "A joined lobby")
	b.waitFor(t, "A left main")

	// Then both rooms have one member
	a.send(t, "/rooms")
	a.waitFor(t, "Rooms - lobby (1), main (1)")

	// When A tries to take B's name
	a.send(t, "/name B")
	a.waitFor(t, "B is already taken")

	// Then A keeps its name
	a.send(t, "still A")
	a.waitFor(t, "A: still A")
	req.True(env.names.Contains("A"))
	req.True(env.names.Contains("B"))
}

func TestSession_Rename(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	a.send(t, "/name Zed")
	a.waitFor(t, "A is now Zed")

	req.False(env.names.Contains("A"))
	req.True(env.names.Contains("Zed"))

	a.send(t, "hello")
	a.waitFor(t, "Zed: hello")
}

func TestSession_Rename_Too_Long(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	a.send(t, "/name "+strings.Repeat("x", 17))
	a.waitFor(t, "Usage: /name <new-name> (at most 16 characters)")
	req.True(env.names.Contains("A"))
	req.Equal(1, env.names.Len())
}

func TestSession_Command_Replies(t *testing.T) {
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	tests := []struct {
		line  string
		reply string
	}{
		{line: "/name", reply: "Usage: /name <new-name>"},
		{line: "/join   ", reply: "Usage: /join <room>"},
		{line: "/join main", reply: "You are in main"},
		{line: "/dance", reply: "Unknown command /dance, type /help"},
		{line: "/HELP", reply: "Unknown command /HELP, type /help"},
		{line: "/help", reply: testHelp},
		{line: "/rooms", reply: "Rooms - main (1)"},
	}

	for _, tt := range tests {
		a.send(t, tt.line)
		a.waitFor(t, tt.reply)
	}
}

func TestSession_Blank_Lines_Are_Ignored(t *testing.T) {
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	a.send(t, "   ")
	a.send(t, "")
	a.send(t, "after")

	line := a.waitForFunc(t, "first chat line", func(line string) bool {
		return strings.HasPrefix(line, "A:")
	})
	require.Equal(t, "A: after", line)
}

func TestSession_Quit_Releases_Everything(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")
	b := env.connect(t, context.Background())
	b.waitFor(t, "B joined main")

	a.send(t, "/quit")
	req.NoError(a.wait(t))

	b.waitFor(t, "A left main")
	req.False(env.names.Contains("A"))
	req.Equal([]chat.RoomInfo{{Name: "main", Members: 1}}, env.rooms.List())
}

func TestSession_Last_Member_Removes_Room(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	a.send(t, "/join lobby")
	a.waitFor(t, "A joined lobby")
	req.Equal([]chat.RoomInfo{{Name: "lobby", Members: 1}}, env.rooms.List())

	a.send(t, "/quit")
	req.NoError(a.wait(t))
	req.Zero(env.rooms.Len())
	req.Zero(env.names.Len())
}

func TestSession_Peer_Hangup_Runs_Cleanup(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")
	b := env.connect(t, context.Background())
	b.waitFor(t, "B joined main")

	_ = a.conn.Close()
	req.NoError(a.wait(t))

	b.waitFor(t, "A left main")
	req.False(env.names.Contains("A"))
}

func TestSession_Invalid_UTF8_Ends_Session(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	a := env.connect(t, context.Background())
	a.waitFor(t, "A joined main")

	req.NoError(a.conn.SetWriteDeadline(time.Now().Add(waitTimeout)))
	_, err := a.conn.Write([]byte{0xff, 0xfe, '\n'})
	req.NoError(err)

	err = a.wait(t)
	req.ErrorIs(err, transport.ErrInvalidUTF8)
	req.Zero(env.names.Len())
	req.Zero(env.rooms.Len())
}

func TestSession_Context_Cancel_Ends_Session(t *testing.T) {
	req := require.New(t)
	env := newEnv(0)
	ctx, cancel := context.WithCancel(context.Background())
	a := env.connect(t, ctx)
	a.waitFor(t, "A joined main")

	cancel()
	req.NoError(a.wait(t))
	req.Zero(env.names.Len())
}

func TestSession_Lag_Is_Reported_And_Session_Continues(t *testing.T) {
	req := require.New(t)
	env := newEnv(2)

	server, peer := net.Pipe()
	t.Cleanup(func() { _ = peer.Close() })
	s := New(transport.NewLine(server, 0), env.opts)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	scanner := bufio.NewScanner(peer)
	next := func() string {
		t.Helper()
		req.NoError(peer.SetReadDeadline(time.Now().Add(waitTimeout)))
		req.True(scanner.Scan(), "read failed: %v", scanner.Err())
		return scanner.Text()
	}

	req.Equal(testHelp, next())
	req.Equal("You are A", next())
	req.Equal("A joined main", next())

	// Given a client that stops reading
	// When far more than the room capacity is published
	for i := range 10 {
		req.True(env.rooms.Deliver("main", "m"+string(rune('0'+i))))
	}

	// Then the client is told it missed messages and still gets the newest one
	sawLag := false
	for {
		line := next()
		if strings.HasPrefix(line, "(missed ") {
			sawLag = true
		}
		if line == "m9" {
			break
		}
	}
	req.True(sawLag)
	req.Equal(Active, s.State())

	_ = peer.Close()
	req.NoError(<-done)
	req.Equal(Gone, s.State())
}

func TestState_String(t *testing.T) {
	req := require.New(t)
	req.Equal("connecting", Connecting.String())
	req.Equal("active", Active.String())
	req.Equal("disconnecting", Disconnecting.String())
	req.Equal("gone", Gone.String())
	req.Equal("unknown", State(42).String())
}
