package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/Tyrowin/roomchat/internal/chat"
)

// CommandFunc runs a slash command. arg is the first token after the
// command word, empty when there is none.
type CommandFunc func(s *Session, ctx context.Context, arg string) error

type command struct {
	run CommandFunc
	// usage is set for commands that need an argument.
	usage string
}

var commands = map[string]command{
	"/help":  {run: (*Session).help},
	"/name":  {run: (*Session).rename, usage: "/name <new-name>"},
	"/join":  {run: (*Session).join, usage: "/join <room>"},
	"/rooms": {run: (*Session).rooms},
	"/quit":  {run: (*Session).quit},
}

var validate = validator.New()

// handleLine reacts to one line from the client. It returns errQuit when the
// client asked to leave and any other error when the reply could not be
// written.
func (s *Session) handleLine(ctx context.Context, line string) error {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if strings.HasPrefix(line, "/") {
		return s.dispatch(ctx, line)
	}
	return s.say(ctx, line)
}

func (s *Session) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	word := fields[0]

	cmd, ok := commands[word]
	if !ok {
		s.opts.Metrics.Command("unknown")
		return s.send(fmt.Sprintf("Unknown command %s, type /help", word))
	}
	s.opts.Metrics.Command(word)

	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	var err error
	if cmd.usage != "" && arg == "" {
		err = &UsageError{Usage: cmd.usage}
	} else {
		err = cmd.run(s, ctx, arg)
	}

	var usage *UsageError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &usage):
		return s.send("Usage: " + usage.Usage)
	case errors.Is(err, chat.ErrNameTaken):
		s.opts.Metrics.NameConflict()
		return s.send(arg + " is already taken")
	default:
		return err
	}
}

func (s *Session) say(ctx context.Context, text string) error {
	if s.opts.Limiter != nil && !s.opts.Limiter.Allow() {
		s.opts.Metrics.RateLimited()
		s.logger.Debug("Rate limit exceeded; discarding message")
		return s.send("Slow down")
	}
	if s.opts.Filter != nil {
		text = s.opts.Filter.Censor(text)
	}
	s.publish(ctx, fmt.Sprintf("%s: %s", s.name, text))
	s.opts.Metrics.MessagePublished()
	return nil
}

func (s *Session) help(context.Context, string) error {
	return s.send(s.opts.Help)
}

func (s *Session) rename(ctx context.Context, next string) error {
	if err := s.checkLength(next); err != nil {
		return &UsageError{Usage: fmt.Sprintf("/name <new-name> (at most %d characters)", s.opts.MaxNameLength)}
	}
	if !s.opts.Names.TryClaim(next) {
		return fmt.Errorf("rename to %q: %w", next, chat.ErrNameTaken)
	}

	prev := s.name
	s.publish(ctx, fmt.Sprintf("%s is now %s", prev, next))
	s.opts.Names.Release(prev)
	s.name = next
	s.logger.Info("Client renamed", slog.String("from", prev), slog.String("to", next))
	return nil
}

func (s *Session) join(ctx context.Context, room string) error {
	if room == s.room.Name() {
		return s.send("You are in " + room)
	}
	if err := s.checkLength(room); err != nil {
		return &UsageError{Usage: fmt.Sprintf("/join <room> (at most %d characters)", s.opts.MaxNameLength)}
	}

	prev := s.room.Name()
	s.publish(ctx, fmt.Sprintf("%s left %s", s.name, prev))
	s.room = s.opts.Rooms.Change(s.room, room)
	s.publish(ctx, fmt.Sprintf("%s joined %s", s.name, room))
	s.logger.Info("Client changed room", slog.String("from", prev), slog.String("to", room))
	return nil
}

func (s *Session) rooms(context.Context, string) error {
	return s.send(FormatRooms(s.opts.Rooms.List()))
}

func (s *Session) quit(context.Context, string) error {
	return errQuit
}

func (s *Session) checkLength(value string) error {
	if s.opts.MaxNameLength <= 0 {
		return nil
	}
	return validate.Var(value, fmt.Sprintf("max=%d", s.opts.MaxNameLength))
}

// FormatRooms renders a room listing as "Rooms - a (2), b (1)".
func FormatRooms(list []chat.RoomInfo) string {
	entries := lo.Map(list, func(info chat.RoomInfo, _ int) string {
		return fmt.Sprintf("%s (%d)", info.Name, info.Members)
	})
	return "Rooms - " + strings.Join(entries, ", ")
}
