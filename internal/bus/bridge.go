// Package bus relays room traffic between server instances over Redis
// pub/sub, so members of a room see messages published on other instances.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "room:"

// Deliverer publishes a relayed message into a local room if it exists.
type Deliverer interface {
	Deliver(room, msg string) bool
}

// Envelope is the JSON payload carried on a room channel.
type Envelope struct {
	Origin string `json:"origin"`
	Room   string `json:"room"`
	Text   string `json:"text"`
}

// Bridge publishes local room messages to Redis and delivers messages from
// other instances into local rooms.
type Bridge struct {
	rdb    *redis.Client
	origin string
	rooms  Deliverer
	logger *slog.Logger
}

// NewBridge connects to Redis and verifies connectivity.
func NewBridge(ctx context.Context, addr string, db int, rooms Deliverer, logger *slog.Logger) (*Bridge, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return newBridge(rdb, rooms, logger), nil
}

func newBridge(rdb *redis.Client, rooms Deliverer, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	origin := uuid.NewString()
	return &Bridge{
		rdb:    rdb,
		origin: origin,
		rooms:  rooms,
		logger: logger.With(slog.String("origin", origin)),
	}
}

// Publish sends msg to every other instance for room.
func (b *Bridge) Publish(ctx context.Context, room, msg string) error {
	raw, err := b.encode(room, msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(room), raw).Err()
}

// Run listens on every room channel until ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	defer func() { _ = pubsub.Close() }()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.logger.Info("Redis bridge subscribed", slog.String("pattern", channel("*")))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.handle(msg.Payload)
		}
	}
}

// Close shuts down the Redis connection.
func (b *Bridge) Close() error { return b.rdb.Close() }

func (b *Bridge) encode(room, msg string) ([]byte, error) {
	raw, err := json.Marshal(Envelope{Origin: b.origin, Room: room, Text: msg})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

// handle delivers one payload from Redis. Our own messages are already in
// the local room and are skipped.
func (b *Bridge) handle(payload string) {
	var env Envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		b.logger.Warn("Dropping malformed bus message", slog.Any("error", err))
		return
	}
	if env.Room == "" || env.Origin == b.origin {
		return
	}
	if !b.rooms.Deliver(env.Room, env.Text) {
		b.logger.Debug("No local members for relayed room", slog.String("room", env.Room))
	}
}

func channel(room string) string { return channelPrefix + room }
