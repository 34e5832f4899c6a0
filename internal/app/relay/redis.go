/*
Package relay carries room messages between service instances over Redis
pub/sub, so that participants of one room may be connected to different
instances.
*/
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"planpoker/internal/pkg/logx"
)

const (
	// Channel is the Redis pub/sub channel shared by all instances.
	Channel = "planpoker:relay"

	publishTimeout = 2 * time.Second
	outboxSize     = 1024
)

// Envelope is one relayed message.
type Envelope struct {
	Origin     string          `json:"origin"`
	Recipients []string        `json:"recipients"`
	Message    json.RawMessage `json:"message"`
}

// DeliverFunc hands a relayed message to the local fan-out.
type DeliverFunc func(recipients []string, msg []byte)

// RedisRelay publishes messages for recipients unknown to this instance and
// delivers messages published by the other instances.
type RedisRelay struct {
	rdb      *redis.Client
	instance string
	outbox   chan Envelope
	once     sync.Once
	logger   zerolog.Logger
}

// NewRedisRelay connects to Redis and verifies connectivity.
func NewRedisRelay(ctx context.Context, addr string, db int) (*RedisRelay, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return newRelay(rdb), nil
}

func newRelay(rdb *redis.Client) *RedisRelay {
	instance := uuid.NewString()
	return &RedisRelay{
		rdb:      rdb,
		instance: instance,
		outbox:   make(chan Envelope, outboxSize),
		logger:   logx.Component("Relay").With().Str("instance", instance).Logger(),
	}
}

// Instance returns the ID this relay stamps on its own messages.
func (r *RedisRelay) Instance() string { return r.instance }

// Publish queues msg for recipients without blocking. Messages are dropped
// when the outbox is full.
func (r *RedisRelay) Publish(recipients []string, msg []byte) {
	env := Envelope{
		Origin:     r.instance,
		Recipients: append([]string(nil), recipients...),
		Message:    append(json.RawMessage(nil), msg...),
	}

	select {
	case r.outbox <- env:
	default:
		r.logger.Warn().Int("recipients", len(recipients)).Msg("Relay outbox full, dropping message.")
	}
}

// Start subscribes to the relay channel and runs the publish and receive
// loops until ctx ends. It returns once the subscription is confirmed.
func (r *RedisRelay) Start(ctx context.Context, deliver DeliverFunc) error {
	pubsub := r.rdb.Subscribe(ctx, Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	go r.publishLoop(ctx)
	go r.receiveLoop(ctx, pubsub, deliver)

	r.logger.Info().Str("channel", Channel).Msg("Relay started.")
	return nil
}

func (r *RedisRelay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-r.outbox:
			raw, err := json.Marshal(env)
			if err != nil {
				r.logger.Error().Err(err).Msg("Failed to encode relay envelope.")
				continue
			}

			pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
			err = r.rdb.Publish(pubCtx, Channel, raw).Err()
			cancel()
			if err != nil {
				r.logger.Warn().Err(err).Msg("Failed to publish relay message.")
			}
		}
	}
}

func (r *RedisRelay) receiveLoop(ctx context.Context, pubsub *redis.PubSub, deliver DeliverFunc) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logger.Warn().Err(err).Msg("Ignoring malformed relay message.")
				continue
			}
			if env.Origin == r.instance || len(env.Recipients) == 0 {
				continue
			}
			deliver(env.Recipients, env.Message)
		}
	}
}

// Close shuts down the redis connection.
func (r *RedisRelay) Close() error {
	var err error
	r.once.Do(func() { err = r.rdb.Close() })
	return err
}
