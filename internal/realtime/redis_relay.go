package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel carries back-office events between server instances.
const DefaultRelayChannel = "ramsoftware:admin-events"

// RedisRelay is a Relay over a single Redis pub/sub channel shared by every
// room. Each instance tags what it publishes and skips its own echo.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisRelay creates a relay on channel (DefaultRelayChannel when empty).
func NewRedisRelay(client *redis.Client, channel string, logger *zap.Logger) *RedisRelay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel, origin: uuid.NewString(), logger: logger}
}

// Publish sends msg to the other instances.
func (r *RedisRelay) Publish(ctx context.Context, msg RelayMessage) error {
	msg.Origin = r.origin
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, body).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", r.channel, err)
	}
	return nil
}

// Run subscribes to the channel and delivers foreign events until ctx is done.
func (r *RedisRelay) Run(ctx context.Context, deliver func(RelayMessage)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("realtime relay subscribed", zap.String("channel", r.channel), zap.String("origin", r.origin))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeRelay(raw.Payload)
			if err != nil {
				r.logger.Debug("dropping malformed relay message", zap.Error(err))
				continue
			}
			if msg.Origin == r.origin {
				continue
			}
			deliver(msg)
		}
	}
}

func decodeRelay(payload string) (RelayMessage, error) {
	var msg RelayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return msg, err
	}
	if msg.Room == "" || msg.Event == "" {
		return msg, fmt.Errorf("relay message missing room or event")
	}
	return msg, nil
}
