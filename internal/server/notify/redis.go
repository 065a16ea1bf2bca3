package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// streamAdder is the part of *redis.Client used here.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamNotifier appends events to a Redis stream for a mailer worker
// to consume.
type RedisStreamNotifier struct {
	client streamAdder
	stream string
}

func NewRedisStreamNotifier(client streamAdder, stream string) *RedisStreamNotifier {
	return &RedisStreamNotifier{client: client, stream: stream}
}

func (n *RedisStreamNotifier) SendVerification(ctx context.Context, msg VerificationMessage) error {
	payload, err := encodeEvent(EventEmailVerification, msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: n.stream,
		Values: map[string]any{
			"event": payload,
		},
	}

	if _, err := n.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
