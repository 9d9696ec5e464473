package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nssukenkyu-prog/SCC-reception-system/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// RedisBus fans events out over Redis pub/sub so every API process sees
// every change, whichever process wrote it.
type RedisBus struct {
	client *redis.Client
	logger *logging.Logger
}

var _ Bus = (*RedisBus)(nil)

// NewRedisBus wraps the shared Redis client.
func NewRedisBus(client *redis.Client, logger *logging.Logger) *RedisBus {
	if client == nil {
		panic("events: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisBus{client: client, logger: logger}
}

func (b *RedisBus) PublishVisitChange(ctx context.Context, change VisitChange) error {
	payload, err := marshal(change)
	if err != nil {
		return fmt.Errorf("events: marshal visit change: %w", err)
	}
	if err := b.client.Publish(ctx, VisitChannel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish visit change: %w", err)
	}
	return nil
}

func (b *RedisBus) PublishStatus(ctx context.Context, update StatusUpdate) error {
	payload, err := marshal(update)
	if err != nil {
		return fmt.Errorf("events: marshal status update: %w", err)
	}
	if err := b.client.Publish(ctx, StatusChannel, payload).Err(); err != nil {
		return fmt.Errorf("events: publish status update: %w", err)
	}
	return nil
}

func (b *RedisBus) SubscribeVisitChanges(ctx context.Context) *Subscription[VisitChange] {
	return subscribe[VisitChange](ctx, b, VisitChannel)
}

func (b *RedisBus) SubscribeStatus(ctx context.Context) *Subscription[StatusUpdate] {
	return subscribe[StatusUpdate](ctx, b, StatusChannel)
}

func subscribe[T any](ctx context.Context, b *RedisBus, channel string) *Subscription[T] {
	pubsub := b.client.Subscribe(ctx, channel)
	data := make(chan T, 16)
	errs := make(chan error, 1)
	done := make(chan struct{})

	go func() {
		defer close(data)
		defer close(errs)
		ch := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					// The pub/sub stream died; report it on the error
					// channel instead of silently ending.
					select {
					case errs <- fmt.Errorf("events: subscription to %s closed", channel):
					default:
					}
					return
				}
				var v T
				if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
					b.logger.Warn("dropping malformed bus payload", "channel", channel, "error", err)
					continue
				}
				select {
				case data <- v:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return &Subscription[T]{
		Data: data,
		Errs: errs,
		close: func() {
			close(done)
			_ = pubsub.Close()
		},
	}
}
