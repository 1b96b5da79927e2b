package adapter

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"petchat/internal/infrastructure/pubsub/port"
)

// RedisBroker is an adapter that satisfies port.Broker using Redis PUBLISH/PSUBSCRIBE.
// It wraps a go-redis v9 Client.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to redisURL and verifies the connection with a ping.
func NewRedisBroker(ctx context.Context, redisURL string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisBroker{client: c}, nil
}

// Ensure interface compliance at compile time
var _ port.Broker = (*RedisBroker)(nil)

func (r *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	return r.client.Publish(ctx, channel, payload).Err()
}

func (r *RedisBroker) Subscribe(ctx context.Context, pattern string) (port.Subscription, error) {
	ps := r.client.PSubscribe(ctx, pattern)
	// Wait for the subscription confirmation so no publish after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis: psubscribe %s: %w", pattern, err)
	}

	sub := newRedisSubscription(ps, 256)
	go sub.pump(ps.Channel())
	return sub, nil
}

func (r *RedisBroker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBroker) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	ps   io.Closer
	out  chan port.Message
	done chan struct{}
	once sync.Once
}

func newRedisSubscription(ps io.Closer, buffer int) *redisSubscription {
	return &redisSubscription{ps: ps, out: make(chan port.Message, buffer), done: make(chan struct{})}
}

// pump forwards until the source closes or Close is called, even when nobody reads out.
func (s *redisSubscription) pump(in <-chan *redis.Message) {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-in:
			if !ok {
				return
			}
			select {
			case s.out <- port.Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}:
			case <-s.done:
				return
			}
		}
	}
}

func (s *redisSubscription) Messages() <-chan port.Message {
	return s.out
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
