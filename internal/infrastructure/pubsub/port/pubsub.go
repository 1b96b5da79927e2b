package port

import (
	"context"
	"errors"
)

// Message is one payload received on a channel.
type Message struct {
	Channel string
	Payload []byte
}

// Broker fans payloads out to every node subscribed to a matching channel.
// Delivery is fire-and-forget: subscribers that are not connected miss the message.
// Implementations must be safe for concurrent use.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe listens on every channel matching a glob pattern ("messaging:conversation:*").
	// The subscription is live when Subscribe returns.
	Subscribe(ctx context.Context, pattern string) (Subscription, error)

	Ping(ctx context.Context) error
	Close() error
}

// Subscription delivers messages until Close is called or the broker shuts down,
// at which point the Messages channel is closed.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// ErrClosed is returned by operations on a closed broker.
var ErrClosed = errors.New("pubsub: broker closed")
