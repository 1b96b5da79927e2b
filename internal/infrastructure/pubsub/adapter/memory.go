package adapter

import (
	"context"
	"path"
	"sync"

	"petchat/internal/infrastructure/logger"
	"petchat/internal/infrastructure/pubsub/port"
)

const memoryBuffer = 256

// MemoryBroker is an in-process port.Broker for single-node runs and tests.
// Patterns use path.Match glob syntax, which covers the "prefix:*" form used here.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*memorySubscription]struct{})}
}

var _ port.Broker = (*MemoryBroker)(nil)

func (b *MemoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return port.ErrClosed
	}
	for sub := range b.subs {
		if ok, _ := path.Match(sub.pattern, channel); !ok {
			continue
		}
		msg := port.Message{Channel: channel, Payload: append([]byte(nil), payload...)}
		select {
		case sub.out <- msg:
		default:
			logger.Warn().Str("channel", channel).Msg("pubsub: subscriber buffer full, dropping message")
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, pattern string) (port.Subscription, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, port.ErrClosed
	}
	sub := &memorySubscription{broker: b, pattern: pattern, out: make(chan port.Message, memoryBuffer)}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Subscribers is the number of live subscriptions.
func (b *MemoryBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *MemoryBroker) Ping(context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return port.ErrClosed
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.out)
		delete(b.subs, sub)
	}
	return nil
}

type memorySubscription struct {
	broker  *MemoryBroker
	pattern string
	out     chan port.Message
}

func (s *memorySubscription) Messages() <-chan port.Message {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if _, ok := s.broker.subs[s]; ok {
		delete(s.broker.subs, s)
		close(s.out)
	}
	return nil
}
