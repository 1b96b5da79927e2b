package realtime

import (
	"context"
	"time"

	"petchat/internal/infrastructure/logger"
	"petchat/internal/infrastructure/pubsub/port"
)

const (
	resubscribeMin = 500 * time.Millisecond
	resubscribeMax = 30 * time.Second
)

// Bridge relays broker messages to the rooms of this node's Router. Payloads are
// forwarded verbatim; roomOf maps a channel name to the room it belongs to.
type Bridge struct {
	broker  port.Broker
	router  *Router
	pattern string
	roomOf  func(channel string) (string, bool)
}

func NewBridge(broker port.Broker, router *Router, pattern string, roomOf func(string) (string, bool)) *Bridge {
	return &Bridge{broker: broker, router: router, pattern: pattern, roomOf: roomOf}
}

// Run subscribes and relays until ctx is canceled, resubscribing with backoff when
// the subscription drops.
func (b *Bridge) Run(ctx context.Context) error {
	log := logger.Component("realtime_bridge")
	wait := resubscribeMin
	for {
		sub, err := b.broker.Subscribe(ctx, b.pattern)
		if err == nil {
			wait = resubscribeMin
			log.Info().Str("pattern", b.pattern).Msg("subscribed")
			b.relay(ctx, sub)
			_ = sub.Close()
		} else {
			log.Warn().Err(err).Dur("retry_in", wait).Msg("subscribe failed")
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
		wait = min(wait*2, resubscribeMax)
	}
}

func (b *Bridge) relay(ctx context.Context, sub port.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			room, ok := b.roomOf(msg.Channel)
			if !ok {
				continue
			}
			b.router.Broadcast(room, msg.Payload, "")
		}
	}
}
