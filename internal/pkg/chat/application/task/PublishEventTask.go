package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"petchat/internal/infrastructure/logger"
	pubsub "petchat/internal/infrastructure/pubsub/port"
	qport "petchat/internal/infrastructure/queue/port"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/usecase"
)

// PublishEventTaskType is the queue task name for relaying a realtime event to the broker.
const PublishEventTaskType = "messaging:publish_event"

const (
	// RealtimeQueue is the asynq queue realtime relays are enqueued on.
	RealtimeQueue = "realtime"

	publishMaxRetry = 5
	publishTimeout  = 5 * time.Second
)

// PublishEventTaskPayload is the JSON payload transported via the queue.
// Event is kept raw so the broker receives exactly what the use case emitted.
type PublishEventTaskPayload struct {
	Channel string          `json:"channel"`
	Event   json.RawMessage `json:"event"`
}

// RegisterPublishEventTask binds the relay handler to the provided server.
// Redelivery of the same event is expected; subscribers dedupe by message id.
func RegisterPublishEventTask(srv qport.Server, broker pubsub.Broker) {
	srv.Register(PublishEventTaskType, func(ctx context.Context, t qport.Task) error {
		var p PublishEventTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode payload: %v", qport.ErrSkipRetry, err)
		}
		if p.Channel == "" || len(p.Event) == 0 {
			return fmt.Errorf("%w: channel and event are required", qport.ErrSkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		if err := broker.Publish(ctx, p.Channel, p.Event); err != nil {
			return fmt.Errorf("publish %s: %w", p.Channel, err)
		}
		logger.Debug().Str("channel", p.Channel).Msg("realtime event published")
		return nil
	})
}

// QueueEventSink hands events to the background queue, which publishes them with retries.
type QueueEventSink struct {
	Client qport.Client
}

var _ usecase.EventSink = (*QueueEventSink)(nil)

func NewQueueEventSink(client qport.Client) *QueueEventSink {
	return &QueueEventSink{Client: client}
}

func (s *QueueEventSink) Emit(ctx context.Context, e chat.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(PublishEventTaskPayload{Channel: e.Channel(), Event: raw})
	if err != nil {
		return err
	}
	_, err = s.Client.Enqueue(ctx, qport.Task{Type: PublishEventTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    RealtimeQueue,
		MaxRetry: publishMaxRetry,
		TaskID:   e.Key(),
	})
	return err
}

// BrokerEventSink publishes synchronously. Used when no queue is configured.
type BrokerEventSink struct {
	Broker pubsub.Broker
}

var _ usecase.EventSink = (*BrokerEventSink)(nil)

func NewBrokerEventSink(broker pubsub.Broker) *BrokerEventSink {
	return &BrokerEventSink{Broker: broker}
}

func (s *BrokerEventSink) Emit(ctx context.Context, e chat.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.Broker.Publish(ctx, e.Channel(), raw)
}
