package usecase

import (
	"context"
	"time"

	"petchat/internal/infrastructure/logger"
	chat "petchat/internal/pkg/chat/application/domain"
)

// EventSink receives realtime events after the store has committed them.
type EventSink interface {
	Emit(ctx context.Context, e chat.Event) error
}

// NopEventSink drops every event.
type NopEventSink struct{}

func (NopEventSink) Emit(context.Context, chat.Event) error { return nil }

// emit never fails the caller: the write is already durable and clients recover
// missed events by refetching.
func emit(ctx context.Context, sink EventSink, e chat.Event) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, e); err != nil {
		logger.Warn().Err(err).
			Str("event", string(e.Type)).
			Str("conversation_id", e.ConversationID).
			Msg("realtime emit failed")
	}
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}
