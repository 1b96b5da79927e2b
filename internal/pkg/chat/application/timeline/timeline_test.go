package timeline

import (
	"testing"
	"time"

	chat "petchat/internal/pkg/chat/application/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id, sender string, offset time.Duration) chat.Message {
	return chat.Message{
		ID:             id,
		ConversationID: "c1",
		SenderID:       sender,
		Content:        id,
		Status:         chat.MessageStatusSent,
		CreatedAt:      t0.Add(offset),
	}
}

func ids(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func newTimeline() *Timeline {
	return New("adopter", chat.ConversationSummary{Conversation: chat.Conversation{ID: "c1"}})
}

func TestDuplicateRealtimeEchoIsAppliedOnce(t *testing.T) {
	tl := newTimeline()
	tl.Load([]chat.Message{msg("m1", "adopter", 0)})

	reply := msg("m2", "staff", time.Minute)
	assert.True(t, tl.Merge(reply))
	assert.False(t, tl.Merge(reply))

	assert.Equal(t, []string{"m1", "m2"}, ids(tl.Messages()))
	s := tl.Summary()
	assert.Equal(t, 1, s.UnreadCount)
	assert.Equal(t, "m2", s.LastMessage.ID)
	assert.Equal(t, reply.CreatedAt, *s.LastMessageAt)
}

func TestMergeKeepsChronologicalOrder(t *testing.T) {
	tl := newTimeline()
	tl.Merge(msg("late", "staff", 2*time.Minute))
	tl.Merge(msg("early", "staff", time.Minute))
	tl.Merge(msg("tie", "staff", 2*time.Minute))

	assert.Equal(t, []string{"early", "late", "tie"}, ids(tl.Messages()))
	assert.Equal(t, "tie", tl.Summary().LastMessage.ID)
}

func TestOwnMessagesNeverCountAsUnread(t *testing.T) {
	tl := newTimeline()
	tl.Merge(msg("mine", "adopter", 0))
	assert.Zero(t, tl.Summary().UnreadCount)
}

func TestOptimisticSendConfirmed(t *testing.T) {
	tl := newTimeline()
	tl.now = func() time.Time { return t0 }

	temp := tl.AddOptimistic("hello")
	assert.True(t, tl.Pending(temp))
	assert.Equal(t, []string{temp}, ids(tl.Messages()))

	stored := msg("m1", "adopter", time.Second)
	tl.Confirm(temp, stored)

	assert.False(t, tl.Pending(temp))
	assert.Equal(t, []string{"m1"}, ids(tl.Messages()))
	assert.Equal(t, "m1", tl.Summary().LastMessage.ID)

	// The realtime echo of our own send arrives afterwards.
	assert.False(t, tl.Merge(stored))
	assert.Len(t, tl.Messages(), 1)
}

func TestOptimisticSendEchoBeforeConfirm(t *testing.T) {
	tl := newTimeline()
	temp := tl.AddOptimistic("hello")
	stored := msg("m1", "adopter", time.Second)

	require.True(t, tl.ApplyEvent(chat.NewMessageInsertedEvent(stored)))
	tl.Confirm(temp, stored)

	assert.Equal(t, []string{"m1"}, ids(tl.Messages()))
}

func TestRollbackRemovesOptimisticEntry(t *testing.T) {
	tl := newTimeline()
	temp := tl.AddOptimistic("will fail")
	tl.Rollback(temp)
	assert.Empty(t, tl.Messages())
	assert.False(t, tl.Pending(temp))
}

func TestApplyReadFromEvent(t *testing.T) {
	tl := newTimeline()
	tl.Merge(msg("mine", "adopter", 0))
	tl.Merge(msg("theirs1", "staff", time.Second))
	tl.Merge(msg("theirs2", "staff", 2*time.Second))
	require.Equal(t, 2, tl.Summary().UnreadCount)

	// The shelter read our message: our badge is untouched.
	assert.True(t, tl.ApplyEvent(chat.NewMessagesReadEvent("c1", "staff", 1, t0.Add(time.Hour))))
	assert.Equal(t, 2, tl.Summary().UnreadCount)

	// We read theirs.
	assert.Equal(t, 2, tl.ApplyRead("adopter", t0.Add(time.Hour)))
	assert.Zero(t, tl.Summary().UnreadCount)
	assert.Zero(t, tl.ApplyRead("adopter", t0.Add(2*time.Hour)))

	for _, m := range tl.Messages() {
		assert.Equal(t, chat.MessageStatusRead, m.Status, m.ID)
	}
}
