package realtime

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"petchat/internal/infrastructure/logger"
	pubsub "petchat/internal/infrastructure/pubsub/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeWS records writes. Like *websocket.Conn it tolerates WriteControl and Close
// alongside the writer, but flags any overlap between SetWriteDeadline/WriteMessage calls.
type fakeWS struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	got      chan struct{}

	delay   time.Duration
	writers atomic.Int32
	overlap atomic.Bool
}

func newFakeWS() *fakeWS {
	return &fakeWS{got: make(chan struct{}, 64)}
}

func (f *fakeWS) enterWriter() func() {
	if f.writers.Add(1) > 1 {
		f.overlap.Store(true)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.writers.Add(-1) }
}

func (f *fakeWS) SetWriteDeadline(time.Time) error {
	defer f.enterWriter()()
	return nil
}

func (f *fakeWS) WriteControl(int, []byte, time.Time) error { return nil }

func (f *fakeWS) WriteMessage(_ int, data []byte) error {
	defer f.enterWriter()()
	f.mu.Lock()
	f.messages = append(f.messages, append([]byte(nil), data...))
	f.mu.Unlock()
	select {
	case f.got <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeWS) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWS) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeWS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeWS) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.got:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write")
	}
}

func attach(t *testing.T, r *Router, userID string) (*Connection, *fakeWS) {
	t.Helper()
	ws := newFakeWS()
	conn := newConnection(userID, ws)
	r.Attach(conn)
	t.Cleanup(func() { conn.Close(1000, "test done") })
	return conn, ws
}

func TestRouterDeliversOnlyToRoomMembers(t *testing.T) {
	r := NewRouter()
	alice, aliceWS := attach(t, r, "alice")
	bob, bobWS := attach(t, r, "bob")
	_, carolWS := attach(t, r, "carol")

	require.True(t, r.Join("c1", alice))
	require.True(t, r.Join("c1", bob))

	n := r.Broadcast("c1", []byte("hello"), "")
	assert.Equal(t, 2, n)
	aliceWS.wait(t)
	bobWS.wait(t)
	assert.Zero(t, carolWS.count())

	assert.Equal(t, 1, r.Broadcast("c1", []byte("again"), "alice"))
	assert.Zero(t, r.Broadcast("c2", []byte("nobody"), ""))
}

func TestRouterKeepsEverySessionOfAUser(t *testing.T) {
	r := NewRouter()
	tab1, ws1 := attach(t, r, "alice")
	tab2, ws2 := attach(t, r, "alice")
	r.Join("c1", tab1)
	r.Join("c1", tab2)

	assert.Equal(t, 2, r.Sessions())
	assert.Equal(t, 2, r.Broadcast("c1", []byte("x"), ""))
	ws1.wait(t)
	ws2.wait(t)

	r.Detach(tab1)
	assert.Equal(t, 1, r.Members("c1"))
	assert.Equal(t, 1, r.Sessions())
}

func TestRouterLeaveAndDetachedJoin(t *testing.T) {
	r := NewRouter()
	conn, _ := attach(t, r, "alice")
	r.Join("c1", conn)
	r.Leave("c1", conn)
	assert.Zero(t, r.Members("c1"))

	stray := newConnection("mallory", newFakeWS())
	assert.False(t, r.Join("c1", stray))
	assert.Zero(t, r.Members("c1"))
}

func TestConnectionSendAfterClose(t *testing.T) {
	ws := newFakeWS()
	conn := newConnection("alice", ws)
	conn.Start()
	conn.Close(1000, "bye")

	assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnectionClosed)
	<-conn.Done()
	require.Eventually(t, ws.isClosed, time.Second, 5*time.Millisecond)
}

func TestConnectionCloseLeavesWritesToWriteLoop(t *testing.T) {
	ws := newFakeWS()
	ws.delay = 2 * time.Millisecond
	conn := newConnection("alice", ws)
	conn.Start()

	payload := make([]byte, 4<<10)
	for i := 0; i < 50; i++ {
		require.NoError(t, conn.Send(payload))
	}
	ws.wait(t)

	closed := make(chan struct{})
	go func() {
		conn.Close(1001, "server shutdown")
		close(closed)
	}()
	<-closed

	require.Eventually(t, ws.isClosed, 2*time.Second, 5*time.Millisecond)
	assert.False(t, ws.overlap.Load(), "socket written from two goroutines")
	assert.Less(t, ws.count(), 50, "write loop kept draining after close")
}

func TestConnectionClosesSlowConsumer(t *testing.T) {
	conn := newConnection("alice", newFakeWS())
	// No write loop: the buffer fills up.
	var err error
	for i := 0; i <= sendBuffer; i++ {
		err = conn.Send([]byte("x"))
	}
	assert.ErrorIs(t, err, ErrSendBufferFull)
	select {
	case <-conn.Done():
	default:
		t.Fatal("slow connection was not closed")
	}
}

func TestRouterClose(t *testing.T) {
	r := NewRouter()
	conn, _ := attach(t, r, "alice")
	r.Join("c1", conn)
	r.Close()

	assert.Zero(t, r.Sessions())
	assert.Zero(t, r.Members("c1"))
	<-conn.Done()
}

func TestBridgeRelaysBrokerMessagesToRooms(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := pubsub.NewMemoryBroker()
	defer broker.Close()
	r := NewRouter()
	member, ws := attach(t, r, "alice")
	r.Join("c1", member)

	roomOf := func(ch string) (string, bool) {
		if ch == "conv:c1" {
			return "c1", true
		}
		return "", false
	}
	done := make(chan error, 1)
	go func() { done <- NewBridge(broker, r, "conv:*", roomOf).Run(ctx) }()

	// Publish until the bridge's subscription is live.
	require.Eventually(t, func() bool {
		_ = broker.Publish(ctx, "conv:c1", []byte(`{"type":"message.inserted"}`))
		return ws.count() > 0
	}, 2*time.Second, 10*time.Millisecond)

	ws.mu.Lock()
	assert.JSONEq(t, `{"type":"message.inserted"}`, string(ws.messages[0]))
	ws.mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("bridge did not stop")
	}
}
