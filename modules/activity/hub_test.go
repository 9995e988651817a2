package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

type fakeConn struct {
	mu       sync.Mutex
	messages []string
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub(&mockLogger{})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		hub.Wait()
	})
	return hub, cancel
}

func TestHub_BroadcastReachesOnlyOwner(t *testing.T) {
	hub, _ := startHub(t)

	alice1, alice2, bob := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(&Client{ID: "a1", Owner: "alice", Conn: alice1})
	hub.Register(&Client{ID: "a2", Owner: "alice", Conn: alice2})
	hub.Register(&Client{ID: "b1", Owner: "bob", Conn: bob})

	hub.Broadcast("alice", map[string]string{"message": "Timer started!"})

	require.Eventually(t, func() bool {
		return len(alice1.received()) == 1 && len(alice2.received()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"message":"Timer started!"}`, alice1.received()[0])
	assert.Empty(t, bob.received())
	assert.Equal(t, 2, hub.OwnerClientCount("alice"))
	assert.Equal(t, 3, hub.ClientCount())
}

func TestHub_Unregister(t *testing.T) {
	hub, _ := startHub(t)

	conn := &fakeConn{}
	client := &Client{ID: "a1", Owner: "alice", Conn: conn}
	hub.Register(client)
	hub.Unregister(client)

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.OwnerClientCount("alice"))

	hub.Broadcast("alice", "ignored")
	hub.Register(&Client{ID: "sync", Owner: "other", Conn: &fakeConn{}})
	assert.Empty(t, conn.received())
}

func TestHub_ShutdownClosesConnections(t *testing.T) {
	hub, cancel := startHub(t)

	conn := &fakeConn{}
	hub.Register(&Client{ID: "a1", Owner: "alice", Conn: conn})

	cancel()
	hub.Wait()

	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, hub.ClientCount())

	// calls after shutdown must not block
	hub.Broadcast("alice", "late")
	hub.Unregister(&Client{ID: "a1", Owner: "alice", Conn: conn})
}

func TestHub_GreetingPrecedesEntriesRecordedDuringIt(t *testing.T) {
	hub, _ := startHub(t)

	conn := &fakeConn{}
	hub.Register(&Client{
		ID:    "a1",
		Owner: "alice",
		Conn:  conn,
		Greeting: func() (any, error) {
			// an entry recorded while the snapshot is being read
			hub.Broadcast("alice", map[string]string{"type": "activity"})
			return map[string]string{"type": "snapshot"}, nil
		},
	})

	require.Eventually(t, func() bool { return len(conn.received()) == 2 }, time.Second, 10*time.Millisecond)
	assert.JSONEq(t, `{"type":"snapshot"}`, conn.received()[0])
	assert.JSONEq(t, `{"type":"activity"}`, conn.received()[1])
}

func TestHub_FailedGreetingClosesConnection(t *testing.T) {
	hub, _ := startHub(t)

	conn := &fakeConn{}
	hub.Register(&Client{
		ID:       "a1",
		Owner:    "alice",
		Conn:     conn,
		Greeting: func() (any, error) { return nil, errors.New("feed unavailable") },
	})

	require.Eventually(t, conn.isClosed, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Empty(t, conn.received())
}
