package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("connection reset")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) eventTypes(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, frame := range f.frames {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(frame, &ev))
		types = append(types, ev.Type)
	}
	return types
}

func countType(types []string, want string) int {
	n := 0
	for _, tp := range types {
		if tp == want {
			n++
		}
	}
	return n
}

func TestUserKeyPresentWhileConnectionsRemain(t *testing.T) {
	hub := NewHub()
	first := NewClient(&fakeConn{})
	second := NewClient(&fakeConn{})

	hub.RegisterUser("42", first)
	hub.RegisterUser("42", second)
	assert.Equal(t, []string{"42"}, hub.Status().ConnectedUsers)

	hub.UnregisterUser("42", first)
	assert.Equal(t, []string{"42"}, hub.Status().ConnectedUsers, "key survives while one connection remains")

	hub.UnregisterUser("42", second)
	assert.Empty(t, hub.Status().ConnectedUsers, "last removal drops the key")
}

func TestUnregisterUnknownConnectionIsNoOp(t *testing.T) {
	hub := NewHub()
	stranger := NewClient(&fakeConn{})

	assert.NotPanics(t, func() {
		hub.UnregisterUser("nope", stranger)
		hub.UnregisterConversation("nope", stranger)
	})

	// Duplicate disconnect signals for a registered connection
	c := NewClient(&fakeConn{})
	hub.RegisterUser("7", c)
	hub.UnregisterUser("7", c)
	assert.NotPanics(t, func() { hub.UnregisterUser("7", c) })
	assert.Empty(t, hub.Status().ConnectedUsers)
}

func TestSendToUserPrunesFailedConnections(t *testing.T) {
	hub := NewHub()
	healthy := &fakeConn{}
	broken := &fakeConn{failWrites: true}
	hub.RegisterUser("9", NewClient(healthy))
	hub.RegisterUser("9", NewClient(broken))

	hub.SendToUser("9", Pong{Type: EventPong})

	assert.Equal(t, 1, countType(healthy.eventTypes(t), EventPong), "healthy sibling still delivered")
	assert.True(t, broken.closed, "failed connection closed")
	assert.Equal(t, []string{"9"}, hub.Status().ConnectedUsers, "key kept for the surviving connection")

	// Second send reaches only the survivor; the pruned conn got nothing
	hub.SendToUser("9", Pong{Type: EventPong})
	assert.Equal(t, 2, countType(healthy.eventTypes(t), EventPong))
	assert.Empty(t, broken.frames)
}

func TestSendToUnknownKeyIsSilentlyDropped(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() {
		hub.SendToUser("ghost", Pong{Type: EventPong})
		hub.SendToConversation("ghost", Pong{Type: EventPong})
	})
}

func TestPresenceEnterAndLeaveExactlyOnce(t *testing.T) {
	hub := NewHub()
	observer := &fakeConn{}
	hub.RegisterUser("observer", NewClient(observer))

	first := NewClient(&fakeConn{})
	second := NewClient(&fakeConn{})

	hub.RegisterUser("55", first)
	assert.Equal(t, 1, countType(observer.eventTypes(t), EventUserStatus), "first connection announces online")
	assert.True(t, hub.IsOnline("55"))

	hub.RegisterUser("55", second)
	assert.Equal(t, 1, countType(observer.eventTypes(t), EventUserStatus), "extra connection does not re-announce")

	hub.UnregisterUser("55", first)
	assert.Equal(t, 1, countType(observer.eventTypes(t), EventUserStatus), "partial disconnect stays online")
	assert.True(t, hub.IsOnline("55"))

	hub.UnregisterUser("55", second)
	assert.Equal(t, 2, countType(observer.eventTypes(t), EventUserStatus), "last disconnect announces offline")
	assert.False(t, hub.IsOnline("55"))

	var last UserStatus
	require.NoError(t, json.Unmarshal(lastFrameOfType(t, observer, EventUserStatus), &last))
	assert.Equal(t, "55", last.UserID)
	assert.False(t, last.Online)
}

func lastFrameOfType(t *testing.T, f *fakeConn, want string) []byte {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.frames) - 1; i >= 0; i-- {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f.frames[i], &ev))
		if ev.Type == want {
			return f.frames[i]
		}
	}
	t.Fatalf("no frame of type %q", want)
	return nil
}

func TestBroadcastIsolatesFailures(t *testing.T) {
	hub := NewHub()
	a := &fakeConn{}
	b := &fakeConn{failWrites: true}
	c := &fakeConn{}
	hub.RegisterUser("a", NewClient(a))
	hub.RegisterUser("b", NewClient(b))
	hub.RegisterUser("c", NewClient(c))

	hub.Broadcast(Pong{Type: EventPong})

	assert.Equal(t, 1, countType(a.eventTypes(t), EventPong))
	assert.Equal(t, 1, countType(c.eventTypes(t), EventPong))
	assert.True(t, b.closed)

	// b went offline when its only connection was pruned
	assert.NotContains(t, hub.Status().ConnectedUsers, "b")
}

func TestConversationNamespaceIsIndependent(t *testing.T) {
	hub := NewHub()
	userConn := &fakeConn{}
	convConn := &fakeConn{}
	hub.RegisterUser("1", NewClient(userConn))
	hub.RegisterConversation("1", NewClient(convConn))

	hub.SendToConversation("1", UserTyping{Type: EventUserTyping, SenderType: "visitor"})

	assert.Equal(t, 1, countType(convConn.eventTypes(t), EventUserTyping))
	assert.Zero(t, countType(userConn.eventTypes(t), EventUserTyping), "user namespace untouched")

	st := hub.Status()
	assert.Equal(t, []string{"1"}, st.ConnectedUsers)
	assert.Equal(t, []string{"1"}, st.ConnectedConversations)
	assert.Equal(t, []string{"1"}, st.OnlineUsers, "presence derives from the user namespace only")
}

func TestConcurrentRegisterUnregisterSend(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := NewClient(&fakeConn{})
			hub.RegisterUser("shared", c)
			hub.SendToUser("shared", Pong{Type: EventPong})
			hub.UnregisterUser("shared", c)
		}()
	}
	wg.Wait()
	assert.Empty(t, hub.Status().ConnectedUsers)
}
