package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeClient records sent payloads and can be flipped to fail sends.
type fakeClient struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (f *fakeClient) Send(message []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return false
	}
	f.payloads = append(f.payloads, message)
	return true
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeClient) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c1 := &fakeClient{}
	c2 := &fakeClient{}

	require.False(t, hub.IsOnline("u1"))

	hub.Register("u1", c1)
	hub.Register("u1", c2)
	require.True(t, hub.IsOnline("u1"))

	hub.Unregister("u1", c1)
	require.True(t, hub.IsOnline("u1"), "second connection keeps the user online")

	hub.Unregister("u1", c2)
	require.False(t, hub.IsOnline("u1"))
}

func TestSendToUserFansOutToAllConnections(t *testing.T) {
	hub := NewHub()
	c1 := &fakeClient{}
	c2 := &fakeClient{}
	hub.Register("u1", c1)
	hub.Register("u1", c2)

	hub.SendToUser("u1", []byte("hello"))

	require.Len(t, c1.received(), 1)
	require.Len(t, c2.received(), 1)
}

func TestSendToOfflineUserIsNoOp(t *testing.T) {
	hub := NewHub()
	hub.SendToUser("nobody", []byte("hello")) // must not panic
	require.False(t, hub.IsOnline("nobody"))
}

func TestDeadConnectionIsPruned(t *testing.T) {
	hub := NewHub()
	healthy := &fakeClient{}
	dead := &fakeClient{fail: true}
	hub.Register("u1", healthy)
	hub.Register("u1", dead)

	hub.SendToUser("u1", []byte("one"))

	require.True(t, dead.closed, "failed connection must be closed")
	require.True(t, hub.IsOnline("u1"), "healthy connection survives")

	hub.SendToUser("u1", []byte("two"))
	require.Len(t, healthy.received(), 2)
	require.Empty(t, dead.received())
}

func TestLastDeadConnectionTakesUserOffline(t *testing.T) {
	hub := NewHub()
	dead := &fakeClient{fail: true}
	hub.Register("u1", dead)

	hub.SendToUser("u1", []byte("x"))
	require.False(t, hub.IsOnline("u1"))
}

func TestBroadcastNotificationEnvelope(t *testing.T) {
	hub := NewHub()
	c := &fakeClient{}
	hub.Register("u1", c)

	hub.BroadcastNotification("u1", map[string]string{"message": "hi"})

	payloads := c.received()
	require.Len(t, payloads, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(payloads[0], &env))
	require.Equal(t, EventNotification, env.Type)
}

func TestBroadcastChatMessageReachesEveryParticipant(t *testing.T) {
	hub := NewHub()
	sender := &fakeClient{}
	other := &fakeClient{}
	hub.Register("u1", sender)
	hub.Register("u2", other)

	hub.BroadcastChatMessage([]string{"u1", "u2", "u3-offline"}, map[string]string{"content": "hey"})

	require.Len(t, sender.received(), 1, "sender gets their own message back")
	require.Len(t, other.received(), 1)
}

func TestTypingSkipsActorAndTracksState(t *testing.T) {
	hub := NewHub()
	actor := &fakeClient{}
	peer := &fakeClient{}
	hub.Register("u1", actor)
	hub.Register("u2", peer)

	hub.BroadcastTyping("conv1", "u1", "Alice", []string{"u1", "u2"}, true)

	require.Empty(t, actor.received(), "actor must not receive their own typing event")
	require.Len(t, peer.received(), 1)
	require.Equal(t, []string{"u1"}, hub.TypingUsers("conv1"))

	hub.BroadcastTyping("conv1", "u1", "Alice", []string{"u1", "u2"}, false)
	require.Empty(t, hub.TypingUsers("conv1"))
}

func TestReadReceiptSkipsReader(t *testing.T) {
	hub := NewHub()
	reader := &fakeClient{}
	peer := &fakeClient{}
	hub.Register("u1", reader)
	hub.Register("u2", peer)

	hub.BroadcastReadReceipt("conv1", "u1", []string{"m1", "m2"}, []string{"u1", "u2"})

	require.Empty(t, reader.received())

	payloads := peer.received()
	require.Len(t, payloads, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(payloads[0], &env))
	require.Equal(t, EventReadReceipt, env.Type)
}

func TestConcurrentRegisterAndSend(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := &fakeClient{}
			hub.Register("u1", c)
			hub.Unregister("u1", c)
		}()
		go func() {
			defer wg.Done()
			hub.SendToUser("u1", []byte("ping"))
		}()
	}
	wg.Wait()
}
