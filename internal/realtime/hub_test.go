package realtime

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records received events and can be told to fail writes.
type fakeClient struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (f *fakeClient) Send(evt Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeClient) received() []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Event, len(f.events))
	copy(out, f.events)
	return out
}

func TestRegisterSendsTypingProbe(t *testing.T) {
	hub := NewHub(nil)
	c := &fakeClient{}

	hub.Register("u1", c)

	events := c.received()
	require.Len(t, events, 1)
	assert.Equal(t, EventTyping, events[0].Type)
	assert.Equal(t, TypingPayload{FromUserID: "", IsTyping: false}, events[0].Payload)
	assert.Equal(t, 1, hub.ClientCount("u1"))
}

func TestEmitToUserWithNoConnectionsIsNoop(t *testing.T) {
	hub := NewHub(nil)

	// must not panic or block
	hub.EmitToUser("ghost", Event{Type: EventMessage, Payload: "hello"})
	assert.Equal(t, 0, hub.ClientCount("ghost"))
}

func TestEmitToUserReachesAllConnections(t *testing.T) {
	hub := NewHub(nil)
	tab1 := &fakeClient{}
	tab2 := &fakeClient{}

	hub.Register("u1", tab1)
	hub.Register("u1", tab2)
	require.Equal(t, 2, hub.ClientCount("u1"))

	hub.EmitToUser("u1", Event{Type: EventMatch, Payload: "payload"})

	// probe + emitted event on both tabs
	require.Len(t, tab1.received(), 2)
	require.Len(t, tab2.received(), 2)
	assert.Equal(t, EventMatch, tab1.received()[1].Type)
	assert.Equal(t, EventMatch, tab2.received()[1].Type)
}

func TestEmitDoesNotCrossUsers(t *testing.T) {
	hub := NewHub(nil)
	mine := &fakeClient{}
	other := &fakeClient{}

	hub.Register("u1", mine)
	hub.Register("u2", other)

	hub.EmitToUser("u1", Event{Type: EventMessage, Payload: "private"})

	assert.Len(t, mine.received(), 2)  // probe + message
	assert.Len(t, other.received(), 1) // probe only
}

func TestRemoveIsAbsentSafe(t *testing.T) {
	hub := NewHub(nil)
	c := &fakeClient{}

	// removing an unknown user / connection must be a no-op
	hub.Remove("nobody", c)

	hub.Register("u1", c)
	hub.Remove("u1", c)
	assert.Equal(t, 0, hub.ClientCount("u1"))

	// double remove is still fine
	hub.Remove("u1", c)
}

func TestFailingClientIsDropped(t *testing.T) {
	hub := NewHub(nil)
	healthy := &fakeClient{}
	broken := &fakeClient{}

	hub.Register("u1", healthy)
	hub.Register("u1", broken)
	broken.mu.Lock()
	broken.fail = true
	broken.mu.Unlock()

	hub.EmitToUser("u1", Event{Type: EventMessage, Payload: "x"})

	assert.Equal(t, 1, hub.ClientCount("u1"))
	// healthy client still receives later events
	hub.EmitToUser("u1", Event{Type: EventMessage, Payload: "y"})
	assert.Len(t, healthy.received(), 3) // probe + two messages
}

func TestConcurrentRegisterEmitRemove(t *testing.T) {
	hub := NewHub(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := &fakeClient{}
			hub.Register("u1", c)
			hub.EmitToUser("u1", Event{Type: EventTyping, Payload: TypingPayload{FromUserID: "u2", IsTyping: true}})
			hub.Remove("u1", c)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount("u1"))
}
