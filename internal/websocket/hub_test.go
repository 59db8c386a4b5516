package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		Send:   make(chan []byte, 8),
		UserID: userID,
	}
}

func waitForMessage(t *testing.T, ch chan []byte) Message {
	t.Helper()
	select {
	case data := <-ch:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for websocket message")
		return Message{}
	}
}

func TestNotifyUserReachesOnlyThatUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	hub.Register <- alice
	hub.Register <- bob

	// Registration happens on the hub goroutine; NotifyAll round-trips
	// through it, so both clients are registered once this arrives.
	hub.NotifyAll("sync", nil)
	waitForMessage(t, alice.Send)
	waitForMessage(t, bob.Send)

	hub.NotifyUser("alice-id", "chat.message", map[string]string{"message": "hi"})

	msg := waitForMessage(t, alice.Send)
	assert.Equal(t, "chat.message", msg.Action)

	select {
	case <-bob.Send:
		t.Fatal("bob must not receive alice's notification")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyAllBroadcasts(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "alice-id")
	bob := newTestClient(hub, "bob-id")
	hub.Register <- alice
	hub.Register <- bob

	hub.NotifyAll("system.stats", map[string]float64{"cpuPercent": 1.5})

	for _, client := range []*Client{alice, bob} {
		msg := waitForMessage(t, client.Send)
		assert.Equal(t, "system.stats", msg.Action)
	}
}

func TestNotifyUserDuringConcurrentRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	clients := make([]*Client, 20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range clients {
			clients[i] = newTestClient(hub, "alice-id")
			hub.Register <- clients[i]
		}
	}()

	// Notifications race with the registrations above; both must be
	// serialized by the hub goroutine. Stay under the Send buffer so no
	// client is dropped as slow.
	for i := 0; i < 4; i++ {
		hub.NotifyUser("alice-id", "chat.message", map[string]int{"seq": i})
	}
	<-done

	// Every client is registered now, so all of them see this one.
	hub.NotifyUser("alice-id", "chat.message", map[string]string{"message": "final"})
	for _, client := range clients {
		found := false
		for !found {
			msg := waitForMessage(t, client.Send)
			require.Equal(t, "chat.message", msg.Action)
			payload, _ := msg.Payload.(map[string]interface{})
			if payload["message"] == "final" {
				found = true
			}
		}
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	alice := newTestClient(hub, "alice-id")
	hub.Register <- alice
	hub.Unregister <- alice

	select {
	case _, ok := <-alice.Send:
		assert.False(t, ok, "send channel must be closed on unregister")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}
