package hub

import (
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
)

func newTestClient(h *Hub, buf int) *Client {
	return &Client{hub: h, queue: make(chan Message, buf)}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met")
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	a, b := newTestClient(h, 4), newTestClient(h, 4)
	h.add(a)
	h.add(b)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	h.BroadcastBinary([]byte{1, 2, 3})

	for i, c := range []*Client{a, b} {
		select {
		case msg := <-c.queue:
			if msg.Type != BinaryMessage || len(msg.Data) != 3 {
				t.Errorf("client %d: unexpected message %+v", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d: no message", i)
		}
	}
}

func TestHub_BroadcastJSON(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 1)
	h.add(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	if err := h.BroadcastJSON(map[string]int{"stars": 3}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}
	msg := <-c.queue
	if msg.Type != JSONMessage || string(msg.Data) != `{"stars":3}` {
		t.Errorf("got %v %q", msg.Type, msg.Data)
	}

	if err := h.BroadcastJSON(func() {}); err == nil {
		t.Error("expected marshal error")
	}
}

func TestMessage_FrameType(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{"json is text", NewJSONMessage([]byte("{}")), websocket.TextMessage},
		{"binary", NewBinaryMessage([]byte{0xff}), websocket.BinaryMessage},
		{"zero value is text", Message{}, websocket.TextMessage},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.frameType(); got != tc.want {
				t.Errorf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestHub_DropsSlowClient(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	slow := newTestClient(h, 0)
	h.add(slow)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.BroadcastBinary([]byte{0})
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-slow.queue; ok {
		t.Error("slow client's channel should be closed")
	}
	if got := h.Kicked(); got != 1 {
		t.Errorf("kicked: got %d, want 1", got)
	}
}

func TestHub_Unregister(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	c := newTestClient(h, 1)
	h.add(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.remove(c)
	waitFor(t, func() bool { return h.ClientCount() == 0 })
}

func TestHub_StopClosesClients(t *testing.T) {
	h := New("test", nil)
	go h.Run()

	c := newTestClient(h, 1)
	h.add(c)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	h.Stop()
	h.Stop()
	waitFor(t, func() bool { return !h.IsRunning() })

	if _, ok := <-c.queue; ok {
		t.Error("expected closed channel after Stop")
	}

	// Registration after Stop must not block
	late := newTestClient(h, 1)
	h.add(late)
	if _, ok := <-late.queue; ok {
		t.Error("late client should be closed immediately")
	}
	h.remove(late)
}

func TestNewClient_GreetingOnlyToNewViewer(t *testing.T) {
	h := New("test", nil)
	go h.Run()
	defer h.Stop()

	old := newTestClient(h, 4)
	h.add(old)
	waitFor(t, func() bool { return h.ClientCount() == 1 })

	greeting, err := EncodeJSON(map[string]string{"status": "running"})
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}
	joined := NewClient(h, nil, greeting)
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	select {
	case msg := <-joined.queue:
		if string(msg.Data) != `{"status":"running"}` {
			t.Errorf("greeting: got %q", msg.Data)
		}
	default:
		t.Fatal("new viewer got no greeting")
	}

	select {
	case msg := <-old.queue:
		t.Errorf("existing viewer got %q", msg.Data)
	default:
	}

	// Broadcasts still reach both, after the greeting
	h.BroadcastBinary([]byte{9})
	for i, c := range []*Client{old, joined} {
		select {
		case msg := <-c.queue:
			if msg.Type != BinaryMessage {
				t.Errorf("client %d: unexpected message %+v", i, msg)
			}
		case <-time.After(time.Second):
			t.Fatalf("client %d: no broadcast", i)
		}
	}
}
