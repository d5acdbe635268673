package hub

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Hub owns a set of viewers and copies every published message to each.
// Only Run mutates the set; other goroutines talk to it over channels.
type Hub struct {
	name   string
	logger *slog.Logger

	viewers map[*Client]struct{}
	mu      sync.RWMutex // guards viewers for ClientCount

	publish chan Message
	join    chan *Client
	leave   chan *Client

	quit     chan struct{}
	quitOnce sync.Once

	running atomic.Bool
	skipped atomic.Int64 // broadcasts not queued because publish was full
	kicked  atomic.Int64 // viewers dropped for falling behind
}

// New creates a hub; name tags its log lines.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:    name,
		logger:  logger.With("hub", name),
		viewers: make(map[*Client]struct{}),
		publish: make(chan Message, 64),
		join:    make(chan *Client),
		leave:   make(chan *Client),
		quit:    make(chan struct{}),
	}
}

// Run owns the viewer set until Stop. Start it in its own goroutine.
func (h *Hub) Run() {
	h.running.Store(true)
	defer h.running.Store(false)

	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.viewers {
				h.detach(c)
			}
			h.mu.Unlock()
			return

		case c := <-h.join:
			h.mu.Lock()
			h.viewers[c] = struct{}{}
			n := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("viewer joined", "viewers", n)

		case c := <-h.leave:
			h.mu.Lock()
			if _, ok := h.viewers[c]; ok {
				h.detach(c)
			}
			n := len(h.viewers)
			h.mu.Unlock()
			h.logger.Info("viewer left", "viewers", n)

		case msg := <-h.publish:
			h.fanOut(msg)
		}
	}
}

func (h *Hub) fanOut(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.viewers {
		select {
		case c.queue <- msg:
		default:
			h.detach(c)
			h.kicked.Add(1)
			h.logger.Warn("dropped slow viewer", "viewers", len(h.viewers))
		}
	}
}

// detach removes c and closes its queue. Caller holds mu.
func (h *Hub) detach(c *Client) {
	delete(h.viewers, c)
	close(c.queue)
}

// Stop ends Run and disconnects every viewer. Safe to call twice.
func (h *Hub) Stop() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Broadcast queues msg for all viewers without blocking. When the hub is
// backed up the message is skipped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.publish <- msg:
	default:
		h.skipped.Add(1)
		h.logger.Debug("publish queue full, skipping message")
	}
}

// BroadcastJSON marshals v and broadcasts it as a text frame.
func (h *Hub) BroadcastJSON(v any) error {
	msg, err := EncodeJSON(v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// BroadcastBinary broadcasts data as a binary frame.
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Dropped returns how many broadcasts were skipped.
func (h *Hub) Dropped() int64 {
	return h.skipped.Load()
}

// Kicked returns how many viewers were dropped for falling behind.
func (h *Hub) Kicked() int64 {
	return h.kicked.Load()
}

// IsRunning reports whether Run is active.
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// add registers c, or closes its queue right away if the hub has stopped.
func (h *Hub) add(c *Client) {
	select {
	case h.join <- c:
	case <-h.quit:
		close(c.queue)
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.leave <- c:
	case <-h.quit:
	}
}
