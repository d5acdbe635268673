package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// Viewer connection limits.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10

	// Viewers only send pongs and close frames.
	readLimit = 4 * 1024

	// About one second of canvas frames; a viewer further behind is dropped.
	queueSize = 32
)

// Client is one websocket viewer. Its queue is written by the hub and
// drained by the client's writer goroutine, which is the only writer on
// the connection.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	queue chan Message
}

// NewClient registers a viewer for conn with h. Greeting messages are
// queued for this viewer only, ahead of any broadcast.
func NewClient(h *Hub, conn *websocket.Conn, greeting ...Message) *Client {
	c := &Client{
		hub:   h,
		conn:  conn,
		queue: make(chan Message, max(queueSize, len(greeting))),
	}
	for _, msg := range greeting {
		c.queue <- msg
	}
	h.add(c)
	return c
}

// Run serves the viewer until the connection closes or the hub drops it.
// Call it from the websocket handler; it blocks.
func (c *Client) Run() {
	go c.writer()
	c.reader()
}

// reader consumes control frames so pongs extend the deadline and a
// closed socket is noticed.
func (c *Client) reader() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writer drains the queue and pings idle viewers.
func (c *Client) writer() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Dropped by the hub
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(msg.frameType(), msg.Data); err != nil {
				return
			}

		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
