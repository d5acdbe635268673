package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/body-echo/pkg/gesture"
)

// RemoteConfig configures the sidecar client.
type RemoteConfig struct {
	URL              string        `json:"url" validate:"required,url"`
	SessionID        string        `json:"session_id"` // empty generates one
	Options          Options       `json:"options"`
	JPEGQuality      int           `json:"jpeg_quality" validate:"min=1,max=100"`
	HandshakeTimeout time.Duration `json:"handshake_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout"`
	PingInterval     time.Duration `json:"ping_interval"`
}

// DefaultRemoteConfig returns defaults for a sidecar on localhost.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:              "ws://127.0.0.1:8765/pose",
		Options:          DefaultOptions(),
		JPEGQuality:      80,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Wire messages exchanged with the sidecar.
type helloMessage struct {
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	Options   Options `json:"options"`
}

type wireLandmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

type serverMessage struct {
	Type      string         `json:"type"`
	Seq       uint64         `json:"seq"`
	Mask      string         `json:"mask,omitempty"`
	Landmarks []wireLandmark `json:"landmarks"`
	Message   string         `json:"message,omitempty"`
}

// Remote streams frames to a pose segmentation sidecar over a websocket.
type Remote struct {
	cfg       RemoteConfig
	logger    *slog.Logger
	sessionID string

	conn    *websocket.Conn
	writeMu sync.Mutex

	callback atomic.Pointer[func(Result)]
	onError  atomic.Pointer[func(uint64, error)]
	closed   atomic.Bool
	seq      atomic.Uint64
	errors   atomic.Int64

	done chan struct{}
	stop chan struct{}
}

// DialRemote connects to the sidecar and sends the options hello.
func DialRemote(ctx context.Context, cfg RemoteConfig, logger *slog.Logger) (*Remote, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = cfg.HandshakeTimeout

	conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	r := &Remote{
		cfg:       cfg,
		logger:    logger,
		sessionID: sessionID,
		conn:      conn,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}

	conn.SetPingHandler(func(appData string) error {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(cfg.WriteTimeout))
	})

	hello := helloMessage{Type: "options", SessionID: r.sessionID, Options: cfg.Options}
	if err := r.writeJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send options: %w", err)
	}

	go r.readLoop()
	if cfg.PingInterval > 0 {
		go r.keepAlive()
	}

	logger.Info("connected to segmentation sidecar",
		"url", cfg.URL,
		"session_id", r.sessionID,
	)

	return r, nil
}

// Name returns "remote".
func (r *Remote) Name() string {
	return "remote"
}

// SessionID returns the id announced in the hello.
func (r *Remote) SessionID() string {
	return r.sessionID
}

// OnResults registers the result callback.
func (r *Remote) OnResults(fn func(Result)) {
	r.callback.Store(&fn)
}

// OnError registers the callback for frames the sidecar failed or answered
// with an unreadable result.
func (r *Remote) OnError(fn func(seq uint64, err error)) {
	r.onError.Store(&fn)
}

// Send JPEG-encodes the frame and writes it as one binary message.
func (r *Remote) Send(ctx context.Context, frame image.Image) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if frame.Bounds().Empty() {
		return ErrEmptyFrame
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: r.cfg.JPEGQuality}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	deadline := time.Now().Add(r.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.conn.SetWriteDeadline(deadline)
	if err := r.conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	r.seq.Add(1)
	return nil
}

func (r *Remote) writeJSON(v any) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.conn.SetWriteDeadline(time.Now().Add(r.cfg.WriteTimeout))
	return r.conn.WriteJSON(v)
}

func (r *Remote) readLoop() {
	defer close(r.done)

	for {
		msgType, data, err := r.conn.ReadMessage()
		if err != nil {
			if !r.closed.Load() {
				r.logger.Warn("sidecar connection lost", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.errors.Add(1)
			r.logger.Debug("sidecar sent invalid json", "error", err)
			continue
		}

		switch msg.Type {
		case "results":
			res, err := msg.result()
			if err != nil {
				r.logger.Debug("sidecar result rejected", "seq", msg.Seq, "error", err)
				r.fail(msg.Seq, fmt.Errorf("reject result: %w", err))
				continue
			}
			r.deliver(res)
		case "error":
			err := &RemoteError{Message: msg.Message}
			r.logger.Warn("sidecar reported error", "seq", msg.Seq, "error", err)
			r.fail(msg.Seq, err)
		default:
			r.logger.Debug("ignoring sidecar message", "type", msg.Type)
		}
	}
}

func (m *serverMessage) result() (Result, error) {
	res := Result{Seq: m.Seq, At: time.Now()}

	if m.Mask != "" {
		mask, err := DecodeMask(m.Mask)
		if err != nil {
			return Result{}, err
		}
		res.Mask = mask
	}

	if m.Landmarks != nil {
		res.Landmarks = make(gesture.Landmarks, len(m.Landmarks))
		for i, l := range m.Landmarks {
			res.Landmarks[i] = gesture.Landmark{X: l.X, Y: l.Y, Z: l.Z, Visibility: l.Visibility}
		}
	}

	return res, nil
}

func (r *Remote) deliver(res Result) {
	if r.closed.Load() {
		return
	}
	if fn := r.callback.Load(); fn != nil {
		(*fn)(res)
	}
}

func (r *Remote) fail(seq uint64, err error) {
	r.errors.Add(1)
	if r.closed.Load() {
		return
	}
	if fn := r.onError.Load(); fn != nil {
		(*fn)(seq, err)
	}
}

func (r *Remote) keepAlive() {
	ticker := time.NewTicker(r.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-r.done:
			return
		case <-ticker.C:
			r.writeMu.Lock()
			err := r.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(r.cfg.WriteTimeout))
			r.writeMu.Unlock()
			if err != nil {
				r.logger.Warn("sidecar ping failed", "error", err)
				return
			}
		}
	}
}

// Errors returns how many sidecar errors or bad messages were seen.
func (r *Remote) Errors() int64 {
	return r.errors.Load()
}

// Sent returns how many frames were written.
func (r *Remote) Sent() uint64 {
	return r.seq.Load()
}

// Close sends a close frame and waits for the reader to exit. No callbacks
// fire after Close returns.
func (r *Remote) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	close(r.stop)

	r.writeMu.Lock()
	_ = r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	r.writeMu.Unlock()

	err := r.conn.Close()
	<-r.done

	r.logger.Info("sidecar connection closed", "session_id", r.sessionID, "sent", r.seq.Load())
	return err
}
