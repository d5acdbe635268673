package echo

import (
	"bytes"
	"image"
	"image/jpeg"
	"time"

	"github.com/teslashibe/body-echo/pkg/camera"
	"github.com/teslashibe/body-echo/pkg/display"
	"github.com/teslashibe/body-echo/pkg/web"
)

// Presenter receives the outward status and every rendered canvas.
// Present is called from the render loop and must not keep canvas.
type Presenter interface {
	SetStatus(status, msg string)
	Present(canvas *image.RGBA, stats Stats)
	Close() error
}

// statusInterval throttles dashboard state broadcasts.
const statusInterval = 200 * time.Millisecond

// snapshotInterval keeps /api/snapshot fresh when nobody watches the stream.
const snapshotInterval = time.Second

// webPresenter streams JPEG canvases and state to the dashboard.
type webPresenter struct {
	srv    *web.Server
	app    *App
	camera *camera.Manager

	frameInterval time.Duration
	lastFrame     time.Time
	lastState     time.Time
}

func newWebPresenter(srv *web.Server, app *App, cam *camera.Manager, fps int) *webPresenter {
	p := &webPresenter{srv: srv, app: app, camera: cam}
	if fps > 0 {
		p.frameInterval = time.Second / time.Duration(fps)
	}
	srv.OnSnapshot = app.Snapshot
	srv.OnResize = app.Resize
	srv.UpdateState(func(st *web.State) {
		st.SessionID = app.SessionID()
		st.Provider = app.config.Provider
		st.Audio = app.config.Audio
	})
	return p
}

func (p *webPresenter) SetStatus(status, msg string) {
	p.srv.SetStatus(status, msg)
}

func (p *webPresenter) Present(canvas *image.RGBA, stats Stats) {
	now := time.Now()

	if now.Sub(p.lastState) >= statusInterval {
		p.lastState = now
		c := p.app.Counters()
		p.srv.UpdateState(func(st *web.State) {
			st.Mode = stats.Mode
			st.SpreadX = stats.SpreadX
			st.SpreadY = stats.SpreadY
			st.Volume = stats.Volume
			st.Stars = stats.Stars
			st.Beats = stats.Beats
			st.Path = stats.Path
			st.FrameCount = stats.FrameCount
			st.Width, st.Height = stats.Width, stats.Height
			st.Energy = stats.Energy
			st.Chunks = stats.AudioChunks
			st.Sent = c.Sent
			st.Dropped = c.Dropped
			st.Failures = stats.DrawFailures + stats.AudioFailures + c.SendErrors + c.FrameErrors
		})
	}

	if p.frameInterval == 0 {
		return
	}
	viewers := p.srv.CanvasViewers() > 0
	due := now.Sub(p.lastFrame)
	if (viewers && due >= p.frameInterval) || due >= snapshotInterval {
		p.lastFrame = now
		data, err := encodeJPEG(canvas, p.camera.GetConfig().Quality)
		if err != nil {
			p.app.logger.Debug("canvas encode failed", "error", err)
			return
		}
		p.app.storeSnapshot(data)
		if viewers {
			p.srv.SendCanvasFrame(data)
		}
	}
}

func (p *webPresenter) Close() error {
	return p.srv.Shutdown()
}

// windowPresenter shows the canvas in a local window.
type windowPresenter struct {
	win *display.Window
	app *App
}

func (p *windowPresenter) SetStatus(status, msg string) {
	if status == web.StatusError {
		p.app.logger.Error("fatal", "error", msg)
	}
}

func (p *windowPresenter) Present(canvas *image.RGBA, _ Stats) {
	if err := p.win.Show(canvas); err != nil {
		p.app.logger.Debug("window show failed", "error", err)
	}
}

func (p *windowPresenter) Close() error {
	return p.win.Close()
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
