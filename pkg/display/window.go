// Package display shows rendered canvases in a local OpenCV window.
package display

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// ErrClosed is returned by Show after the window was closed.
var ErrClosed = errors.New("display: window closed")

// KeyEscape closes the window when pressed.
const KeyEscape = 27

// Window is a fullscreen-capable preview window.
//
// OpenCV requires window calls from a single thread, so Show and Close
// should be called from the render goroutine only.
type Window struct {
	mu     sync.Mutex
	win    *gocv.Window
	logger *slog.Logger
	closed bool

	// OnQuit is called once when Escape or q is pressed.
	OnQuit func()
}

// NewWindow opens a window titled name.
func NewWindow(name string, fullscreen bool, logger *slog.Logger) *Window {
	if logger == nil {
		logger = slog.Default()
	}
	win := gocv.NewWindow(name)
	if fullscreen {
		win.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	}
	return &Window{win: win, logger: logger.With("component", "display")}
}

// Show presents img and pumps window events.
func (w *Window) Show(img image.Image) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	w.win.IMShow(mat)
	if key := w.win.WaitKey(1); key == KeyEscape || key == 'q' {
		if w.OnQuit != nil {
			w.logger.Info("quit requested from window")
			w.OnQuit()
			w.OnQuit = nil
		}
	}
	return nil
}

// Close destroys the window. Safe to call more than once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.win.Close()
}
