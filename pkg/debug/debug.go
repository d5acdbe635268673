// Package debug holds the per-frame trace switches. Traces are plain
// printf lines, too frequent for the structured log.
package debug

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	// Enabled turns on beat and frame traces (-debug).
	Enabled bool

	// Gesture turns on gesture transition traces (-debug-gesture).
	Gesture bool
)

var (
	mu  sync.Mutex
	out io.Writer = os.Stdout
)

// SetOutput redirects traces and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := out
	out = w
	return prev
}

func write(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, format, args...)
}

// Log prints when Enabled.
func Log(format string, args ...any) {
	if Enabled {
		write(format, args...)
	}
}

// GestureLog prints when Gesture is on.
func GestureLog(format string, args ...any) {
	if Gesture {
		write(format, args...)
	}
}
