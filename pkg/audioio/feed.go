package audioio

import (
	"io"
	"sync"
	"sync/atomic"
)

// streamDepth is how many chunks a slow reader may fall behind.
const streamDepth = 10

// feed is the run state shared by every backend: a per-run chunk channel,
// the closed latch and delivery counters.
type feed struct {
	mu      sync.Mutex
	running bool
	closed  bool
	out     chan Chunk
	stop    chan struct{}

	chunks   atomic.Int64
	samples  atomic.Int64
	overruns atomic.Int64
}

// begin opens a new run and returns its stop channel. It returns nil
// with no error when a run is already open.
func (f *feed) begin() (<-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, io.ErrClosedPipe
	}
	if f.running {
		return nil, nil
	}
	f.running = true
	f.out = make(chan Chunk, streamDepth)
	f.stop = make(chan struct{})
	return f.stop, nil
}

// end closes the current run and reports whether one was open.
func (f *feed) end() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return false
	}
	f.running = false
	close(f.stop)
	close(f.out)
	return true
}

// shut latches closed and reports whether this call did it.
func (f *feed) shut() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.closed = true
	return true
}

// deliver queues c without blocking; a full channel counts an overrun.
func (f *feed) deliver(c Chunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	select {
	case f.out <- c:
		f.chunks.Add(1)
		f.samples.Add(int64(len(c.Samples)))
	default:
		f.overruns.Add(1)
	}
}

// Stream returns the chunk channel of the current run.
func (f *feed) Stream() <-chan Chunk {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out == nil {
		// Never started
		f.out = make(chan Chunk, streamDepth)
	}
	return f.out
}

func (f *feed) stats(backend string) Stats {
	f.mu.Lock()
	running := f.running
	f.mu.Unlock()
	return Stats{
		Chunks:   f.chunks.Load(),
		Samples:  f.samples.Load(),
		Overruns: f.overruns.Load(),
		Running:  running,
		Backend:  backend,
	}
}
