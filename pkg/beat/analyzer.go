package beat

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/body-echo/pkg/audioio"
)

// Sentinel errors for audio analysis.
var (
	// ErrNoAudio is returned when no audio has been captured yet.
	ErrNoAudio = errors.New("beat: no audio available")

	// ErrStopped is returned after the analyzer has been stopped.
	ErrStopped = errors.New("beat: analyzer stopped")

	// ErrSourceEnded is returned once the audio stream closed without Stop.
	ErrSourceEnded = errors.New("beat: audio source ended")
)

// Analyzer turns a live audio source into per-tick Samples.
// The capture goroutine writes the window; Analyze reads it from the render loop.
type Analyzer struct {
	source audioio.Source
	logger *slog.Logger

	mu       sync.Mutex
	window   []float64 // Latest WindowSize mono samples, oldest first
	filled   int
	detector *PeakDetector

	stopped atomic.Bool
	lost    atomic.Bool
	chunks  atomic.Int64
	done    chan struct{}
}

// NewAnalyzer creates an analyzer reading from source. The detector sample
// rate follows the source configuration.
func NewAnalyzer(source audioio.Source, cfg PeakConfig, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if sr := source.Config().SampleRate; sr > 0 {
		cfg.SampleRate = sr
	}

	return &Analyzer{
		source:   source,
		logger:   logger,
		window:   make([]float64, cfg.WindowSize),
		detector: NewPeakDetector(cfg),
		done:     make(chan struct{}),
	}
}

// Start begins capture and consumes chunks until ctx is done or Stop is called.
func (a *Analyzer) Start(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("audio analyzer started",
		"backend", a.source.Name(),
		"sample_rate", a.source.Config().SampleRate,
		"window", len(a.window),
	)

	go a.consume(ctx)
	return nil
}

func (a *Analyzer) consume(ctx context.Context) {
	defer close(a.done)

	stream := a.source.Stream()
	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-stream:
			if !ok {
				if ctx.Err() == nil && !a.stopped.Load() {
					a.lost.Store(true)
					a.logger.Warn("audio source ended", "backend", a.source.Name(), "chunks", a.chunks.Load())
				}
				return
			}
			a.Push(chunk)
		}
	}
}

// Push appends a chunk to the analysis window. Multi-channel audio is mixed to mono.
func (a *Analyzer) Push(chunk audioio.Chunk) {
	mono := chunk.Mono()
	if len(mono) == 0 {
		return
	}

	a.mu.Lock()
	n := len(a.window)
	if len(mono) >= n {
		copy(a.window, mono[len(mono)-n:])
	} else {
		copy(a.window, a.window[len(mono):])
		copy(a.window[n-len(mono):], mono)
	}
	a.filled = min(n, a.filled+len(mono))
	a.mu.Unlock()

	a.chunks.Add(1)
}

// Analyze returns the current level and beat verdict. Call once per render tick.
// After the source ends on its own every call returns ErrSourceEnded.
func (a *Analyzer) Analyze() (Sample, error) {
	if a.stopped.Load() {
		return Sample{}, ErrStopped
	}
	if a.lost.Load() {
		return Sample{}, ErrSourceEnded
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.filled == 0 {
		return Sample{}, ErrNoAudio
	}

	return Sample{
		Level: rms(a.window[len(a.window)-a.filled:]),
		Beat:  a.detector.Update(a.window),
	}, nil
}

// Energy returns the last band energy seen by the detector.
func (a *Analyzer) Energy() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detector.Energy()
}

// Chunks returns how many chunks have been consumed.
func (a *Analyzer) Chunks() int64 {
	return a.chunks.Load()
}

// Stop halts capture and closes the source. Safe to call multiple times.
func (a *Analyzer) Stop() error {
	if a.stopped.Swap(true) {
		return nil
	}
	err := a.source.Close()
	a.logger.Info("audio analyzer stopped", "chunks", a.chunks.Load())
	return err
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}
