package audioio

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// MockSource synthesizes audio without hardware: silence, a steady tone,
// or tone bursts at a fixed tempo.
type MockSource struct {
	feed
	cfg    Config
	logger *slog.Logger

	tone  float64 // Hz, 0 is silence
	gain  float64 // peak amplitude, 0-1
	clock int64   // frames generated so far

	// Burst gating; zero period is a continuous tone
	period time.Duration
	on     time.Duration
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave generates a continuous sine.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.tone, m.gain = frequency, amplitude
	}
}

// WithPulse emits a burst of length on at the start of every period,
// like a kick drum.
func WithPulse(frequency, amplitude float64, period, on time.Duration) MockSourceOption {
	return func(m *MockSource) {
		m.tone, m.gain = frequency, amplitude
		m.period, m.on = period, on
	}
}

// NewMockSource creates a silent source unless an option sets a tone.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{cfg: cfg, logger: logger, gain: 0.5}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start generates one chunk per buffer duration until stopped.
func (m *MockSource) Start(ctx context.Context) error {
	stop, err := m.begin()
	if err != nil || stop == nil {
		return err
	}

	go m.run(ctx, stop)

	m.logger.Info("mock audio source started",
		"sample_rate", m.cfg.SampleRate,
		"tone_hz", m.tone,
		"period", m.period,
	)
	return nil
}

func (m *MockSource) run(ctx context.Context, stop <-chan struct{}) {
	tick := time.NewTicker(m.cfg.BufferDuration)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Stop()
			return
		case <-stop:
			return
		case <-tick.C:
			m.deliver(m.GenerateChunk())
		}
	}
}

// GenerateChunk synthesizes the next buffer. Tests call it directly to
// avoid the ticker.
func (m *MockSource) GenerateChunk() Chunk {
	frames := m.cfg.BufferSize()
	ch := m.cfg.Channels
	samples := make([]int16, frames*ch)

	if m.tone > 0 {
		rate := float64(m.cfg.SampleRate)
		period := int64(m.period.Seconds() * rate)
		on := int64(m.on.Seconds() * rate)

		for i := 0; i < frames; i++ {
			t := m.clock + int64(i)
			if period > 0 && t%period >= on {
				continue
			}
			v := int16(m.gain * 32767 * math.Sin(2*math.Pi*m.tone*float64(t)/rate))
			for c := 0; c < ch; c++ {
				samples[i*ch+c] = v
			}
		}
	}
	m.clock += int64(frames)

	return Chunk{Samples: samples, SampleRate: m.cfg.SampleRate, Channels: ch}
}

// Stop halts generation.
func (m *MockSource) Stop() error {
	if m.end() {
		m.logger.Info("mock audio source stopped", "chunks", m.chunks.Load())
	}
	return nil
}

// Close stops the source for good.
func (m *MockSource) Close() error {
	m.shut()
	return m.Stop()
}

func (m *MockSource) Config() Config { return m.cfg }
func (m *MockSource) Name() string   { return "mock" }
func (m *MockSource) Stats() Stats   { return m.stats("mock") }

var _ Source = (*MockSource)(nil)
