package audioio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// DefaultCaptureCommand is the ALSA capture utility used by the command backend.
const DefaultCaptureCommand = "arecord"

// CommandSource reads raw PCM16 from a child process's stdout.
type CommandSource struct {
	feed
	cfg    Config
	logger *slog.Logger

	name string
	args []string

	waitMu sync.Mutex
	exited chan struct{} // closed once the current process is reaped
}

// CommandOption configures a CommandSource.
type CommandOption func(*CommandSource)

// WithCommand replaces the capture command. The process must write
// little-endian PCM16 at the configured rate and channel count to stdout.
func WithCommand(name string, args ...string) CommandOption {
	return func(s *CommandSource) {
		s.name, s.args = name, args
	}
}

// NewCommandSource creates an arecord-backed source.
func NewCommandSource(cfg Config, logger *slog.Logger, opts ...CommandOption) (*CommandSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	device := cfg.Device
	if device == "" {
		device = "default"
	}

	s := &CommandSource{
		cfg:    cfg,
		logger: logger,
		name:   DefaultCaptureCommand,
		args: []string{
			"-q", "-t", "raw", "-f", "S16_LE",
			"-r", strconv.Itoa(cfg.SampleRate),
			"-c", strconv.Itoa(cfg.Channels),
			"-D", device,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := exec.LookPath(s.name); err != nil {
		return nil, fmt.Errorf("capture command %q not found: %w", s.name, err)
	}
	return s, nil
}

// Start launches the capture process.
func (s *CommandSource) Start(ctx context.Context) error {
	stop, err := s.begin()
	if err != nil || stop == nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(runCtx, s.name, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		cancel()
		s.end()
		return fmt.Errorf("start %s: %w", s.name, err)
	}

	exited := make(chan struct{})
	s.waitMu.Lock()
	s.exited = exited
	s.waitMu.Unlock()

	go func() {
		<-stop
		cancel()
	}()
	go s.capture(cmd, stdout, exited)

	s.logger.Info("command audio source started", "command", s.name, "pid", cmd.Process.Pid)
	return nil
}

// capture decodes stdout into chunks until the process exits or is killed.
func (s *CommandSource) capture(cmd *exec.Cmd, stdout io.Reader, exited chan struct{}) {
	defer close(exited)

	size := s.cfg.BufferBytes()
	r := bufio.NewReaderSize(stdout, 2*size)
	buf := make([]byte, size)

	for {
		n, err := io.ReadFull(r, buf)
		if n >= 2 {
			s.deliver(DecodePCM16(buf[:n], s.cfg.SampleRate, s.cfg.Channels))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				s.logger.Warn("audio capture read failed", "error", err)
			}
			break
		}
	}

	s.end()
	// A killed process reports an error; that is the normal stop path
	_ = cmd.Wait()
}

// Stop kills the capture process and waits for it to exit.
func (s *CommandSource) Stop() error {
	if !s.end() {
		return nil
	}
	s.waitMu.Lock()
	exited := s.exited
	s.waitMu.Unlock()
	if exited != nil {
		<-exited
	}

	s.logger.Info("command audio source stopped",
		"chunks", s.chunks.Load(),
		"overruns", s.overruns.Load(),
	)
	return nil
}

// Close stops capture and prevents restarts.
func (s *CommandSource) Close() error {
	s.shut()
	return s.Stop()
}

func (s *CommandSource) Config() Config { return s.cfg }
func (s *CommandSource) Name() string   { return s.name }
func (s *CommandSource) Stats() Stats   { return s.stats(s.name) }

var _ Source = (*CommandSource)(nil)
