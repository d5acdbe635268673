package camera

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"no device", func(c *Config) { c.Device = "" }, false},
		{"tiny width", func(c *Config) { c.Width = 10 }, false},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, false},
		{"quality too high", func(c *Config) { c.Quality = 101 }, false},
		{"file device", func(c *Config) { c.Device = "/tmp/dance.mp4" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfig_ValidateReportsEveryField(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Quality = 10, 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"width 10", "quality 0"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err, want)
		}
	}
}

func TestPresets_AllValid(t *testing.T) {
	base := DefaultConfig()
	base.Device = "3"
	for _, name := range PresetNames() {
		cfg, ok := ApplyPreset(base, name)
		if !ok {
			t.Fatalf("preset %q missing", name)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
		if cfg.Device != "3" {
			t.Errorf("preset %q changed device to %s", name, cfg.Device)
		}
	}
	if _, ok := ApplyPreset(base, "nope"); ok {
		t.Error("unknown preset should not apply")
	}
}

func TestManager_Apply(t *testing.T) {
	m := NewManager(DefaultConfig())

	var applied Config
	m.OnConfigChange = func(cfg Config) error {
		applied = cfg
		return nil
	}

	off, q := false, 60
	if err := m.Apply(Update{Mirror: &off, Quality: &q}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if m.Mirror() || applied.Mirror {
		t.Error("mirror should be off")
	}
	if got := m.GetConfig(); got.Quality != 60 || got.Width != 640 {
		t.Errorf("got quality=%d width=%d, want 60 and 640", got.Quality, got.Width)
	}
}

func TestManager_PresetThenOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Device = "2"
	m := NewManager(cfg)

	preset, fps := PresetLow, 15
	if err := m.Apply(Update{Preset: &preset, Framerate: &fps}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	got := m.GetConfig()
	if got.Device != "2" || got.Width != 320 || got.Framerate != 15 {
		t.Errorf("got device=%s width=%d fps=%d, want 2, 320, 15", got.Device, got.Width, got.Framerate)
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager(DefaultConfig())

	w := 5
	if err := m.Apply(Update{Width: &w}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if m.GetConfig().Width != 640 {
		t.Error("invalid update must not be stored")
	}
	name := "nope"
	if err := m.Apply(Update{Preset: &name}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected unknown preset error, got %v", err)
	}
}

func TestManager_View(t *testing.T) {
	v := NewManager(DefaultConfig()).View()
	if v.Limits.MaxFramerate != CaptureLimits.MaxFramerate || len(v.Presets) != 4 {
		t.Errorf("unexpected view %+v", v)
	}
}

func TestMirrorRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 1, A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 2, A: 255})
	img.SetRGBA(2, 0, color.RGBA{R: 3, A: 255})

	MirrorRGBA(img)

	for x, want := range []uint8{3, 2, 1} {
		if got := img.RGBAAt(x, 0).R; got != want {
			t.Errorf("x=%d: got %d, want %d", x, got, want)
		}
	}
}

func TestOffer_KeepsLatest(t *testing.T) {
	ch := make(chan image.Image, 1)
	a := image.NewRGBA(image.Rect(0, 0, 1, 1))
	b := image.NewRGBA(image.Rect(0, 0, 2, 2))

	if offer(ch, a) {
		t.Error("first offer should not drop")
	}
	if !offer(ch, b) {
		t.Error("second offer should drop the unread frame")
	}
	if got := <-ch; got != b {
		t.Error("expected the latest frame")
	}
}

func TestMock_ProducesFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 160, 120
	cfg.Framerate = 100

	m := NewMock(NewManager(cfg), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case img, ok := <-m.Frames():
		if !ok {
			t.Fatal("frames channel closed early")
		}
		if img.Bounds() != image.Rect(0, 0, 160, 120) {
			t.Errorf("bounds: got %v", img.Bounds())
		}
	case <-ctx.Done():
		t.Fatal("no frame produced")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	// Drain: the channel must be closed after Stop
	for range m.Frames() {
	}
	if err := m.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
}

func TestPattern_Mirrored(t *testing.T) {
	a := Pattern(40, 2, 0)
	b := Pattern(40, 2, 0)
	MirrorRGBA(b)

	if a.RGBAAt(0, 0) != b.RGBAAt(39, 0) {
		t.Error("mirrored pattern should swap left and right edges")
	}
}
