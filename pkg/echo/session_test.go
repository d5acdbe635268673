package echo

import (
	"bytes"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/teslashibe/body-echo/pkg/beat"
	"github.com/teslashibe/body-echo/pkg/gesture"
	"github.com/teslashibe/body-echo/pkg/physics"
	"github.com/teslashibe/body-echo/pkg/segment"
)

func testSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.Width, cfg.Height = 160, 120
	cfg.Seed = 42
	return cfg
}

func poseResult(mode gesture.Mode) *segment.Result {
	return &segment.Result{
		Mask:      segment.Silhouette(160, 120),
		Landmarks: segment.DemoPose(mode),
	}
}

func TestSession_NoMaskPlaceholder(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)

	for i := 0; i < 20; i++ {
		canvas := s.Step(time.Duration(i)*33*time.Millisecond, Inputs{})
		if canvas.Bounds() != image.Rect(0, 0, 160, 120) {
			t.Fatalf("canvas bounds: got %v", canvas.Bounds())
		}
		if got := s.Stats().Path; got != "NO_MASK_YET" {
			t.Fatalf("frame %d: path %s, want NO_MASK_YET", i, got)
		}
	}
	if s.Stats().FrameCount != 20 {
		t.Errorf("frame count: got %d, want 20", s.Stats().FrameCount)
	}
}

func TestSession_LastMaskPersists(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)

	s.Step(0, Inputs{Result: poseResult(gesture.Neutral)})
	if got := s.Stats().Path; got != "COMPOSITING" {
		t.Fatalf("path: got %s, want COMPOSITING", got)
	}

	s.Step(33*time.Millisecond, Inputs{Result: &segment.Result{}})
	s.Step(66*time.Millisecond, Inputs{})
	if got := s.Stats().Path; got != "COMPOSITING" {
		t.Errorf("path after lost mask: got %s, want COMPOSITING", got)
	}
}

func TestSession_SpringsUpdateBeforeClassify(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)

	s.Step(0, Inputs{Result: poseResult(gesture.Horizontal)})
	x, _ := s.Springs()
	if x.Value != 0 {
		t.Errorf("first tick value: got %v, want 0 (target set after update)", x.Value)
	}
	if x.Target != 150 {
		t.Errorf("target: got %v, want 150", x.Target)
	}

	s.Step(33*time.Millisecond, Inputs{Result: poseResult(gesture.Horizontal)})
	x, _ = s.Springs()
	want := 150 * physics.DefaultStrength * physics.DefaultDrag
	if diff := x.Value - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("second tick value: got %v, want %v", x.Value, want)
	}
}

func TestSession_MissingLandmarksKeepTargets(t *testing.T) {
	tests := []struct {
		name   string
		result *segment.Result
	}{
		{"no result", nil},
		{"mask only", &segment.Result{Mask: segment.Silhouette(160, 120)}},
		{"truncated landmarks", &segment.Result{Landmarks: make(gesture.Landmarks, 5)}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(testSessionConfig(), nil)
			s.Step(0, Inputs{Result: poseResult(gesture.Vertical)})

			for i := 1; i <= 10; i++ {
				s.Step(time.Duration(i)*33*time.Millisecond, Inputs{Result: tc.result})
			}

			st := s.Stats()
			if st.TargetX != 0 || st.TargetY != 150 {
				t.Errorf("targets: got (%v, %v), want (0, 150)", st.TargetX, st.TargetY)
			}
			if st.Mode != "VERTICAL" {
				t.Errorf("mode: got %s, want VERTICAL", st.Mode)
			}
		})
	}
}

func TestSession_BeatDebounceAndExpiry(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)

	for i := 0; i < 100; i++ {
		s.Step(time.Duration(i)*10*time.Millisecond, Inputs{Audio: beat.Sample{Level: 0.2, Beat: true}})
	}

	st := s.Stats()
	if st.Beats != 5 {
		t.Errorf("beats: got %d, want 5", st.Beats)
	}
	if st.Stars != 5 {
		t.Errorf("stars: got %d, want 5", st.Stars)
	}

	// Last spawn was at 800ms; all stars are dead from 5800ms.
	s.Step(5799*time.Millisecond, Inputs{})
	if got := s.Stats().Stars; got != 1 {
		t.Errorf("stars at 5799ms: got %d, want 1", got)
	}
	s.Step(5800*time.Millisecond, Inputs{})
	if got := s.Stats().Stars; got != 0 {
		t.Errorf("stars at 5800ms: got %d, want 0", got)
	}
}

func TestSession_AudioFailureKeepsVolume(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		steps int
	}{
		{name: "read error", err: errors.New("mic gone"), steps: 1},
		{name: "source ended", err: beat.ErrSourceEnded, steps: 20},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewSession(testSessionConfig(), nil)

			s.Step(0, Inputs{Audio: beat.Sample{Level: 1}})
			before := s.Stats().Volume

			for i := 1; i <= tc.steps; i++ {
				s.Step(time.Duration(i)*33*time.Millisecond, Inputs{Audio: beat.Sample{Level: 1, Beat: true}, AudioErr: tc.err})
			}

			st := s.Stats()
			if st.Volume != before {
				t.Errorf("volume: got %v, want %v", st.Volume, before)
			}
			if st.AudioFailures != int64(tc.steps) {
				t.Errorf("audio failures: got %d, want %d", st.AudioFailures, tc.steps)
			}
			if st.Stars != 0 {
				t.Errorf("a failed read must not spawn, got %d stars", st.Stars)
			}
		})
	}
}

// Replaying the same inputs with the same seed must give identical
// trajectories and pixels.
func TestSession_Deterministic(t *testing.T) {
	script := segment.DemoScript(160, 120, 15)

	run := func() ([]float64, []byte) {
		s := NewSession(testSessionConfig(), nil)
		var traj []float64
		for i := 0; i < 90; i++ {
			res := script(uint64(i+1), nil)
			in := Inputs{
				Result: &res,
				Audio:  beat.Sample{Level: float64(i%10) / 10, Beat: i%7 == 0},
			}
			s.Step(time.Duration(i)*33*time.Millisecond, in)
			x, y := s.Springs()
			traj = append(traj, x.Value, y.Value)
		}
		return traj, append([]byte(nil), s.Canvas().Pix...)
	}

	trajA, pixA := run()
	trajB, pixB := run()

	for i := range trajA {
		if trajA[i] != trajB[i] {
			t.Fatalf("trajectory differs at %d: %v vs %v", i, trajA[i], trajB[i])
		}
	}
	if !bytes.Equal(pixA, pixB) {
		t.Error("canvases differ between runs")
	}
}

func TestSession_Resize(t *testing.T) {
	s := NewSession(testSessionConfig(), nil)
	s.Step(0, Inputs{})

	s.Resize(320, 240)
	canvas := s.Step(33*time.Millisecond, Inputs{})
	if canvas.Bounds() != image.Rect(0, 0, 320, 240) {
		t.Errorf("bounds: got %v", canvas.Bounds())
	}

	s.Resize(0, 10)
	if s.Canvas().Bounds().Dx() != 320 {
		t.Error("invalid size must be ignored")
	}
}
