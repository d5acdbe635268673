package beat

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestMonitor_Smoothing(t *testing.T) {
	m := NewDefaultMonitor()

	m.Update(0, Sample{Level: 1}, nil)
	if math.Abs(m.Volume()-0.1) > 1e-12 {
		t.Errorf("after one tick: got %v, want 0.1", m.Volume())
	}

	m.Update(33*time.Millisecond, Sample{Level: 1}, nil)
	if math.Abs(m.Volume()-0.19) > 1e-12 {
		t.Errorf("after two ticks: got %v, want 0.19", m.Volume())
	}
}

func TestMonitor_DebounceCapsSpawnRate(t *testing.T) {
	m := NewDefaultMonitor()

	spawns := 0
	for ms := 0; ms < 1000; ms += 10 {
		if m.Update(time.Duration(ms)*time.Millisecond, Sample{Level: 0.5, Beat: true}, nil) {
			spawns++
		}
	}

	if spawns != 5 {
		t.Errorf("spawns in one second: got %d, want 5", spawns)
	}

	st := m.State()
	if st.Beats != 5 || st.Suppressed != 95 {
		t.Errorf("state: got beats=%d suppressed=%d, want 5 and 95", st.Beats, st.Suppressed)
	}
	if st.LastBeat != 800*time.Millisecond {
		t.Errorf("last beat: got %v, want 800ms", st.LastBeat)
	}
}

func TestMonitor_SpacedBeatsAllSpawn(t *testing.T) {
	m := NewDefaultMonitor()

	for i := 0; i < 10; i++ {
		now := time.Duration(i) * 250 * time.Millisecond
		if !m.Update(now, Sample{Beat: true}, nil) {
			t.Fatalf("beat %d at %v was suppressed", i, now)
		}
	}
}

func TestMonitor_FailureIsNoBeat(t *testing.T) {
	m := NewDefaultMonitor()
	m.Update(0, Sample{Level: 1}, nil)
	before := m.Volume()

	if m.Update(100*time.Millisecond, Sample{Level: 1, Beat: true}, errors.New("device unplugged")) {
		t.Error("failed read must not spawn")
	}
	if m.Volume() != before {
		t.Errorf("volume changed on failure: got %v, want %v", m.Volume(), before)
	}
	if m.State().Failures != 1 {
		t.Errorf("failures: got %d, want 1", m.State().Failures)
	}

	// The debounce window was not consumed by the failed tick
	if !m.Update(100*time.Millisecond, Sample{Beat: true}, nil) {
		t.Error("expected beat after failure to spawn")
	}
}

func TestMonitor_NoBeatNoSpawn(t *testing.T) {
	m := NewDefaultMonitor()
	for ms := 0; ms < 1000; ms += 33 {
		if m.Update(time.Duration(ms)*time.Millisecond, Sample{Level: 0.9}, nil) {
			t.Fatalf("spawned without a beat at %dms", ms)
		}
	}
	if m.State().HasBeat {
		t.Error("HasBeat should stay false")
	}
}
