package gesture

import (
	"testing"

	"github.com/teslashibe/body-echo/pkg/physics"
)

// pose builds a full landmark set with the required points placed.
func pose(nose, lShoulder, rShoulder, lWrist, rWrist Landmark) Landmarks {
	lm := make(Landmarks, PoseLandmarkCount)
	lm[Nose] = nose
	lm[LeftShoulder] = lShoulder
	lm[RightShoulder] = rShoulder
	lm[LeftWrist] = lWrist
	lm[RightWrist] = rWrist
	return lm
}

func pt(x, y float64) Landmark {
	return Landmark{X: x, Y: y, Visibility: 1}
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name     string
		lm       Landmarks
		expect   Mode
		expectOK bool
	}{
		{
			name:     "arms up",
			lm:       pose(pt(0.5, 0.5), pt(0.4, 0.6), pt(0.6, 0.6), pt(0.4, 0.2), pt(0.6, 0.2)),
			expect:   Vertical,
			expectOK: true,
		},
		{
			name:     "arms spread at shoulder height",
			lm:       pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.1, 0.55), pt(0.9, 0.45)),
			expect:   Horizontal,
			expectOK: true,
		},
		{
			name:     "wrists at chest near center",
			lm:       pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.45, 0.6), pt(0.55, 0.6)),
			expect:   Neutral,
			expectOK: true,
		},
		{
			name:     "wrists above nose but within margin",
			lm:       pose(pt(0.5, 0.5), pt(0.4, 0.6), pt(0.6, 0.6), pt(0.4, 0.45), pt(0.6, 0.45)),
			expect:   Neutral,
			expectOK: true,
		},
		{
			name:     "only one arm up",
			lm:       pose(pt(0.5, 0.5), pt(0.4, 0.6), pt(0.6, 0.6), pt(0.4, 0.2), pt(0.6, 0.8)),
			expect:   Neutral,
			expectOK: true,
		},
		{
			name:     "arms spread but one wrist far below shoulder",
			lm:       pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.1, 0.5), pt(0.9, 0.9)),
			expect:   Neutral,
			expectOK: true,
		},
		{
			name:     "arms up wins over spread",
			lm:       pose(pt(0.5, 0.5), pt(0.4, 0.6), pt(0.6, 0.6), pt(0.0, 0.2), pt(1.0, 0.2)),
			expect:   Vertical,
			expectOK: true,
		},
		{
			name:     "absent landmarks",
			lm:       nil,
			expect:   Neutral,
			expectOK: false,
		},
		{
			name:     "truncated landmarks",
			lm:       make(Landmarks, 13),
			expect:   Neutral,
			expectOK: false,
		},
	}

	c := NewClassifier(DefaultThresholds())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mode, ok := c.Classify(tc.lm)
			if ok != tc.expectOK {
				t.Fatalf("ok: got %v, want %v", ok, tc.expectOK)
			}
			if ok && mode != tc.expect {
				t.Errorf("mode: got %s, want %s", mode, tc.expect)
			}
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	lm := pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.1, 0.5), pt(0.9, 0.5))

	first, _ := c.Classify(lm)
	for i := 0; i < 100; i++ {
		mode, _ := c.Classify(lm)
		if mode != first {
			t.Fatalf("iteration %d: got %s, want %s", i, mode, first)
		}
	}
}

func TestClassifier_ScaleInvariantSpread(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	// Same pose seen from twice as far: everything halves around the center
	near := pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.1, 0.5), pt(0.9, 0.5))
	far := pose(pt(0.5, 0.4), pt(0.45, 0.5), pt(0.55, 0.5), pt(0.3, 0.5), pt(0.7, 0.5))

	m1, _ := c.Classify(near)
	m2, _ := c.Classify(far)
	if m1 != Horizontal || m2 != Horizontal {
		t.Errorf("Expected HORIZONTAL at both distances, got %s and %s", m1, m2)
	}
}

func TestClassifier_Targets(t *testing.T) {
	c := NewClassifier(DefaultThresholds())

	tests := []struct {
		mode   Mode
		expect [2]float64
	}{
		{Horizontal, [2]float64{150, 0}},
		{Vertical, [2]float64{0, 150}},
		{Neutral, [2]float64{0, 0}},
	}

	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			x, y := c.Targets(tc.mode)
			if x != tc.expect[0] || y != tc.expect[1] {
				t.Errorf("Targets: got (%v, %v), want (%v, %v)", x, y, tc.expect[0], tc.expect[1])
			}
		})
	}
}

func TestClassifier_ApplyMissingKeepsTargets(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	sx, sy := physics.NewDefault(), physics.NewDefault()

	spread := pose(pt(0.5, 0.3), pt(0.4, 0.5), pt(0.6, 0.5), pt(0.1, 0.5), pt(0.9, 0.5))
	mode, ok := c.Apply(spread, sx, sy)
	if !ok || mode != Horizontal {
		t.Fatalf("Apply: got (%s, %v), want (HORIZONTAL, true)", mode, ok)
	}

	before := [2]float64{sx.Target, sy.Target}

	mode, ok = c.Apply(nil, sx, sy)
	if ok {
		t.Error("Apply with absent landmarks should not be confident")
	}
	if mode != Horizontal {
		t.Errorf("Apply should report last confident mode, got %s", mode)
	}
	if sx.Target != before[0] || sy.Target != before[1] {
		t.Errorf("Targets changed on missing landmarks: got (%v, %v), want (%v, %v)",
			sx.Target, sy.Target, before[0], before[1])
	}
}

func TestMode_String(t *testing.T) {
	if Neutral.String() != "NEUTRAL" || Horizontal.String() != "HORIZONTAL" || Vertical.String() != "VERTICAL" {
		t.Errorf("unexpected mode names: %s %s %s", Neutral, Horizontal, Vertical)
	}
}
