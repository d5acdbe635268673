package star

import (
	"image/draw"
	"math/rand"
	"time"
)

// Field is the ordered list of live stars. Owned by the render loop.
type Field struct {
	rng   *rand.Rand
	stars []*Star
}

// NewField creates an empty field with a seeded random source.
func NewField(seed int64) *Field {
	return &Field{rng: rand.New(rand.NewSource(seed))}
}

// Spawn appends a new star somewhere on a width x height canvas.
func (f *Field) Spawn(width, height int, now time.Duration) *Star {
	s := New(f.rng, width, height, now)
	f.stars = append(f.stars, s)
	return s
}

// Prune drops dead stars, keeping order. Returns how many were removed.
func (f *Field) Prune(now time.Duration) int {
	kept := f.stars[:0]
	for _, s := range f.stars {
		if !s.IsDead(now) {
			kept = append(kept, s)
		}
	}
	removed := len(f.stars) - len(kept)
	for i := len(kept); i < len(f.stars); i++ {
		f.stars[i] = nil
	}
	f.stars = kept
	return removed
}

// Draw paints every live star in spawn order.
func (f *Field) Draw(dst draw.Image, now time.Duration) {
	for _, s := range f.stars {
		s.Draw(dst, now)
	}
}

// Len returns the number of live stars.
func (f *Field) Len() int {
	return len(f.stars)
}

// Stars returns a snapshot of the live stars.
func (f *Field) Stars() []Star {
	out := make([]Star, len(f.stars))
	for i, s := range f.stars {
		out[i] = *s
	}
	return out
}
