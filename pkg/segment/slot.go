package segment

import (
	"sync/atomic"
)

// Slot holds the single most recent Result.
//
// One writer (the provider callback) overwrites; the render loop reads
// whatever is there without waiting. A Result is never mutated after Store.
type Slot struct {
	current atomic.Pointer[Result]

	stores     atomic.Uint64
	overwrites atomic.Uint64
	reads      atomic.Uint64
	lastRead   atomic.Uint64
}

// Store replaces the current result. Results nobody read count as overwritten.
func (s *Slot) Store(r *Result) {
	if r == nil {
		return
	}
	if prev := s.current.Swap(r); prev != nil && prev.Seq != s.lastRead.Load() {
		s.overwrites.Add(1)
	}
	s.stores.Add(1)
}

// Load returns the current result, or nil if nothing was stored yet.
func (s *Slot) Load() *Result {
	r := s.current.Load()
	if r != nil {
		s.reads.Add(1)
		s.lastRead.Store(r.Seq)
	}
	return r
}

// SlotStats counts slot traffic.
type SlotStats struct {
	Stores     uint64 `json:"stores"`
	Overwrites uint64 `json:"overwrites"`
	Reads      uint64 `json:"reads"`
}

// Stats returns the slot counters.
func (s *Slot) Stats() SlotStats {
	return SlotStats{
		Stores:     s.stores.Load(),
		Overwrites: s.overwrites.Load(),
		Reads:      s.reads.Load(),
	}
}
