// Package sequence provides strictly monotonic id generation for
// orders, fills and WAL records. Ids are never reused within a
// market's lifetime and survive restarts via Reset after WAL replay.
package sequence

import "sync/atomic"

// Sequencer hands out strictly increasing uint64 ids.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next id.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued id.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset rewinds or advances the sequencer. Only valid during replay,
// before the engine accepts traffic.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
