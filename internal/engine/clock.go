package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock supplies the current time. Implementations must be monotonically
// non-decreasing.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sequence is a monotonic logical counter stamped on every journal event.
// Safe for concurrent use; auctions on different goroutines share one.
//
// Numbers handed out by Commit reach the journal in issue order, so a reader
// tailing by seq never sees seq n+1 committed before seq n.
type Sequence struct {
	commit sync.Mutex
	seq    atomic.Int64
}

// NewSequence returns a sequence whose first Next is 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt returns a sequence resuming after start.
// Used when restoring from a journal.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number.
func (s *Sequence) Next() int64 {
	s.commit.Lock()
	defer s.commit.Unlock()
	return s.seq.Add(1)
}

// Commit passes the next sequence number to fn, typically a journal append,
// and holds every other Commit off until fn returns. The number is consumed
// only if fn succeeds.
func (s *Sequence) Commit(fn func(seq int64) error) error {
	s.commit.Lock()
	defer s.commit.Unlock()
	next := s.seq.Load() + 1
	if err := fn(next); err != nil {
		return err
	}
	s.Observe(next)
	return nil
}

// Current returns the last issued number without advancing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}

// Observe raises the sequence to at least n. Lower values are ignored.
func (s *Sequence) Observe(n int64) {
	for {
		cur := s.seq.Load()
		if n <= cur {
			return
		}
		if s.seq.CompareAndSwap(cur, n) {
			return
		}
	}
}
