package legacy

import "github.com/ringloop/ringloop/internal/lifecycle"

// direction distinguishes the read-interest and write-interest waker slots
// on a single fd, mirroring monoio's driver::legacy::ready::Direction.
type direction int

const (
	dirRead direction = iota
	dirWrite
)

// scheduledIO is the per-fd readiness record: which directions are
// currently known-ready, and which waker (if any) is parked on each
// direction. Ported from original_source/monoio/src/driver/legacy/
// scheduled_io.rs — readiness plus one reader waker and one writer waker,
// with set_readiness/wake/poll_readiness becoming setReady/wake/register
// below. Rust's Ready bitset collapses to two bools since this module only
// ever asks "read ready?" or "write ready?", never both at once.
type scheduledIO struct {
	readReady  bool
	writeReady bool
	reader     lifecycle.Waker
	writer     lifecycle.Waker
}

func (s *scheduledIO) setReady(d direction, ready bool) {
	if d == dirRead {
		s.readReady = ready
	} else {
		s.writeReady = ready
	}
}

func (s *scheduledIO) isReady(d direction) bool {
	if d == dirRead {
		return s.readReady
	}
	return s.writeReady
}

// register stashes waker for direction, replacing any previous one —
// equivalent to Rust's will_wake check, simplified since Go closures have
// no identity comparison worth making.
func (s *scheduledIO) register(d direction, waker lifecycle.Waker) {
	if d == dirRead {
		s.reader = waker
	} else {
		s.writer = waker
	}
}

// wake fires and clears the waker registered for ready directions.
func (s *scheduledIO) wake(readable, writable bool) {
	if readable && s.reader != nil {
		w := s.reader
		s.reader = nil
		w()
	}
	if writable && s.writer != nil {
		w := s.writer
		s.writer = nil
		w()
	}
}
