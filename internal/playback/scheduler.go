// Package playback serializes possibly-overlapping decode completions into
// a single gapless audio timeline.
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/internal/audio"
)

// Clock exposes the position of the shared audio output timeline.
type Clock interface {
	Now() time.Duration
}

// Output schedules a buffer to begin at a position on the output timeline.
type Output interface {
	PlayAt(buf *audio.Buffer, at time.Duration)
}

// Scheduler queues decoded buffers for gapless sequential playback against
// one output clock. A newly enqueued buffer starts no earlier than the
// later of the current clock position and the end of the previous buffer,
// so scheduled intervals never overlap and never regress.
type Scheduler struct {
	clock  Clock
	output Output
	logger *zap.Logger

	mu        sync.Mutex
	nextStart time.Duration
}

// NewScheduler creates a scheduler over the given clock and output.
func NewScheduler(clock Clock, output Output, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		clock:  clock,
		output: output,
		logger: logger,
	}
}

// Enqueue schedules a buffer and advances the cursor. It returns the start
// position assigned to the buffer.
func (s *Scheduler) Enqueue(buf *audio.Buffer) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.clock.Now()
	if s.nextStart > start {
		start = s.nextStart
	}
	s.nextStart = start + buf.Duration()
	s.output.PlayAt(buf, start)

	s.logger.Debug("Scheduled playback buffer",
		zap.Duration("start", start),
		zap.Duration("duration", buf.Duration()),
		zap.Duration("nextStart", s.nextStart))

	return start
}

// Speaking reports whether scheduled audio is still ahead of the output
// clock. UI affordance only; it never feeds back into scheduling.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Now() < s.nextStart
}

// Reset clears the cursor. Called when a session closes so a reopened
// session starts from the live clock position.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStart = 0
}
