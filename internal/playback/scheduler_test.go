package playback

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/internal/audio"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

type scheduledInterval struct {
	start time.Duration
	end   time.Duration
}

type fakeOutput struct {
	mu        sync.Mutex
	intervals []scheduledInterval
}

func (o *fakeOutput) PlayAt(buf *audio.Buffer, at time.Duration) {
	o.mu.Lock()
	o.intervals = append(o.intervals, scheduledInterval{start: at, end: at + buf.Duration()})
	o.mu.Unlock()
}

func bufferOfMs(t *testing.T, ms int) *audio.Buffer {
	t.Helper()
	return &audio.Buffer{
		Samples:    make([]int16, audio.PlaybackSampleRate*ms/1000),
		SampleRate: audio.PlaybackSampleRate,
	}
}

func TestSchedulerGaplessSequence(t *testing.T) {
	clock := &fakeClock{}
	output := &fakeOutput{}
	s := NewScheduler(clock, output, zap.NewNop())

	// Three buffers enqueued back to back before any playback progress.
	s.Enqueue(bufferOfMs(t, 100))
	s.Enqueue(bufferOfMs(t, 250))
	s.Enqueue(bufferOfMs(t, 50))

	if len(output.intervals) != 3 {
		t.Fatalf("Expected 3 scheduled intervals, got %d", len(output.intervals))
	}

	for i := 1; i < len(output.intervals); i++ {
		prev, cur := output.intervals[i-1], output.intervals[i]
		if cur.start < prev.end {
			t.Errorf("Interval %d overlaps previous: [%v,%v) then [%v,%v)", i, prev.start, prev.end, cur.start, cur.end)
		}
		if cur.start != prev.end {
			t.Errorf("Interval %d leaves a gap: previous ends %v, next starts %v", i, prev.end, cur.start)
		}
	}
}

func TestSchedulerStartsAtClockWhenIdle(t *testing.T) {
	clock := &fakeClock{}
	output := &fakeOutput{}
	s := NewScheduler(clock, output, zap.NewNop())

	s.Enqueue(bufferOfMs(t, 100))

	// Clock overtakes the schedule; the next buffer must start at the
	// live clock position, not in the past.
	clock.advance(500 * time.Millisecond)
	start := s.Enqueue(bufferOfMs(t, 100))

	if start != 500*time.Millisecond {
		t.Errorf("Expected start at clock position 500ms, got %v", start)
	}
}

func TestSchedulerMonotonicNextStart(t *testing.T) {
	clock := &fakeClock{}
	output := &fakeOutput{}
	s := NewScheduler(clock, output, zap.NewNop())

	var lastStart time.Duration
	for i := 0; i < 20; i++ {
		start := s.Enqueue(bufferOfMs(t, 10))
		if start < lastStart {
			t.Fatalf("Start time regressed at enqueue %d: %v after %v", i, start, lastStart)
		}
		lastStart = start
		if i%3 == 0 {
			clock.advance(25 * time.Millisecond)
		}
	}

	output.mu.Lock()
	defer output.mu.Unlock()
	for i := 1; i < len(output.intervals); i++ {
		if output.intervals[i].start < output.intervals[i-1].end {
			t.Errorf("Intervals %d and %d overlap", i-1, i)
		}
		if output.intervals[i].start < output.intervals[i-1].start {
			t.Errorf("Interval order does not match call order at %d", i)
		}
	}
}

func TestSchedulerSpeaking(t *testing.T) {
	clock := &fakeClock{}
	output := &fakeOutput{}
	s := NewScheduler(clock, output, zap.NewNop())

	if s.Speaking() {
		t.Error("Speaking should be false before anything is enqueued")
	}

	s.Enqueue(bufferOfMs(t, 200))
	if !s.Speaking() {
		t.Error("Speaking should be true while schedule is ahead of clock")
	}

	clock.advance(200 * time.Millisecond)
	if s.Speaking() {
		t.Error("Speaking should clear once the clock catches up")
	}
}

func TestSchedulerReset(t *testing.T) {
	clock := &fakeClock{}
	output := &fakeOutput{}
	s := NewScheduler(clock, output, zap.NewNop())

	s.Enqueue(bufferOfMs(t, 500))
	s.Reset()

	if s.Speaking() {
		t.Error("Speaking should be false after reset")
	}

	start := s.Enqueue(bufferOfMs(t, 100))
	if start != 0 {
		t.Errorf("Expected start at live clock after reset, got %v", start)
	}
}
