package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/entities"
	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/internal/audio"
	"github.com/neutralbridge/concierge/internal/playback"
	"github.com/neutralbridge/concierge/internal/trigger"
)

type fakeDevice struct {
	mu       sync.Mutex
	onFrame  func([]float64)
	startErr error
	started  int
	stopped  int
}

func (d *fakeDevice) Start(onFrame func(samples []float64)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		return d.startErr
	}
	d.onFrame = onFrame
	d.started++
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFrame = nil
	d.stopped++
	return nil
}

func (d *fakeDevice) emit(samples []float64) {
	d.mu.Lock()
	onFrame := d.onFrame
	d.mu.Unlock()
	if onFrame != nil {
		onFrame(samples)
	}
}

type fakeTransport struct {
	mu       sync.Mutex
	requests []ChunkRequest
	respond  func(ChunkRequest) (*entities.ModelResponse, error)
	gate     chan struct{}
}

func (t *fakeTransport) ForwardAudioChunk(ctx context.Context, req ChunkRequest) (*entities.ModelResponse, error) {
	t.mu.Lock()
	t.requests = append(t.requests, req)
	respond := t.respond
	gate := t.gate
	t.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if respond != nil {
		return respond(req)
	}
	return &entities.ModelResponse{}, nil
}

func (t *fakeTransport) requestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

type playbackProbe struct {
	mu     sync.Mutex
	played int
}

func (p *playbackProbe) PlayAt(buf *audio.Buffer, at time.Duration) {
	p.mu.Lock()
	p.played++
	p.mu.Unlock()
}

func (p *playbackProbe) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

type stoppedClock struct{}

func (stoppedClock) Now() time.Duration { return 0 }

type harness struct {
	device      *fakeDevice
	transport   *fakeTransport
	probe       *playbackProbe
	interpreter *trigger.Interpreter
	controller  *Controller

	mu       sync.Mutex
	errs     []string
	statuses []string
}

func (h *harness) errCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.errs)
}

func (h *harness) firstErr() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.errs) == 0 {
		return ""
	}
	return h.errs[0]
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		device:      &fakeDevice{},
		transport:   &fakeTransport{},
		probe:       &playbackProbe{},
		interpreter: trigger.NewInterpreter(zap.NewNop()),
	}
	scheduler := playback.NewScheduler(stoppedClock{}, h.probe, zap.NewNop())
	h.controller = NewController(Config{
		Device:      h.device,
		Transport:   h.transport,
		Scheduler:   scheduler,
		Interpreter: h.interpreter,
		Logger:      zap.NewNop(),
		Welcome:     []string{"line one", "line two"},
		StatusDelay: 0,
		OnStatus: func(line string) {
			h.mu.Lock()
			h.statuses = append(h.statuses, line)
			h.mu.Unlock()
		},
		OnError: func(msg string) {
			h.mu.Lock()
			h.errs = append(h.errs, msg)
			h.mu.Unlock()
		},
	})
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestOpenRunsWelcomeScriptThenConnects(t *testing.T) {
	h := newHarness(t)

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.controller.Close()

	if h.controller.State() != StateConnected {
		t.Errorf("Expected connected state, got %s", h.controller.State())
	}
	if len(h.statuses) != 2 || h.statuses[0] != "line one" || h.statuses[1] != "line two" {
		t.Errorf("Welcome script not played in order: %v", h.statuses)
	}
	if h.device.started != 1 {
		t.Errorf("Expected device started once, got %d", h.device.started)
	}
}

func TestOpenPermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.device.startErr = faults.Permission("microphone")

	err := h.controller.Open(context.Background())
	if err == nil {
		t.Fatal("Expected Open to fail when capture is denied")
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected idle after capture denial, got %s", h.controller.State())
	}
	if h.errCount() == 0 {
		t.Fatal("Expected a user-visible error message")
	}
	if h.firstErr() != faults.UserMessage(h.device.startErr) {
		t.Errorf("Unexpected user message: %q", h.firstErr())
	}
}

func TestCloseIdempotentFromEveryState(t *testing.T) {
	h := newHarness(t)

	// Idle: close twice, both no-ops.
	if err := h.controller.Close(); err != nil {
		t.Errorf("Close from idle failed: %v", err)
	}
	if err := h.controller.Close(); err != nil {
		t.Errorf("Second close from idle failed: %v", err)
	}
	if h.device.stopped != 0 {
		t.Errorf("Close from idle must not touch the device, stops: %d", h.device.stopped)
	}

	// Connected: close releases the device exactly once, second close is a no-op.
	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := h.controller.Close(); err != nil {
		t.Errorf("Close from connected failed: %v", err)
	}
	if h.controller.State() != StateIdle {
		t.Errorf("Expected idle after close, got %s", h.controller.State())
	}
	stops := h.device.stopped
	if err := h.controller.Close(); err != nil {
		t.Errorf("Repeated close failed: %v", err)
	}
	if h.device.stopped != stops {
		t.Errorf("Repeated close must not stop the device again: %d -> %d", stops, h.device.stopped)
	}
}

func TestAudioResponseScheduledNoPanels(t *testing.T) {
	h := newHarness(t)
	tone := (&audio.Buffer{Samples: make([]int16, 1600), SampleRate: audio.PlaybackSampleRate}).ToPCM16()
	h.transport.respond = func(ChunkRequest) (*entities.ModelResponse, error) {
		return &entities.ModelResponse{Audio: tone}, nil
	}

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.controller.Close()

	h.device.emit(make([]float64, 512))
	waitFor(t, "playback", func() bool { return h.probe.count() == 1 })

	state := h.interpreter.Snapshot()
	if state.Alert != nil {
		t.Error("No alert should appear for an audio-only response")
	}
	if state.OrderPhase != trigger.OrderPhaseIdle {
		t.Errorf("No order panel should open, got phase %s", state.OrderPhase)
	}
}

func TestAlertTriggerApplied(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = func(ChunkRequest) (*entities.ModelResponse, error) {
		return &entities.ModelResponse{
			Trigger: &entities.UITrigger{
				Kind:  entities.TriggerKindAlert,
				Alert: &entities.AlertData{Title: "X", Message: "Y"},
			},
		}, nil
	}

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.controller.Close()

	h.device.emit(make([]float64, 512))
	waitFor(t, "alert", func() bool { return h.interpreter.Snapshot().Alert != nil })

	alert := h.interpreter.Snapshot().Alert
	if alert.Title != "X" || alert.Message != "Y" {
		t.Errorf("Expected alert X/Y, got %s/%s", alert.Title, alert.Message)
	}
	if h.probe.count() != 0 {
		t.Error("No audio should be scheduled for a trigger-only response")
	}
}

func TestStaleResponseAfterCloseIsNoOp(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.transport.gate = gate
	tone := (&audio.Buffer{Samples: make([]int16, 160), SampleRate: audio.PlaybackSampleRate}).ToPCM16()
	h.transport.respond = func(ChunkRequest) (*entities.ModelResponse, error) {
		return &entities.ModelResponse{
			Audio: tone,
			Trigger: &entities.UITrigger{
				Kind:  entities.TriggerKindAlert,
				Alert: &entities.AlertData{Title: "stale", Message: "stale"},
			},
		}, nil
	}

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	h.device.emit(make([]float64, 512))
	waitFor(t, "in-flight request", func() bool { return h.transport.requestCount() == 1 })

	// Close while the response is still in flight, then release it.
	if err := h.controller.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	close(gate)

	time.Sleep(50 * time.Millisecond)
	if h.probe.count() != 0 {
		t.Error("Stale response must not schedule playback")
	}
	if h.interpreter.Snapshot().Alert != nil {
		t.Error("Stale response must not raise an alert")
	}
}

func TestMutedFramesNotForwarded(t *testing.T) {
	h := newHarness(t)

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.controller.Close()

	h.controller.SetMuted(true)
	h.device.emit(make([]float64, 512))
	h.device.emit(make([]float64, 512))
	time.Sleep(50 * time.Millisecond)

	if n := h.transport.requestCount(); n != 0 {
		t.Errorf("Muted frames must be dropped, but %d were forwarded", n)
	}

	h.controller.SetMuted(false)
	h.device.emit(make([]float64, 512))
	waitFor(t, "unmuted forward", func() bool { return h.transport.requestCount() == 1 })
}

func TestBackpressureDropsAndCounts(t *testing.T) {
	h := newHarness(t)

	frames := make(chan []float64, 1)
	frames <- make([]float64, 512) // queue already full

	epoch := h.controller.epoch.Load()
	h.controller.enqueueFrame(frames, epoch, make([]float64, 512))
	h.controller.enqueueFrame(frames, epoch, make([]float64, 512))

	if got := h.controller.DroppedFrames(); got != 2 {
		t.Errorf("Expected 2 dropped frames, got %d", got)
	}
}

func TestReopenAssignsFreshSession(t *testing.T) {
	h := newHarness(t)

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("First open failed: %v", err)
	}
	first := h.controller.SessionID()

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer h.controller.Close()

	if h.controller.SessionID() == first {
		t.Error("Reopen must mint a fresh session identifier")
	}
	if h.device.stopped == 0 {
		t.Error("Reopen must fully close the previous session first")
	}
	if h.controller.State() != StateConnected {
		t.Errorf("Expected connected after reopen, got %s", h.controller.State())
	}
}

func TestUpstreamFailureReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.transport.respond = func(ChunkRequest) (*entities.ModelResponse, error) {
		return nil, faults.Upstream(503, nil)
	}

	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	h.device.emit(make([]float64, 512))
	waitFor(t, "idle after failure", func() bool { return h.controller.State() == StateIdle })

	if h.errCount() == 0 {
		t.Error("Expected a user-visible error message")
	}
}
