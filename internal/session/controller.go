// Package session owns the lifecycle of one voice assistant session, from
// user-initiated open to close: capture, encoding cadence, forwarding,
// and routing of model responses to playback and UI triggers.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/neutralbridge/concierge/domain/faults"
	"github.com/neutralbridge/concierge/internal/audio"
	"github.com/neutralbridge/concierge/internal/playback"
	"github.com/neutralbridge/concierge/internal/trigger"
)

// State is the lifecycle state of the assistant session.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
)

const defaultQueueSize = 8

// defaultWelcome is the scripted status sequence played while the session
// connects. Purely cosmetic; the transition to connected is gated on the
// capture device, not on these lines.
var defaultWelcome = []string{
	"Establishing secure channel...",
	"Loading strategic briefing profile...",
	"Calibrating voice interface...",
	"Concierge ready.",
}

// Config wires a Controller. Device and Transport are required; the rest
// default sensibly.
type Config struct {
	Device      CaptureDevice
	Transport   Transport
	Scheduler   *playback.Scheduler
	Interpreter *trigger.Interpreter
	Logger      *zap.Logger

	// Welcome overrides the scripted status lines; StatusDelay is the
	// fixed pause between them.
	Welcome     []string
	StatusDelay time.Duration

	// QueueSize bounds the capture queue between the frame producer and
	// the encode-and-send consumer. When the consumer falls behind,
	// newest frames are dropped and counted.
	QueueSize int

	// OnStatus receives welcome script lines. OnError receives the short
	// user-visible message when the session fails back to idle.
	OnStatus func(line string)
	OnError  func(message string)
}

// Controller owns the state machine for one assistant session. The
// microphone and the playback schedule are reachable only through it; no
// device handle escapes. Only one session is live per controller: opening
// again first closes the previous session completely.
type Controller struct {
	device      CaptureDevice
	transport   Transport
	scheduler   *playback.Scheduler
	interpreter *trigger.Interpreter
	logger      *zap.Logger

	welcome     []string
	statusDelay time.Duration
	queueSize   int
	onStatus    func(string)
	onError     func(string)

	mu        sync.Mutex
	state     State
	muted     bool
	sessionID string
	cancel    context.CancelFunc
	consumers sync.WaitGroup

	// epoch increments on every open and close; response handlers compare
	// against it so anything arriving for a previous session is a no-op.
	epoch   atomic.Uint64
	seq     atomic.Uint64
	dropped atomic.Uint64
}

// NewController creates an idle controller.
func NewController(cfg Config) *Controller {
	welcome := cfg.Welcome
	if welcome == nil {
		welcome = defaultWelcome
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	onStatus := cfg.OnStatus
	if onStatus == nil {
		onStatus = func(string) {}
	}
	onError := cfg.OnError
	if onError == nil {
		onError = func(string) {}
	}
	return &Controller{
		device:      cfg.Device,
		transport:   cfg.Transport,
		scheduler:   cfg.Scheduler,
		interpreter: cfg.Interpreter,
		logger:      logger,
		welcome:     welcome,
		statusDelay: cfg.StatusDelay,
		queueSize:   queueSize,
		onStatus:    onStatus,
		onError:     onError,
		state:       StateIdle,
	}
}

// Open starts a new session: idle -> connecting, welcome script, capture
// acquisition, then connecting -> connected. A session already open is
// closed first. On capture denial the session returns to idle and the
// error is surfaced through OnError; the user must reopen, there is no
// automatic retry.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		if err := c.Close(); err != nil {
			return err
		}
		c.mu.Lock()
	}

	c.state = StateConnecting
	c.sessionID = uuid.NewString()
	c.seq.Store(0)
	c.dropped.Store(0)
	epoch := c.epoch.Add(1)
	sessionID := c.sessionID
	c.mu.Unlock()

	c.logger.Info("Opening assistant session", zap.String("sessionID", sessionID))

	for _, line := range c.welcome {
		c.onStatus(line)
		if c.statusDelay > 0 {
			time.Sleep(c.statusDelay)
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	frames := make(chan []float64, c.queueSize)

	if err := c.device.Start(func(samples []float64) {
		c.enqueueFrame(frames, epoch, samples)
	}); err != nil {
		cancel()
		c.failToIdle(err)
		return err
	}

	c.mu.Lock()
	if c.epoch.Load() != epoch {
		// Closed while we were acquiring the device.
		c.mu.Unlock()
		cancel()
		_ = c.device.Stop()
		return nil
	}
	c.cancel = cancel
	c.state = StateConnected
	c.consumers.Add(1)
	c.mu.Unlock()

	go c.consume(sessionCtx, frames, epoch, sessionID)

	c.logger.Info("Assistant session connected", zap.String("sessionID", sessionID))
	return nil
}

// Close releases the capture device, stops the consumer, resets playback
// and UI state, and returns the session to idle. Idempotent, and safe from
// any state; every exit path funnels through here.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == StateIdle && c.cancel == nil {
		c.mu.Unlock()
		return nil
	}
	c.epoch.Add(1)
	cancel := c.cancel
	c.cancel = nil
	c.state = StateIdle
	c.muted = false
	sessionID := c.sessionID
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	err := c.device.Stop()
	c.consumers.Wait()

	if c.scheduler != nil {
		c.scheduler.Reset()
	}
	if c.interpreter != nil {
		c.interpreter.Reset()
	}

	c.logger.Info("Assistant session closed", zap.String("sessionID", sessionID))
	return err
}

// SetMuted flips the mute flag. Muted frames are still captured but are
// dropped at this boundary, never forwarded.
func (c *Controller) SetMuted(muted bool) {
	c.mu.Lock()
	c.muted = muted
	c.mu.Unlock()
}

// Muted reports the mute flag.
func (c *Controller) Muted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.muted
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the identifier of the current (or last) session.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// DroppedFrames reports how many capture frames were discarded because the
// encode-and-send consumer fell behind.
func (c *Controller) DroppedFrames() uint64 {
	return c.dropped.Load()
}

// enqueueFrame moves a captured frame onto the bounded queue. Drop-newest
// under backpressure: the queue never blocks the capture callback.
func (c *Controller) enqueueFrame(frames chan []float64, epoch uint64, samples []float64) {
	if c.epoch.Load() != epoch {
		return
	}
	select {
	case frames <- samples:
	default:
		n := c.dropped.Add(1)
		c.logger.Warn("Capture queue full, dropping frame", zap.Uint64("dropped", n))
	}
}

// consume drains the capture queue, encoding and forwarding each frame.
// Forwarding does not block the queue: each send runs in its own goroutine,
// so several requests may be in flight and responses may arrive out of
// order. The epoch guard keeps stale responses from touching a newer
// session.
func (c *Controller) consume(ctx context.Context, frames <-chan []float64, epoch uint64, sessionID string) {
	defer c.consumers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case samples := <-frames:
			c.mu.Lock()
			muted := c.muted
			c.mu.Unlock()
			if muted {
				continue
			}
			req := ChunkRequest{
				SessionID: sessionID,
				Seq:       c.seq.Add(1),
				Chunk:     audio.Encode(samples),
			}
			go c.forward(ctx, req, epoch)
		}
	}
}

// forward sends one chunk and routes the response. Exactly one attempt; a
// response landing after the session changed is discarded.
func (c *Controller) forward(ctx context.Context, req ChunkRequest, epoch uint64) {
	resp, err := c.transport.ForwardAudioChunk(ctx, req)

	if c.epoch.Load() != epoch {
		c.logger.Debug("Discarding stale response",
			zap.String("sessionID", req.SessionID),
			zap.Uint64("seq", req.Seq))
		return
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var decodeErr *faults.DecodeError
		if errors.As(err, &decodeErr) {
			// Malformed audio payload: skip playback, session continues.
			c.logger.Warn("Dropping undecodable response audio",
				zap.Uint64("seq", req.Seq), zap.Error(err))
			return
		}
		c.failToIdle(err)
		return
	}

	if resp == nil {
		return
	}
	if resp.Trigger != nil && c.interpreter != nil {
		c.interpreter.Apply(resp.Trigger)
	}
	if resp.HasAudio() && c.scheduler != nil {
		buf, err := audio.FromPCM16(resp.Audio, audio.PlaybackSampleRate)
		if err != nil {
			c.logger.Warn("Dropping undecodable response audio",
				zap.Uint64("seq", req.Seq), zap.Error(err))
			return
		}
		c.scheduler.Enqueue(buf)
	}
}

// failToIdle closes the session after an unrecoverable error and surfaces
// a short non-technical message. Never fatal to the process.
func (c *Controller) failToIdle(err error) {
	c.logger.Error("Assistant session failed", zap.Error(err))
	c.onError(faults.UserMessage(err))
	if closeErr := c.Close(); closeErr != nil {
		c.logger.Warn("Error while closing failed session", zap.Error(closeErr))
	}
}
