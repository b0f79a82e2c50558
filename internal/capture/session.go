// Package capture runs a gated face capture session: it opens a camera,
// polls frames through a face detector, applies confidence, quality and
// position gates and hands the captured embedding to a submit function.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/logging"
)

var (
	// ErrCancelled is returned when a session is cancelled before a face was captured.
	ErrCancelled = errors.New("capture cancelled")
	// ErrSessionUsed is returned when Run is called on a session that already ran.
	ErrSessionUsed = errors.New("capture session already used")
)

// Flow selects the gating rules of a session.
type Flow int

const (
	// FlowLogin captures on the first detection passing the confidence gate.
	FlowLogin Flow = iota
	// FlowRegistration adds the quality and guide circle gates and a countdown.
	FlowRegistration
)

func (f Flow) String() string {
	if f == FlowRegistration {
		return "registration"
	}
	return "login"
}

// State is the lifecycle state of a session.
type State int

const (
	StateIdle State = iota
	StateCameraStarting
	StateCameraError
	StateScanning
	StatePositioned
	StateCaptured
	StateSuccess
	StateFailure
)

var stateNames = [...]string{"idle", "camera_starting", "camera_error", "scanning", "positioned", "captured", "success", "failure"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the feedback shown while a session runs.
type Status string

const (
	StatusStarting    Status = "starting"
	StatusNoFace      Status = "no_face"
	StatusLowQuality  Status = "low_quality"
	StatusReposition  Status = "reposition"
	StatusPositioned  Status = "positioned"
	StatusCountdown   Status = "countdown"
	StatusCaptured    Status = "captured"
	StatusCameraError Status = "camera_error"
	StatusSuccess     Status = "success"
	StatusFailure     Status = "failure"
	StatusCancelled   Status = "cancelled"
)

// Message returns the text shown to the person in front of the camera.
func (s Status) Message() string {
	switch s {
	case StatusNoFace:
		return constants.MsgNoFace
	case StatusLowQuality:
		return constants.MsgLowQuality
	case StatusReposition:
		return constants.MsgReposition
	case StatusPositioned, StatusCountdown:
		return constants.MsgStayStill
	case StatusCaptured:
		return constants.MsgCaptured
	case StatusCameraError:
		return constants.MsgCameraError
	case StatusFailure:
		return constants.MsgMatchFailed
	}
	return ""
}

// Event reports a state change or a poll outcome.
type Event struct {
	State     State
	Status    Status
	Countdown int     // remaining ticks, only for StatusCountdown
	Score     float64 // detector score of the evaluated face, if any
	At        time.Time
}

// Capture is the face handed to the submit function.
type Capture struct {
	Embedding   embedding.Vector
	Score       float64
	Box         facematch.Box
	FrameWidth  int
	FrameHeight int
	CapturedAt  time.Time
}

// SubmitFunc persists or matches a capture. A nil error ends the session in
// StateSuccess, anything else in StateFailure.
type SubmitFunc func(ctx context.Context, c *Capture) error

// Options tune the gating and timing of a session.
type Options struct {
	Flow               Flow
	PollInterval       time.Duration
	DetectTimeout      time.Duration
	CountdownTicks     int
	TickDuration       time.Duration
	MinConfidence      float64
	MinQuality         float64
	GuideRadiusPercent float64
	GuideTolerance     float64
}

// DefaultOptions returns the built-in options for flow.
func DefaultOptions(flow Flow) Options {
	return Options{
		Flow:               flow,
		PollInterval:       constants.DefaultDetectionInterval,
		DetectTimeout:      constants.DefaultDetectTimeout,
		CountdownTicks:     constants.DefaultCountdownTicks,
		TickDuration:       constants.DefaultCountdownTick,
		MinConfidence:      constants.DefaultMinConfidence,
		MinQuality:         constants.DefaultMinQualityScore,
		GuideRadiusPercent: constants.DefaultGuideRadiusPercent,
		GuideTolerance:     constants.DefaultGuideTolerance,
	}
}

// OptionsFromConfig builds options for flow from the capture configuration.
func OptionsFromConfig(cfg config.CaptureConfig, flow Flow) Options {
	opts := DefaultOptions(flow)
	if d := cfg.DetectionInterval(); d > 0 {
		opts.PollInterval = d
	}
	if d := cfg.DetectTimeout(); d > 0 {
		opts.DetectTimeout = d
	}
	if cfg.CountdownTicks > 0 {
		opts.CountdownTicks = cfg.CountdownTicks
	}
	if d := cfg.CountdownTick(); d > 0 {
		opts.TickDuration = d
	}
	if cfg.MinConfidence > 0 {
		opts.MinConfidence = cfg.MinConfidence
	}
	if cfg.MinQuality > 0 {
		opts.MinQuality = cfg.MinQuality
	}
	if cfg.GuideRadiusPercent > 0 {
		opts.GuideRadiusPercent = cfg.GuideRadiusPercent
	}
	if cfg.GuideTolerance > 0 {
		opts.GuideTolerance = cfg.GuideTolerance
	}
	return opts
}

// Evaluate applies the gates of the flow to a single detection.
// It returns StatusPositioned when every gate passed.
func (o Options) Evaluate(det *Detection, frame Frame) Status {
	if det == nil {
		return StatusNoFace
	}
	if det.Score < o.MinConfidence {
		return StatusLowQuality
	}
	if o.Flow != FlowRegistration {
		return StatusPositioned
	}
	if det.Score < o.MinQuality {
		return StatusLowQuality
	}
	guide := facematch.NewGuideCircle(frame.Width, frame.Height, o.GuideRadiusPercent, o.GuideTolerance)
	if !guide.Contains(det.Box.Center()) {
		return StatusReposition
	}
	return StatusPositioned
}

// Session is a single-use, cancellable capture task. It owns its camera
// stream and timers; none of them outlive Run.
type Session struct {
	id       string
	camera   Camera
	detector Detector
	opts     Options
	logger   *slog.Logger
	events   chan Event

	mu        sync.Mutex
	state     State
	started   bool
	cancelled bool
	cancel    context.CancelFunc

	timers atomic.Int32
	now    func() time.Time
}

// NewSession creates a session. A nil logger discards log output.
func NewSession(camera Camera, detector Detector, opts Options, logger *slog.Logger) *Session {
	id := uuid.New().String()
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultDetectionInterval
	}
	if opts.TickDuration <= 0 {
		opts.TickDuration = constants.DefaultCountdownTick
	}
	return &Session{
		id:       id,
		camera:   camera,
		detector: detector,
		opts:     opts,
		logger:   logger.With("session_id", id, "flow", opts.Flow.String()),
		events:   make(chan Event, constants.EventChannelBuffer),
		now:      time.Now,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Options returns the options the session runs with.
func (s *Session) Options() Options { return s.opts }

// Events returns the status channel. It is closed when Run returns.
// Events are dropped when the buffer is full.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveTimers returns the number of running poll and countdown tickers.
func (s *Session) ActiveTimers() int { return int(s.timers.Load()) }

// Cancel stops the session. It is safe to call from any goroutine, any number
// of times, before or during Run.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run opens the camera, scans until a face passes the gates and hands the
// capture to submit. It blocks until the session ends. The camera stream is
// released and all timers are stopped when it returns.
func (s *Session) Run(ctx context.Context, submit SubmitFunc) (*Capture, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, ErrSessionUsed
	}
	s.started = true
	s.cancel = cancel
	cancelled := s.cancelled
	s.mu.Unlock()
	defer close(s.events)

	if cancelled {
		s.setState(StateIdle, StatusCancelled)
		return nil, ErrCancelled
	}

	s.setState(StateCameraStarting, StatusStarting)
	stream, err := s.camera.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.abort(ctx)
		}
		s.logger.Warn("camera unavailable", "error", err)
		s.setState(StateCameraError, StatusCameraError)
		s.setState(StateIdle, StatusCameraError)
		return nil, fmt.Errorf("open camera: %w", err)
	}
	defer stream.Stop()

	s.setState(StateScanning, StatusNoFace)
	capture, err := s.scan(ctx, stream)
	stream.Stop()
	if err != nil {
		return nil, err
	}

	s.setState(StateCaptured, StatusCaptured)
	s.logger.Info("face captured", "score", capture.Score)

	if submit == nil {
		s.setState(StateSuccess, StatusSuccess)
		s.setState(StateIdle, StatusSuccess)
		return capture, nil
	}
	if err := submit(ctx, capture); err != nil {
		s.logger.Info("submit failed", "error", err)
		s.setState(StateFailure, StatusFailure)
		s.setState(StateIdle, StatusFailure)
		return capture, err
	}

	s.setState(StateSuccess, StatusSuccess)
	s.setState(StateIdle, StatusSuccess)
	return capture, nil
}

// scan polls the stream until the gates pass. Detection runs inline on this
// goroutine so polls never overlap; ticks arriving meanwhile are dropped.
func (s *Session) scan(ctx context.Context, stream Stream) (*Capture, error) {
	poll := s.startTicker(s.opts.PollInterval)
	defer poll.stop()

	for {
		select {
		case <-ctx.Done():
			return nil, s.abort(ctx)
		case <-poll.C():
		}

		frame, det, err := s.poll(ctx, stream)
		if ctx.Err() != nil {
			return nil, s.abort(ctx)
		}
		if err != nil {
			s.logger.Warn("camera stream ended", "error", err)
			s.setState(StateCameraError, StatusCameraError)
			s.setState(StateIdle, StatusCameraError)
			return nil, fmt.Errorf("read frame: %w", err)
		}

		status := s.opts.Evaluate(det, frame)
		score := 0.0
		if det != nil {
			score = det.Score
		}
		s.logger.Debug("poll", "status", string(status), "score", score)

		if status != StatusPositioned {
			s.emit(Event{State: StateScanning, Status: status, Score: score})
			continue
		}

		s.setState(StatePositioned, StatusPositioned)
		if s.opts.Flow == FlowRegistration {
			poll.stop()
			if err := s.countdown(ctx); err != nil {
				return nil, err
			}
		}
		return &Capture{
			Embedding:   det.Embedding,
			Score:       det.Score,
			Box:         det.Box,
			FrameWidth:  frame.Width,
			FrameHeight: frame.Height,
			CapturedAt:  s.now(),
		}, nil
	}
}

// poll grabs and evaluates one frame. Detection errors count as no face; only
// a stopped stream is returned as an error.
func (s *Session) poll(ctx context.Context, stream Stream) (Frame, *Detection, error) {
	if !stream.Live() {
		return Frame{}, nil, ErrStreamStopped
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrStreamStopped) {
			return Frame{}, nil, err
		}
		s.logger.Debug("frame unavailable", "error", err)
		return Frame{}, nil, nil
	}

	dctx := ctx
	if s.opts.DetectTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, s.opts.DetectTimeout)
		defer cancel()
	}

	det, err := s.detect(dctx, frame)
	if err != nil {
		s.logger.Debug("detection failed", "error", err)
		return frame, nil, nil
	}
	return frame, det, nil
}

func (s *Session) detect(ctx context.Context, frame Frame) (det *Detection, err error) {
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("detector panic: %v", r)
		}
	}()
	return s.detector.Detect(ctx, frame)
}

func (s *Session) countdown(ctx context.Context) error {
	tick := s.startTicker(s.opts.TickDuration)
	defer tick.stop()

	for remaining := s.opts.CountdownTicks; remaining > 0; remaining-- {
		s.emit(Event{State: StatePositioned, Status: StatusCountdown, Countdown: remaining})
		select {
		case <-ctx.Done():
			return s.abort(ctx)
		case <-tick.C():
		}
	}
	return nil
}

// abort moves a cancelled session back to idle.
func (s *Session) abort(ctx context.Context) error {
	s.setState(StateIdle, StatusCancelled)
	s.mu.Lock()
	byUser := s.cancelled
	s.mu.Unlock()
	if byUser {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}

func (s *Session) setState(state State, status Status) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev != state {
		s.logger.Debug("state changed", "from", prev.String(), "to", state.String())
	}
	s.emit(Event{State: state, Status: status})
}

func (s *Session) emit(ev Event) {
	ev.At = s.now()
	select {
	case s.events <- ev:
	default:
	}
}

// sessionTicker is a ticker counted in ActiveTimers. stop is idempotent.
type sessionTicker struct {
	t    *time.Ticker
	once sync.Once
	s    *Session
}

func (s *Session) startTicker(d time.Duration) *sessionTicker {
	s.timers.Add(1)
	return &sessionTicker{t: time.NewTicker(d), s: s}
}

func (t *sessionTicker) C() <-chan time.Time { return t.t.C }

func (t *sessionTicker) stop() {
	t.once.Do(func() {
		t.t.Stop()
		t.s.timers.Add(-1)
	})
}
