package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SessionState is the state of a capture session.
type SessionState string

const (
	// StateIdle indicates no capture is running.
	StateIdle SessionState = "idle"
	// StateCapturing indicates the tick loop is metering a source.
	StateCapturing SessionState = "capturing"
)

// Sentinel errors for capture sessions.
var (
	// ErrDeviceUnavailable is returned when the capture source cannot be opened.
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
	// ErrAlreadyCapturing is returned when starting a session that is capturing.
	ErrAlreadyCapturing = errors.New("session is already capturing")
)

// RenderFunc receives one frame per tick.
type RenderFunc func(Frame)

// OpenFunc acquires a capture source.
type OpenFunc func(ctx context.Context) (Source, error)

// MeterConfig holds the parameters of the metering pipeline.
type MeterConfig struct {
	Filter   FilterParams
	Bars     int
	Interval time.Duration
}

// DefaultMeterConfig returns the meter defaults.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{
		Filter:   DefaultFilterParams(),
		Bars:     DefaultBarCount,
		Interval: DefaultTickInterval,
	}
}

// Step runs one tick of the pipeline: estimate, filter and render.
func (c MeterConfig) Step(st LevelState, samples []float32, now time.Time) (LevelState, Frame) {
	sample := Estimate(samples)
	sample.TimestampMs = now.UnixMilli()

	st, clipping := c.Filter.Update(st, sample)
	m := Render(st.Level, st.PeakHold, clipping, c.Bars)

	return st, Frame{
		Type:       "levels",
		Level:      st.Level,
		Peak:       st.PeakHold,
		Clipping:   m.Clipping,
		ActiveBars: m.ActiveBars,
		Bars:       m.Bars,
		Sample:     sample,
	}
}

// Session meters one capture source at a time. Each capture starts from a
// reset LevelState. It is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	cfg    MeterConfig
	state  SessionState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSession returns an idle session.
func NewSession(cfg MeterConfig) *Session {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Bars <= 0 {
		cfg.Bars = DefaultBarCount
	}
	return &Session{cfg: cfg, state: StateIdle}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start opens a source and begins ticking. If the source cannot be opened the
// session stays idle and the error wraps ErrDeviceUnavailable.
func (s *Session) Start(ctx context.Context, open OpenFunc, render RenderFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateCapturing {
		return ErrAlreadyCapturing
	}

	src, err := open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state = StateCapturing
	s.cancel = cancel
	s.done = done

	go s.run(loopCtx, src, render, done)
	return nil
}

// Stop halts the tick loop and releases the source. Stopping an idle
// session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// run is the tick loop. It owns the level state exclusively.
func (s *Session) run(ctx context.Context, src Source, render RenderFunc, done chan struct{}) {
	defer func() {
		if err := src.Close(); err != nil {
			slog.Debug("failed to close audio source", "error", err)
		}
		s.mu.Lock()
		s.state = StateIdle
		s.cancel = nil
		s.done = nil
		s.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var st LevelState
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			samples, err := src.Snapshot()
			if err != nil {
				// Read failures meter as silence.
				slog.Debug("audio snapshot failed", "error", err)
				samples = nil
			}

			var frame Frame
			st, frame = s.cfg.Step(st, samples, now)
			if render != nil {
				render(frame)
			}
		}
	}
}
