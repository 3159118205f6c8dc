package audio

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSource struct {
	samples []float32
	err     error
	closed  atomic.Bool
}

func (f *fakeSource) Snapshot() ([]float32, error) { return f.samples, f.err }

func (f *fakeSource) Close() error {
	f.closed.Store(true)
	return nil
}

func testConfig() MeterConfig {
	cfg := DefaultMeterConfig()
	cfg.Interval = 5 * time.Millisecond
	return cfg
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession(testConfig())
	if s.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", s.State())
	}

	src := &fakeSource{samples: constant(WindowSize, 0.2)}
	frames := make(chan Frame, 64)
	err := s.Start(context.Background(), func(context.Context) (Source, error) {
		return src, nil
	}, func(f Frame) {
		select {
		case frames <- f:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.State() != StateCapturing {
		t.Fatalf("state = %s, want capturing", s.State())
	}

	select {
	case f := <-frames:
		if !approx(f.Level, 0.6) {
			t.Errorf("frame Level = %v, want 0.6", f.Level)
		}
		if f.ActiveBars != 12 || len(f.Bars) != DefaultBarCount {
			t.Errorf("frame bars = %d/%d", f.ActiveBars, len(f.Bars))
		}
	case <-time.After(time.Second):
		t.Fatal("no frame rendered")
	}

	if err := s.Start(context.Background(), nil, nil); !errors.Is(err, ErrAlreadyCapturing) {
		t.Errorf("second Start() error = %v, want ErrAlreadyCapturing", err)
	}

	s.Stop()
	if s.State() != StateIdle {
		t.Errorf("state after Stop = %s, want idle", s.State())
	}
	if !src.closed.Load() {
		t.Error("source not released on Stop")
	}

	// Stopping twice is a no-op.
	s.Stop()
}

func TestSessionDeviceUnavailable(t *testing.T) {
	s := NewSession(testConfig())
	errDenied := errors.New("permission denied")

	err := s.Start(context.Background(), func(context.Context) (Source, error) {
		return nil, errDenied
	}, nil)
	if !errors.Is(err, ErrDeviceUnavailable) || !errors.Is(err, errDenied) {
		t.Fatalf("Start() error = %v, want ErrDeviceUnavailable wrapping cause", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestSessionReadErrorMetersSilence(t *testing.T) {
	s := NewSession(testConfig())
	src := &fakeSource{err: errors.New("device lost")}
	frames := make(chan Frame, 1)

	err := s.Start(context.Background(), func(context.Context) (Source, error) {
		return src, nil
	}, func(f Frame) {
		select {
		case frames <- f:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer s.Stop()

	select {
	case f := <-frames:
		if f.Level != 0 || f.ActiveBars != 0 || f.Clipping {
			t.Errorf("frame = %+v, want silence", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame rendered")
	}
}

func TestSessionStopsWithContext(t *testing.T) {
	s := NewSession(testConfig())
	src := &fakeSource{}
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Start(ctx, func(context.Context) (Source, error) { return src, nil }, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for s.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("session did not return to idle after context cancel")
		}
		time.Sleep(time.Millisecond)
	}
	if !src.closed.Load() {
		t.Error("source not released")
	}
}

func TestStepSequence(t *testing.T) {
	cfg := DefaultMeterConfig()
	start := time.UnixMilli(10_000)

	var st LevelState
	st, f := cfg.Step(st, constant(WindowSize, 0.99), start)
	if !f.Clipping {
		t.Error("expected clipping for near full-scale input")
	}
	if f.ActiveBars != DefaultBarCount {
		t.Errorf("ActiveBars = %d, want %d", f.ActiveBars, DefaultBarCount)
	}

	now := start
	for range 25 {
		now = now.Add(DefaultTickInterval)
		st, f = cfg.Step(st, nil, now)
	}
	if f.Level != 0 {
		t.Errorf("Level after silence = %v, want 0", f.Level)
	}
	if f.Peak >= 0.99 {
		t.Errorf("Peak = %v, want decayed after hold window", f.Peak)
	}
	if f.Clipping {
		t.Error("clipping must follow the raw peak, not the held peak")
	}
}
