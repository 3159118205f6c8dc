package audio

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestStreamSourceWindow(t *testing.T) {
	s := NewStreamSource(4)

	s.Push([]float32{1, 2})
	got, err := s.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Snapshot() = %v, want [1 2]", got)
	}

	s.Push([]float32{3, 4, 5})
	got, _ = s.Snapshot()
	want := []float32{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Snapshot() = %v, want %v", got, want)
		}
	}

	s.Push([]float32{6, 7, 8, 9, 10, 11})
	got, _ = s.Snapshot()
	if got[0] != 8 || got[3] != 11 {
		t.Errorf("oversized push: Snapshot() = %v, want [8 9 10 11]", got)
	}
}

// fakeClock returns a settable clock for StreamSource.now.
func fakeClock(s *StreamSource) *time.Time {
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }
	return &now
}

func TestStreamSourceStaleSnapshotIsEmpty(t *testing.T) {
	s := NewStreamSource(8)
	now := fakeClock(s)
	if got, _ := s.Snapshot(); len(got) != 0 {
		t.Fatalf("empty source snapshot length = %d, want 0", len(got))
	}

	s.Push([]float32{0.5})
	if got, _ := s.Snapshot(); len(got) != 1 {
		t.Fatalf("first snapshot length = %d, want 1", len(got))
	}
	*now = now.Add(DefaultStaleAfter + time.Millisecond)
	if got, _ := s.Snapshot(); len(got) != 0 {
		t.Errorf("stale snapshot length = %d, want 0", len(got))
	}
}

func TestStreamSourceRepeatsWindowBetweenPushes(t *testing.T) {
	s := NewStreamSource(WindowSize)
	now := fakeClock(s)
	filter := DefaultFilterParams()
	var st LevelState

	// One push every other tick keeps the level steady.
	var levels []float64
	for tick := range 40 {
		if tick%2 == 0 {
			s.Push(constant(WindowSize, 0.2))
		}
		window, err := s.Snapshot()
		if err != nil {
			t.Fatal(err)
		}
		sample := Estimate(window)
		sample.TimestampMs = now.UnixMilli()
		st, _ = filter.Update(st, sample)
		levels = append(levels, st.Level)
		*now = now.Add(DefaultTickInterval)
	}

	last := levels[len(levels)-1]
	prev := levels[len(levels)-2]
	if last == 0 || math.Abs(last-prev) > 1e-6 {
		t.Errorf("level flickers between ticks: %v then %v", prev, last)
	}
}

func TestStreamSourceSetStaleAfter(t *testing.T) {
	s := NewStreamSource(8)
	now := fakeClock(s)
	s.SetStaleAfter(time.Second)
	s.Push([]float32{0.5})
	*now = now.Add(500 * time.Millisecond)
	if got, _ := s.Snapshot(); len(got) != 1 {
		t.Errorf("snapshot within stale window length = %d, want 1", len(got))
	}
}

func TestStreamSourceErrors(t *testing.T) {
	s := NewStreamSource(8)
	errRead := errors.New("read failed")
	s.Fail(errRead)

	if _, err := s.Snapshot(); !errors.Is(err, errRead) {
		t.Errorf("Snapshot() error = %v, want %v", err, errRead)
	}
	if _, err := s.Snapshot(); err != nil {
		t.Errorf("error must be reported once, got %v", err)
	}

	_ = s.Close()
	s.Push([]float32{1})
	if _, err := s.Snapshot(); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("after Close: error = %v, want ErrSourceClosed", err)
	}
}
