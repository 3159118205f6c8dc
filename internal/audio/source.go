package audio

import (
	"errors"
	"sync"
	"time"
)

// ErrSourceClosed is returned when reading from a closed source.
var ErrSourceClosed = errors.New("audio source closed")

// DefaultStaleAfter is how long a pushed window keeps being metered without
// new samples.
const DefaultStaleAfter = 2 * DefaultTickInterval

// Source is a live capture handle that the meter samples once per tick.
type Source interface {
	// Snapshot returns the most recent window of mono samples in [-1,1].
	// It returns an empty slice when no audio arrived recently.
	Snapshot() ([]float32, error)
	// Close releases the underlying device or connection.
	Close() error
}

// StreamSource is a Source fed by pushed samples, such as PCM frames arriving
// over a WebSocket. It keeps the last window of samples in a ring buffer.
// It is safe for concurrent use.
type StreamSource struct {
	mu         sync.Mutex
	ring       []float32
	pos        int // next write index
	filled     int // valid samples in ring
	lastPush   time.Time
	staleAfter time.Duration
	now        func() time.Time
	closed     bool
	err        error
}

// NewStreamSource returns a StreamSource holding up to window samples.
func NewStreamSource(window int) *StreamSource {
	if window <= 0 {
		window = WindowSize
	}
	return &StreamSource{
		ring:       make([]float32, window),
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// SetStaleAfter sets how long the last window is repeated once pushes stop.
// Non-positive values keep the default.
func (s *StreamSource) SetStaleAfter(d time.Duration) {
	if d <= 0 {
		d = DefaultStaleAfter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleAfter = d
}

// Push appends samples, discarding the oldest when the window is full.
func (s *StreamSource) Push(samples []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(samples) == 0 {
		return
	}

	n := len(s.ring)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, v := range samples {
		s.ring[s.pos] = v
		s.pos = (s.pos + 1) % n
	}
	s.filled = min(s.filled+len(samples), n)
	s.lastPush = s.now()
}

// Fail records a read error that is reported by the next snapshot.
func (s *StreamSource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Snapshot returns the buffered window in chronological order. The same
// window is returned on every tick until it goes stale, then nothing.
func (s *StreamSource) Snapshot() ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return nil, err
	}
	if s.filled == 0 || s.now().Sub(s.lastPush) > s.staleAfter {
		return nil, nil
	}

	n := len(s.ring)
	out := make([]float32, s.filled)
	start := (s.pos - s.filled + n) % n
	for i := range out {
		out[i] = s.ring[(start+i)%n]
	}
	return out, nil
}

// Close marks the source closed. Further pushes are ignored.
func (s *StreamSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
