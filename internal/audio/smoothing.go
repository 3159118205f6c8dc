package audio

import "time"

// Default filter parameters.
const (
	DefaultRelease       = 0.3
	DefaultHoldWindow    = 1000 * time.Millisecond
	DefaultPeakDecay     = 0.95
	DefaultClipThreshold = 0.95
	DefaultTickInterval  = 50 * time.Millisecond
)

// FilterParams configures the smoothing and peak-hold filter.
type FilterParams struct {
	Release       float64       // weight of the new sample while the level falls
	HoldWindow    time.Duration // time a peak is held before decaying
	PeakDecay     float64       // per-tick multiplier once the hold window elapsed
	ClipThreshold float64       // raw peak above which the signal counts as clipping
	SilenceFloor  float64
}

// DefaultFilterParams returns the parameters used by the meter.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		Release:       DefaultRelease,
		HoldWindow:    DefaultHoldWindow,
		PeakDecay:     DefaultPeakDecay,
		ClipThreshold: DefaultClipThreshold,
		SilenceFloor:  SilenceFloor,
	}
}

// Update applies one sample to the state and reports whether the raw peak is
// clipping. The sample timestamp is the filter clock. Update does not modify
// its arguments.
func (p FilterParams) Update(st LevelState, s Sample) (LevelState, bool) {
	rms := clamp01(s.RMS)
	peak := clamp01(s.Peak)

	// Rise instantly, fall smoothly.
	if rms >= st.Level {
		st.Level = rms
	} else {
		st.Level = st.Level*(1-p.Release) + rms*p.Release
	}
	if st.Level < p.SilenceFloor {
		st.Level = 0
	}

	if peak > st.PeakHold {
		st.PeakHold = peak
		st.PeakDecayStartMs = s.TimestampMs
	} else if s.TimestampMs-st.PeakDecayStartMs > p.HoldWindow.Milliseconds() {
		st.PeakHold *= p.PeakDecay
	}
	st.Level = clamp01(st.Level)
	st.PeakHold = clamp01(st.PeakHold)

	return st, peak > p.ClipThreshold
}
