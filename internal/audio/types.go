package audio

// Sample is a single tick of level measurement. It is created every tick and
// consumed immediately.
type Sample struct {
	// RMS is the gain-scaled root-mean-square level in [0,1].
	RMS float64 `json:"rms" msgpack:"rms"`
	// Peak is the largest absolute sample value in [0,1].
	Peak float64 `json:"peak" msgpack:"peak"`
	// TimestampMs is the Unix time of the measurement in milliseconds.
	TimestampMs int64 `json:"timestamp_ms" msgpack:"timestamp_ms"`
}

// LevelState is the smoothing and peak-hold state of one capture session.
// The zero value is the reset state.
type LevelState struct {
	// Level is the smoothed display level in [0,1].
	Level float64 `json:"level"`
	// PeakHold is the held peak in [0,1].
	PeakHold float64 `json:"peak_hold"`
	// PeakDecayStartMs is when PeakHold was last raised.
	PeakDecayStartMs int64 `json:"peak_decay_start_ms"`
}

// Zone is the color band of a meter bar.
type Zone string

const (
	// ZoneSafe is the normal operating range.
	ZoneSafe Zone = "safe"
	// ZoneWarning is the attention range.
	ZoneWarning Zone = "warning"
	// ZoneDanger is the clip range.
	ZoneDanger Zone = "danger"
)

// Bar is one element of the rendered meter.
type Bar struct {
	Lit    bool    `json:"lit" msgpack:"lit"`
	Peak   bool    `json:"peak,omitzero" msgpack:"peak,omitempty"`
	Zone   Zone    `json:"zone" msgpack:"zone"`
	Height float64 `json:"height" msgpack:"height"`
}

// Frame is what a session hands to its render callback on every tick.
type Frame struct {
	Type       string  `json:"type" msgpack:"type"`
	Level      float64 `json:"level" msgpack:"level"`
	Peak       float64 `json:"peak" msgpack:"peak"`
	Clipping   bool    `json:"clipping" msgpack:"clipping"`
	ActiveBars int     `json:"active_bars" msgpack:"active_bars"`
	Bars       []Bar   `json:"bars" msgpack:"bars"`
	Sample     Sample  `json:"sample" msgpack:"sample"`
}

// Device represents an available audio input device.
type Device struct {
	// ID is the device identifier.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
}
