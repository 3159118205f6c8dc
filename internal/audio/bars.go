package audio

import "math"

// DefaultBarCount is the number of bars in the meter.
const DefaultBarCount = 20

// Zone boundaries as a fraction of the meter width.
const (
	dangerPosition  = 0.85
	warningPosition = 0.65
)

// Relative bar heights.
const (
	idleBarHeight = 0.15
	minLitHeight  = 0.3
)

// Meter is a rendered bar meter.
type Meter struct {
	ActiveBars int
	Clipping   bool
	Bars       []Bar
}

// Render maps a smoothed level and held peak to n bars. It is a pure
// function: equal inputs always produce equal meters.
func Render(level, peakHold float64, clipping bool, n int) Meter {
	if n <= 0 {
		return Meter{Clipping: clipping}
	}

	active := int(math.Round(clamp01(level) * float64(n)))
	peakIndex := int(math.Round(clamp01(peakHold)*float64(n))) - 1

	bars := make([]Bar, n)
	for i := range bars {
		pos := float64(i) / float64(n)
		lit := i < active
		height := idleBarHeight
		if lit {
			height = minLitHeight + pos*(1-minLitHeight)
		}
		bars[i] = Bar{
			Lit:    lit,
			Peak:   i == peakIndex,
			Zone:   zoneAt(pos),
			Height: height,
		}
	}

	return Meter{
		ActiveBars: active,
		Clipping:   clipping,
		Bars:       bars,
	}
}

// zoneAt returns the color band for a normalized bar position.
func zoneAt(pos float64) Zone {
	switch {
	case pos > dangerPosition:
		return ZoneDanger
	case pos > warningPosition:
		return ZoneWarning
	default:
		return ZoneSafe
	}
}
