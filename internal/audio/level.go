// Package audio provides level metering for voice memo capture: level
// estimation, smoothing with peak hold, bar rendering and capture sessions.
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// Gain scales raw RMS so that normal speech fills the meter.
	Gain = 3.0
	// SilenceFloor is the level below which audio is treated as silence.
	SilenceFloor = 0.01
	// MaxSampleValue is the maximum absolute value for 16-bit signed audio.
	MaxSampleValue = 32768.0
	// WindowSize is the number of samples analyzed per tick.
	WindowSize = 2048
)

// Estimate computes the level of a buffer of normalized samples in [-1,1].
// An empty buffer yields a zero sample.
func Estimate(samples []float32) Sample {
	if len(samples) == 0 {
		return Sample{}
	}

	var sumSquares, peak float64
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
		if abs := math.Abs(v); abs > peak {
			peak = abs
		}
	}

	rms := math.Sqrt(sumSquares/float64(len(samples))) * Gain
	rms = clamp01(rms)
	if rms < SilenceFloor {
		rms = 0
	}

	return Sample{
		RMS:  rms,
		Peak: clamp01(peak),
	}
}

// DecodeS16LE converts interleaved S16LE PCM to mono samples in [-1,1] by
// averaging channels. A trailing partial frame is ignored.
func DecodeS16LE(buf []byte, channels int) []float32 {
	if channels < 1 {
		channels = 1
	}
	frameSize := 2 * channels
	frames := len(buf) / frameSize
	out := make([]float32, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			off := i*frameSize + 2*c
			sum += float64(int16(binary.LittleEndian.Uint16(buf[off:])))
		}
		out[i] = float32(sum / float64(channels) / MaxSampleValue)
	}
	return out
}

// DecodeF32LE converts little-endian float32 samples, as sent by browsers.
// Non-finite values are replaced with zero.
func DecodeF32LE(buf []byte) []float32 {
	out := make([]float32, len(buf)/4)
	for i := range out {
		v := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			v = 0
		}
		out[i] = v
	}
	return out
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
