package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		samples  []float32
		wantRMS  float64
		wantPeak float64
	}{
		{"empty buffer", nil, 0, 0},
		{"digital silence", make([]float32, 2048), 0, 0},
		{"below silence floor", constant(2048, 0.003), 0, 0.003},
		{"quiet constant", constant(2048, 0.1), 0.3, 0.1},
		{"gain saturates", constant(2048, 0.5), 1, 0.5},
		{"full scale negative", constant(2048, -1), 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Estimate(tt.samples)
			if !approx(got.RMS, tt.wantRMS) {
				t.Errorf("RMS = %v, want %v", got.RMS, tt.wantRMS)
			}
			if !approx(got.Peak, tt.wantPeak) {
				t.Errorf("Peak = %v, want %v", got.Peak, tt.wantPeak)
			}
		})
	}
}

func TestEstimateBounds(t *testing.T) {
	samples := []float32{1.7, -2.5, 0.2}
	got := Estimate(samples)
	if got.RMS < 0 || got.RMS > 1 || got.Peak < 0 || got.Peak > 1 {
		t.Fatalf("Estimate() = %+v, want values in [0,1]", got)
	}
	if got.Peak != 1 {
		t.Errorf("Peak = %v, want 1 for out-of-range input", got.Peak)
	}
}

func TestDecodeS16LE(t *testing.T) {
	buf := make([]byte, 0, 12)
	for _, v := range []int16{16384, -16384, 32767, 32767, -32768, 0} {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
	}

	mono := DecodeS16LE(buf, 1)
	if len(mono) != 6 {
		t.Fatalf("mono length = %d, want 6", len(mono))
	}
	if !approx(float64(mono[0]), 0.5) || !approx(float64(mono[4]), -1) {
		t.Errorf("mono = %v", mono)
	}

	stereo := DecodeS16LE(buf, 2)
	if len(stereo) != 3 {
		t.Fatalf("stereo length = %d, want 3", len(stereo))
	}
	if !approx(float64(stereo[0]), 0) {
		t.Errorf("stereo[0] = %v, want 0", stereo[0])
	}

	if got := DecodeS16LE(buf[:3], 1); len(got) != 1 {
		t.Errorf("partial frame: length = %d, want 1", len(got))
	}
}

func TestDecodeF32LE(t *testing.T) {
	var buf []byte
	for _, v := range []float32{0.25, float32(math.NaN()), float32(math.Inf(1)), -0.5} {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}

	got := DecodeF32LE(buf)
	want := []float32{0.25, 0, 0, -0.5}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func constant(n int, v float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}
