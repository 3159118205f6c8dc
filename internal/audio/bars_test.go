package audio

import (
	"reflect"
	"testing"
)

func TestRenderActiveBars(t *testing.T) {
	tests := []struct {
		level float64
		want  int
	}{
		{0, 0},
		{0.024, 0},
		{0.025, 1},
		{0.5, 10},
		{1, 20},
		{1.5, 20},
	}
	for _, tt := range tests {
		m := Render(tt.level, 0, false, DefaultBarCount)
		if m.ActiveBars != tt.want {
			t.Errorf("level %v: ActiveBars = %d, want %d", tt.level, m.ActiveBars, tt.want)
		}
		lit := 0
		for _, b := range m.Bars {
			if b.Lit {
				lit++
			}
		}
		if lit != m.ActiveBars {
			t.Errorf("level %v: %d lit bars, ActiveBars %d", tt.level, lit, m.ActiveBars)
		}
	}
}

func TestRenderZones(t *testing.T) {
	m := Render(1, 0, false, DefaultBarCount)

	// 20 bars: positions 0..0.65 safe, 0.70..0.85 warning, 0.90+ danger.
	want := map[int]Zone{0: ZoneSafe, 13: ZoneSafe, 14: ZoneWarning, 17: ZoneWarning, 18: ZoneDanger, 19: ZoneDanger}
	for i, z := range want {
		if m.Bars[i].Zone != z {
			t.Errorf("bar %d zone = %s, want %s", i, m.Bars[i].Zone, z)
		}
	}
}

func TestRenderPeakIndicator(t *testing.T) {
	m := Render(0.1, 0.5, false, DefaultBarCount)
	for i, b := range m.Bars {
		if b.Peak != (i == 9) {
			t.Errorf("bar %d Peak = %v", i, b.Peak)
		}
	}

	m = Render(0.5, 0, false, DefaultBarCount)
	for i, b := range m.Bars {
		if b.Peak {
			t.Errorf("bar %d marked as peak with zero hold", i)
		}
	}
}

func TestRenderHeights(t *testing.T) {
	m := Render(0.5, 0, false, DefaultBarCount)
	if !approx(m.Bars[0].Height, 0.3) {
		t.Errorf("first lit height = %v, want 0.3", m.Bars[0].Height)
	}
	if !approx(m.Bars[9].Height, 0.3+0.45*0.7) {
		t.Errorf("last lit height = %v", m.Bars[9].Height)
	}
	if m.Bars[10].Height != idleBarHeight {
		t.Errorf("unlit height = %v, want %v", m.Bars[10].Height, idleBarHeight)
	}
}

func TestRenderIsPure(t *testing.T) {
	a := Render(0.73, 0.81, true, 32)
	b := Render(0.73, 0.81, true, 32)
	if !reflect.DeepEqual(a, b) {
		t.Error("Render returned different meters for equal inputs")
	}
	if !a.Clipping {
		t.Error("clipping flag not carried through")
	}
}

func TestRenderNoBars(t *testing.T) {
	m := Render(0.5, 0.5, true, 0)
	if len(m.Bars) != 0 || !m.Clipping {
		t.Errorf("Render(n=0) = %+v", m)
	}
}
