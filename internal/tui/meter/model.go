// Package meter provides a terminal VU meter for a local capture device.
package meter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Bar glyphs.
const (
	glyphLit   = "█"
	glyphPeak  = "▌"
	glyphUnlit = "·"
)

// Config holds the settings of the terminal meter.
type Config struct {
	Device     string
	FFmpegPath string
	Meter      audio.MeterConfig
}

// tickMsg drives one step of the metering pipeline.
type tickMsg time.Time

// Model is the bubbletea model of the meter.
type Model struct {
	cfg     audio.MeterConfig
	device  string
	src     audio.Source
	state   audio.LevelState
	frame   audio.Frame
	started time.Time
	elapsed time.Duration
	paused  bool
	err     error
}

// New returns a meter model reading from src.
func New(device string, cfg audio.MeterConfig, src audio.Source) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = audio.DefaultTickInterval
	}
	if cfg.Bars <= 0 {
		cfg.Bars = audio.DefaultBarCount
	}
	_, frame := cfg.Step(audio.LevelState{}, nil, time.Now())
	return Model{
		cfg:     cfg,
		device:  device,
		src:     src,
		frame:   frame,
		started: time.Now(),
	}
}

// Err returns the error that ended the meter, if any.
func (m Model) Err() error {
	return m.err
}

// Frame returns the last rendered frame.
func (m Model) Frame() audio.Frame {
	return m.frame
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.cfg.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the tick loop.
func (m Model) Init() tea.Cmd {
	return m.tick()
}

// Update handles key presses and ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
		case "r":
			m.state = audio.LevelState{}
		}
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		m.elapsed = now.Sub(m.started)
		if m.paused {
			return m, m.tick()
		}
		samples, err := m.src.Snapshot()
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.state, m.frame = m.cfg.Step(m.state, samples, now)
		return m, m.tick()
	}
	return m, nil
}

// View renders the meter.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Diário de Bordo · medidor de nível"))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(fmt.Sprintf("entrada: %s   tempo: %s",
		m.device, util.FormatDuration(m.elapsed))))
	b.WriteString("\n\n")

	b.WriteString(FrameStyle.Render(renderBars(m.frame.Bars)))
	b.WriteString("\n")

	status := fmt.Sprintf("nível %3.0f%%   pico %3.0f%%", m.frame.Level*100, m.frame.Peak*100)
	b.WriteString(status)
	if m.frame.Clipping {
		b.WriteString("  ")
		b.WriteString(ClipStyle.Render("CLIP"))
	}
	if m.paused {
		b.WriteString("  ")
		b.WriteString(MutedStyle.Render("[pausado]"))
	}
	b.WriteString("\n")

	if m.err != nil && !errors.Is(m.err, audio.ErrSourceClosed) {
		b.WriteString(ErrorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(MutedStyle.Render("espaço pausar · r zerar pico · q sair"))
	b.WriteString("\n")
	return b.String()
}

// renderBars draws one glyph per bar in its zone color.
func renderBars(bars []audio.Bar) string {
	var b strings.Builder
	for _, bar := range bars {
		switch {
		case bar.Lit:
			b.WriteString(ZoneStyle(bar.Zone).Render(glyphLit))
		case bar.Peak:
			b.WriteString(ZoneStyle(bar.Zone).Render(glyphPeak))
		default:
			b.WriteString(UnlitStyle.Render(glyphUnlit))
		}
	}
	return b.String()
}

// Run opens the capture device and shows the meter until the user quits.
func Run(ctx context.Context, cfg Config) error {
	src, err := audio.OpenDevice(ctx, cfg.Device, cfg.FFmpegPath)
	if err != nil {
		return err
	}
	defer util.SafeCloseFunc(src, "audio capture")()

	p := tea.NewProgram(New(cfg.Device, cfg.Meter, src), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	if fm, ok := final.(Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}
