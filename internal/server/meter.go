package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/oszuidwest/diario-bordo/internal/audio"
	"github.com/oszuidwest/diario-bordo/internal/util"
)

// Meter WebSocket limits.
const (
	sendBufferSize = 16
	// MaxFrameBytes bounds one binary sample frame: 8192 float32 samples.
	MaxFrameBytes = 8192 * 4
)

// MeterFormat selects the encoding of level frames.
type MeterFormat string

// Supported level frame encodings.
const (
	FormatJSON    MeterFormat = "json"
	FormatMsgpack MeterFormat = "msgpack"
)

// ParseMeterFormat converts a query value to a MeterFormat. Empty selects JSON.
func ParseMeterFormat(s string) (MeterFormat, bool) {
	switch MeterFormat(s) {
	case "", FormatJSON:
		return FormatJSON, true
	case FormatMsgpack:
		return FormatMsgpack, true
	default:
		return FormatJSON, false
	}
}

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MeterState is the data of meter command results.
type MeterState struct {
	State audio.SessionState `json:"state"`
	Bars  int                `json:"bars"`
	Tick  int64              `json:"tick_ms"`
}

// MeterConn meters the audio one WebSocket client streams. Binary frames
// carry little-endian float32 samples; the first frame starts a capture
// when none is running.
type MeterConn struct {
	mu      sync.Mutex
	cfg     audio.MeterConfig
	session *audio.Session
	source  *audio.StreamSource
	send    chan<- any
}

// NewMeterConn returns an idle meter that delivers frames to send.
func NewMeterConn(cfg audio.MeterConfig, send chan<- any) *MeterConn {
	return &MeterConn{
		cfg:     cfg,
		session: audio.NewSession(cfg),
		send:    send,
	}
}

// Start begins a capture from a fresh level state.
func (m *MeterConn) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(ctx)
}

func (m *MeterConn) startLocked(ctx context.Context) error {
	src := audio.NewStreamSource(audio.WindowSize)
	src.SetStaleAfter(2 * m.cfg.Interval)
	open := func(context.Context) (audio.Source, error) { return src, nil }
	if err := m.session.Start(ctx, open, m.render); err != nil {
		return err
	}
	m.source = src
	return nil
}

// Stop ends the capture. Stopping an idle meter is a no-op.
func (m *MeterConn) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *MeterConn) stopLocked() {
	m.session.Stop()
	m.source = nil
}

// Feed pushes one binary frame of samples.
func (m *MeterConn) Feed(ctx context.Context, frame []byte) error {
	samples := audio.DecodeF32LE(frame)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.source == nil {
		if err := m.startLocked(ctx); err != nil {
			return err
		}
	}
	m.source.Push(samples)
	return nil
}

// Configure applies new meter parameters. A running capture restarts with
// the new parameters and a reset level state.
func (m *MeterConn) Configure(ctx context.Context, req *MeterConfigRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := m.cfg
	if req.Bars != nil {
		cfg.Bars = *req.Bars
	}
	if req.TickMs != nil {
		cfg.Interval = time.Duration(*req.TickMs) * time.Millisecond
	}
	if req.Alpha != nil {
		cfg.Filter.Release = *req.Alpha
	}
	if req.HoldMs != nil {
		cfg.Filter.HoldWindow = time.Duration(*req.HoldMs) * time.Millisecond
	}
	if req.Decay != nil {
		cfg.Filter.PeakDecay = *req.Decay
	}
	if req.ClipThreshold != nil {
		cfg.Filter.ClipThreshold = *req.ClipThreshold
	}

	running := m.source != nil
	m.stopLocked()
	m.cfg = cfg
	m.session = audio.NewSession(cfg)
	if running {
		return m.startLocked(ctx)
	}
	return nil
}

// State reports the session state and active parameters.
func (m *MeterConn) State() MeterState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MeterState{
		State: m.session.State(),
		Bars:  m.cfg.Bars,
		Tick:  m.cfg.Interval.Milliseconds(),
	}
}

// render delivers a frame, dropping it when the client is slow.
func (m *MeterConn) render(f audio.Frame) {
	select {
	case m.send <- f:
	default:
	}
}

// Handle processes a meter command.
// Commands use slash-style format: namespace/action (e.g., "meter/start").
func (m *MeterConn) Handle(ctx context.Context, cmd WSCommand) {
	namespace, action, _ := strings.Cut(cmd.Type, "/")
	if namespace != "meter" {
		slog.Warn("unknown WebSocket command", "type", cmd.Type)
		SendError(m.send, cmd.Type, errors.New("comando desconhecido"))
		return
	}

	switch action {
	case "start":
		if err := m.Start(ctx); err != nil && !errors.Is(err, audio.ErrAlreadyCapturing) {
			SendError(m.send, cmd.Type, err)
			return
		}
	case "stop":
		m.Stop()
	case "config":
		var req MeterConfigRequest
		if err := DecodeAndValidate(cmd.Data, &req); err != nil {
			SendError(m.send, cmd.Type, err)
			return
		}
		if err := m.Configure(ctx, &req); err != nil {
			SendError(m.send, cmd.Type, err)
			return
		}
	case "state":
	default:
		slog.Warn("unknown meter action", "action", action)
		SendError(m.send, cmd.Type, errors.New("comando desconhecido"))
		return
	}
	SendSuccess(m.send, cmd.Type, m.State())
}

// ServeMeter runs the meter protocol on an upgraded connection until the
// client disconnects.
func ServeMeter(ctx context.Context, conn WebSocketConn, cfg audio.MeterConfig, format MeterFormat) {
	conn.SetReadLimit(MaxFrameBytes)

	// Only the writer goroutine writes to the connection.
	send := make(chan any, sendBufferSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		runWriter(conn, send, format)
	}()

	m := NewMeterConn(cfg, send)
	defer func() {
		m.Stop()
		close(send)
		<-writerDone
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := m.Feed(ctx, data); err != nil {
				SendError(send, "meter/start", err)
			}
		case websocket.TextMessage:
			var cmd WSCommand
			if err := json.Unmarshal(data, &cmd); err != nil {
				SendError(send, "command", ErrInvalidJSON)
				continue
			}
			m.Handle(ctx, cmd)
		}
	}
}

// runWriter writes messages from the send channel to the connection.
func runWriter(conn WebSocketConn, send <-chan any, format MeterFormat) {
	defer util.SafeCloseFunc(conn, "WebSocket connection")()
	for msg := range send {
		msgType, data, err := EncodeMessage(format, msg)
		if err != nil {
			slog.Warn("failed to encode WebSocket message", "error", err)
			continue
		}
		if err := conn.WriteMessage(msgType, data); err != nil {
			return
		}
	}
}

// EncodeMessage encodes a message for the wire. Level frames use MessagePack
// binary messages when requested; everything else is JSON text.
func EncodeMessage(format MeterFormat, msg any) (int, []byte, error) {
	if _, ok := msg.(audio.Frame); ok && format == FormatMsgpack {
		data, err := msgpack.Marshal(msg)
		return websocket.BinaryMessage, data, err
	}
	data, err := json.Marshal(msg)
	return websocket.TextMessage, data, err
}
