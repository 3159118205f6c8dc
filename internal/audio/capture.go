package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// ErrNoAudioDevice is returned when no audio input device is available.
var ErrNoAudioDevice = errors.New("no audio input device found")

// Capture format produced by the platform commands.
const (
	CaptureSampleRate = 48000
	CaptureChannels   = 1

	// captureStopTimeout bounds the graceful shutdown of the capture process.
	captureStopTimeout = 2 * time.Second
	readChunkSize      = 4096
)

// CaptureConfig defines platform-specific audio capture configuration.
type CaptureConfig struct {
	// Command is the executable name (e.g., "arecord", "ffmpeg").
	Command string

	// DefaultDevice is used when no device is configured.
	DefaultDevice string

	// UsesFFmpeg indicates if this platform uses FFmpeg for capture.
	UsesFFmpeg bool

	// BuildArgs returns the command arguments for mono S16LE capture.
	BuildArgs func(device string) []string
}

// BuildCaptureCommand returns the command and arguments for audio capture.
// If device is empty, it uses the platform default or the first detected device.
func BuildCaptureCommand(ctx context.Context, device, ffmpegPath string) (cmd string, args []string, err error) {
	cfg := getPlatformConfig()

	if device == "" {
		device = cfg.DefaultDevice
	}
	if device == "" {
		devices := ListDevices(ctx, ffmpegPath)
		if len(devices) == 0 {
			return "", nil, ErrNoAudioDevice
		}
		device = devices[0].ID
	}

	command := cfg.Command
	if cfg.UsesFFmpeg && ffmpegPath != "" {
		command = ffmpegPath
	}

	return command, cfg.BuildArgs(device), nil
}

// ProcessSource captures audio from a local input device through an external
// process that writes raw PCM to stdout.
type ProcessSource struct {
	*StreamSource

	cmd    *exec.Cmd
	cancel context.CancelFunc
	stderr bytes.Buffer
	done   chan struct{}

	closeOnce sync.Once
}

// OpenDevice starts capturing from device and returns the running source.
// Errors wrap ErrNoAudioDevice when the process cannot be started.
func OpenDevice(ctx context.Context, device, ffmpegPath string) (*ProcessSource, error) {
	name, args, err := BuildCaptureCommand(ctx, device, ffmpegPath)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, name, args...)
	stop, err := captureCancel(cmd)
	if err != nil {
		cancel()
		return nil, err
	}
	cmd.Cancel = stop
	cmd.WaitDelay = captureStopTimeout

	p := &ProcessSource{
		StreamSource: NewStreamSource(WindowSize),
		cmd:          cmd,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
	cmd.Stderr = &p.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, util.WrapError("create capture pipe", err)
	}

	slog.Info("starting audio capture", "command", name, "input", device)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrNoAudioDevice, err)
	}

	go p.read(stdout)
	return p, nil
}

// read decodes PCM from the process until it exits.
func (p *ProcessSource) read(r io.Reader) {
	defer close(p.done)

	buf := make([]byte, readChunkSize)
	var carry []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			whole := len(data) - len(data)%(2*CaptureChannels)
			p.Push(DecodeS16LE(data[:whole], CaptureChannels))
			carry = append(carry[:0], data[whole:]...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				p.Fail(util.WrapError("read capture output", err))
			}
			break
		}
	}

	if err := p.cmd.Wait(); err != nil {
		msg := util.ExtractLastError(p.stderr.String())
		slog.Warn("audio capture exited", "error", err, "stderr", msg)
		p.Fail(fmt.Errorf("capture process exited: %w", err))
	}
}

// Close stops the capture process and waits for it to exit.
func (p *ProcessSource) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
		_ = p.StreamSource.Close()
	})
	return nil
}
