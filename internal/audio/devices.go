package audio

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// deviceListTimeout bounds the device listing command.
const deviceListTimeout = 5 * time.Second

// deviceLister describes how a platform enumerates audio inputs.
type deviceLister struct {
	command string
	args    []string
	ffmpeg  bool // command may be replaced by a configured FFmpeg binary

	// start and stop delimit the audio section of the output. An empty start
	// means the whole output is scanned.
	start string
	stop  string

	pattern  *regexp.Regexp
	device   func(m []string) Device
	fallback []Device
}

// ALSA lists cards once per subdevice; the card name is the capture ID.
var alsaCards = deviceLister{
	command: "arecord",
	args:    []string{"-l"},
	pattern: regexp.MustCompile(`card\s+(\d+):\s+(\w+)\s+\[([^\]]+)\]`),
	device: func(m []string) Device {
		return Device{ID: "default:CARD=" + m[2], Name: m[3]}
	},
	fallback: []Device{{ID: "default", Name: "System default"}},
}

var avfoundationInputs = deviceLister{
	command: "ffmpeg",
	args:    []string{"-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""},
	ffmpeg:  true,
	start:   "AVFoundation audio devices:",
	stop:    "AVFoundation video devices:",
	pattern: regexp.MustCompile(`\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*(.+)`),
	device: func(m []string) Device {
		return Device{ID: ":" + m[1], Name: m[2]}
	},
}

// FFmpeg builds differ in whether they print a DirectShow section header,
// so audio inputs are recognized by their "(audio)" suffix instead.
var dshowInputs = deviceLister{
	command: "ffmpeg",
	args:    []string{"-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"},
	ffmpeg:  true,
	pattern: regexp.MustCompile(`\[dshow[^\]]*\]\s*"([^"]+)"\s*\(audio\)`),
	device: func(m []string) Device {
		return Device{ID: "audio=" + m[1], Name: m[1]}
	},
}

// ListDevices returns the audio inputs of the current platform. When the
// listing command fails or finds nothing, the platform fallback is returned.
func ListDevices(ctx context.Context, ffmpegPath string) []Device {
	l := platformLister()

	name := l.command
	if l.ffmpeg && ffmpegPath != "" {
		name = ffmpegPath
	}

	ctx, cancel := context.WithTimeout(ctx, deviceListTimeout)
	defer cancel()

	// FFmpeg exits non-zero after listing, so only empty output is a failure.
	output, err := exec.CommandContext(ctx, name, l.args...).CombinedOutput()
	if err != nil && len(output) == 0 {
		slog.Warn("failed to list audio devices", "command", name, "error", err)
		return l.fallback
	}

	if devices := l.parse(string(output)); len(devices) > 0 {
		return devices
	}
	return l.fallback
}

// parse extracts devices from listing output, skipping duplicate IDs.
func (l *deviceLister) parse(output string) []Device {
	var devices []Device
	seen := make(map[string]bool)
	inSection := l.start == ""

	for line := range strings.Lines(output) {
		switch {
		case l.start != "" && strings.Contains(line, l.start):
			inSection = true
			continue
		case l.stop != "" && strings.Contains(line, l.stop):
			inSection = false
			continue
		}
		if !inSection || strings.Contains(line, "Alternative name") {
			continue
		}

		m := l.pattern.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
		if m == nil {
			continue
		}
		d := l.device(m)
		d.Name = strings.TrimSpace(d.Name)
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		devices = append(devices, d)
	}
	return devices
}
