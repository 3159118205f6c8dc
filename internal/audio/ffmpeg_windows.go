//go:build windows

package audio

import (
	"os/exec"
	"strconv"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// buildFFmpegCaptureArgs returns FFmpeg arguments for mono PCM capture.
// Stdin stays open so FFmpeg can be stopped with 'q'.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return []string{
		"-f", inputFormat,
		"-i", device,
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(CaptureChannels),
		"-ar", strconv.Itoa(CaptureSampleRate),
		"pipe:1",
	}
}

// captureCancel stops the capture process by sending 'q' on stdin.
func captureCancel(cmd *exec.Cmd) (func() error, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, util.WrapError("create capture stdin", err)
	}
	return func() error { return util.StopFFmpegViaStdin(stdin) }, nil
}
