//go:build darwin

package audio

import "strconv"

// buildFFmpegCaptureArgs returns FFmpeg arguments for mono PCM capture.
func buildFFmpegCaptureArgs(inputFormat, device string) []string {
	return []string{
		"-f", inputFormat,
		"-i", device,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", strconv.Itoa(CaptureChannels),
		"-ar", strconv.Itoa(CaptureSampleRate),
		"pipe:1",
	}
}
