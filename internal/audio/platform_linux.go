//go:build linux

package audio

import "strconv"

func getPlatformConfig() CaptureConfig {
	return CaptureConfig{
		Command:       "arecord",
		DefaultDevice: "default",
		BuildArgs:     buildLinuxArgs,
	}
}

func buildLinuxArgs(device string) []string {
	return []string{
		"-D", device,
		"-f", "S16_LE",
		"-r", strconv.Itoa(CaptureSampleRate),
		"-c", strconv.Itoa(CaptureChannels),
		"-t", "raw",
		"-q",
		"-",
	}
}

func platformLister() *deviceLister {
	return &alsaCards
}
