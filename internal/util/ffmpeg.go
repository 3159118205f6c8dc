package util

import "os/exec"

// ResolveFFmpegPath returns the FFmpeg binary used for device capture and
// listing. A configured customPath must be executable; otherwise "ffmpeg" is
// looked up in PATH. It returns "" when neither is found, and capture then
// falls back to the platform command name.
func ResolveFFmpegPath(customPath string) string {
	if customPath != "" {
		if _, err := exec.LookPath(customPath); err == nil {
			return customPath
		}
		return ""
	}
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return ""
	}
	return path
}
