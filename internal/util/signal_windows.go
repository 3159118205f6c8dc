//go:build windows

package util

import (
	"io"
	"os"
)

// ShutdownSignals returns the signals that stop the service and the meter CLI.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// StopFFmpegViaStdin asks a DirectShow capture to quit by writing "q" to
// FFmpeg's stdin. Windows has no SIGINT for child processes.
func StopFFmpegViaStdin(stdin io.WriteCloser) error {
	if stdin == nil {
		return nil
	}
	_, _ = stdin.Write([]byte("q"))
	return stdin.Close()
}
