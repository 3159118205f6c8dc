//go:build !windows

package util

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that stop the service and the meter CLI.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// GracefulSignal interrupts a capture process so it can flush and exit.
func GracefulSignal(p *os.Process) error {
	return p.Signal(syscall.SIGINT)
}
