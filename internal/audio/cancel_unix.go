//go:build !windows

package audio

import (
	"os/exec"

	"github.com/oszuidwest/diario-bordo/internal/util"
)

// captureCancel stops the capture process with SIGINT.
func captureCancel(cmd *exec.Cmd) (func() error, error) {
	return func() error { return util.GracefulSignal(cmd.Process) }, nil
}
