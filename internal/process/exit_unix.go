//go:build unix

package process

import (
	"os/exec"
	"syscall"
)

// signalFromExitError reports the terminating signal, if any.
func signalFromExitError(exitErr *exec.ExitError) (string, bool) {
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return "", false
	}
	return status.Signal().String(), true
}
