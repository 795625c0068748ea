//go:build !unix

package process

import "os/exec"

// signalFromExitError always reports no signal on platforms without
// unix wait statuses.
func signalFromExitError(*exec.ExitError) (string, bool) {
	return "", false
}
