package process

import (
	"errors"
	"os/exec"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// ExitFromError converts the error returned by Process.Wait into an exit
// description. A nil error is a clean exit with code 0.
func ExitFromError(err error) event.Exit {
	if err == nil {
		return event.Exit{Code: 0}
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if sig, ok := signalFromExitError(exitErr); ok {
			return event.Exit{Code: -1, Signal: sig}
		}
		return event.Exit{Code: exitErr.ExitCode()}
	}
	return event.Exit{Code: -1}
}
