package mcconsole

import (
	"errors"
	"fmt"

	"github.com/mcconsole/mcconsole-go/internal/logfinder"
)

// Sentinel errors returned by this package.
var (
	// ErrUsage is wrapped by every error caused by calling an operation in
	// a state that does not allow it. The state is left unchanged.
	ErrUsage = errors.New("mcconsole: invalid operation for current state")

	// ErrAlreadyStarting is returned by Start while a launch is in progress.
	ErrAlreadyStarting = fmt.Errorf("%w: server is already starting", ErrUsage)

	// ErrAlreadyRunning is returned by Start while the server is running.
	ErrAlreadyRunning = fmt.Errorf("%w: server is already running", ErrUsage)

	// ErrNotRunning is returned by Stop and SendCommand when the server is
	// not running or there is nothing to deliver commands to.
	ErrNotRunning = fmt.Errorf("%w: server is not running", ErrUsage)

	// ErrNoServerJar is returned by Start when no server jar is configured.
	ErrNoServerJar = errors.New("mcconsole: server jar not configured")

	// ErrLogDirNotFound is returned when the server log directory
	// cannot be found or accessed.
	ErrLogDirNotFound = logfinder.ErrLogDirNotFound

	// ErrNoLogFiles is returned when no log files are found
	// in the specified directory.
	ErrNoLogFiles = logfinder.ErrNoLogFiles
)

// LaunchError reports that the server process could not be spawned.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("mcconsole: launching %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// UnexpectedExitError reports that the process exited before the server
// finished booting.
type UnexpectedExitError struct {
	Exit Exit
}

func (e *UnexpectedExitError) Error() string {
	return fmt.Sprintf("mcconsole: server exited before it was running (%s)", e.Exit)
}

// FileError wraps a failure to read one log file during offline parsing.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("mcconsole: reading %s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }
