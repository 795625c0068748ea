// Package process launches the supervised server and exposes its standard
// streams.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Spec describes how to launch a process.
type Spec struct {
	// Path is the executable to run.
	Path string

	// Args are the arguments, not including Path.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the current environment, in "KEY=VALUE" form.
	Env []string
}

// Process is a running child process.
type Process interface {
	// Stdin returns the write end of the process's stdin pipe.
	Stdin() io.Writer

	// Wait blocks until the process exits. It must only be called after
	// stdout has been read to EOF.
	Wait() error

	// Signal sends an OS signal to the process.
	Signal(sig os.Signal) error
}

// Launcher starts processes. The returned reader is the process's stdout;
// the caller reads it to completion before calling Wait.
type Launcher interface {
	Start(ctx context.Context, spec Spec) (Process, io.ReadCloser, error)
}

// ExecLauncher launches processes with os/exec. The process is killed when
// the context passed to Start is cancelled.
type ExecLauncher struct {
	// Stderr receives the child's stderr. Nil discards it.
	Stderr io.Writer
}

type execProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

func (p *execProcess) Stdin() io.Writer { return p.stdin }

// Wait also closes the stdin pipe.
func (p *execProcess) Wait() error { return p.cmd.Wait() }

func (p *execProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return errors.New("process not started")
	}
	return p.cmd.Process.Signal(sig)
}

// Start spawns spec.Path with its stdin and stdout connected to pipes.
func (l ExecLauncher) Start(ctx context.Context, spec Spec) (Process, io.ReadCloser, error) {
	if spec.Path == "" {
		return nil, nil, errors.New("empty executable path")
	}

	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Stderr = l.Stderr
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("creating stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, nil, fmt.Errorf("creating stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, nil, fmt.Errorf("starting %s: %w", spec.Path, err)
	}

	return &execProcess{cmd: cmd, stdin: stdin}, stdout, nil
}
