// Package tailer follows a growing server log file line by line.
package tailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nxadm/tail"
)

// Config holds configuration for tailing.
type Config struct {
	// FromStart reads the existing content before following. Otherwise only
	// lines written after Open are delivered.
	FromStart bool

	// Offset starts following at this byte offset. Ignored with FromStart.
	Offset int64

	// Poll uses polling instead of filesystem notifications. Needed on
	// network mounts and some container volumes.
	Poll bool

	// MustExist fails Open when the file is missing instead of waiting for
	// the server to create it.
	MustExist bool
}

// DefaultConfig follows new lines of an existing file with notifications.
func DefaultConfig() Config {
	return Config{MustExist: true}
}

// Tailer follows one log file. The file is reopened when the server rolls
// it over, so a single Tailer survives log rotation.
type Tailer struct {
	path string
	t    *tail.Tail

	stopOnce sync.Once
	stopErr  error
}

// Open starts following path.
func Open(path string, cfg Config) (*Tailer, error) {
	loc := &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	switch {
	case cfg.FromStart:
		loc.Whence = io.SeekStart
	case cfg.Offset > 0:
		loc = &tail.SeekInfo{Offset: cfg.Offset, Whence: io.SeekStart}
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		Poll:      cfg.Poll,
		MustExist: cfg.MustExist,
		Location:  loc,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening tail: %w", err)
	}
	return &Tailer{path: path, t: t}, nil
}

// Path returns the followed file.
func (t *Tailer) Path() string { return t.path }

// Run delivers lines to onLine until ctx is cancelled or the tailer is
// stopped. Read errors on individual lines go to onErr and do not end the
// run. Run returns ctx.Err() on cancellation and the tail's terminal error
// otherwise.
func (t *Tailer) Run(ctx context.Context, onLine func(string), onErr func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-t.t.Lines:
			if !ok {
				return t.t.Err()
			}
			if line.Err != nil {
				if onErr != nil {
					onErr(fmt.Errorf("tail %s: %w", t.path, line.Err))
				}
				continue
			}
			onLine(strings.TrimSuffix(line.Text, "\r"))
		}
	}
}

// Stop ends tailing and releases the file. Safe to call multiple times.
func (t *Tailer) Stop() error {
	t.stopOnce.Do(func() {
		t.stopErr = t.t.Stop()
		t.t.Cleanup()
	})
	return t.stopErr
}
