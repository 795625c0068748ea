package mcconsole

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/mcconsole/mcconsole-go/internal/logfinder"
	"github.com/mcconsole/mcconsole-go/internal/tailer"
)

// ReplayMode specifies how to handle existing log lines.
type ReplayMode int

const (
	// ReplayNone only watches for new lines (default, tail -f behavior).
	ReplayNone ReplayMode = iota
	// ReplayFromStart reads from the beginning of the file.
	ReplayFromStart
	// ReplayLastN reads the last N lines before tailing.
	ReplayLastN
)

// DefaultMaxReplayLastN is the default maximum lines for ReplayLastN mode.
const DefaultMaxReplayLastN = 10000

// WatchOption configures a Watcher.
type WatchOption func(*watchConfig)

type watchConfig struct {
	logDir         string
	replay         ReplayMode
	lastN          int
	maxReplayLines int
	poll           bool
	logger         *slog.Logger
	serverOpts     []Option
}

func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := &watchConfig{maxReplayLines: DefaultMaxReplayLastN}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

func (c *watchConfig) validate() error {
	if c.replay != ReplayLastN {
		return nil
	}
	if c.lastN < 0 {
		return fmt.Errorf("replay last N must be non-negative, got %d", c.lastN)
	}
	if c.maxReplayLines > 0 && c.lastN > c.maxReplayLines {
		return fmt.Errorf("replay last N (%d) exceeds maximum of %d", c.lastN, c.maxReplayLines)
	}
	return nil
}

// WithLogDir sets the server log directory.
// If not set, MCCONSOLE_LOGDIR is used, then ./logs.
func WithLogDir(dir string) WatchOption {
	return func(c *watchConfig) {
		c.logDir = dir
	}
}

// WithReplayFromStart reads latest.log from the beginning before tailing.
func WithReplayFromStart() WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayFromStart
	}
}

// WithReplayLastN reads the last n lines of latest.log before tailing.
// Tailing resumes right after the replayed lines.
func WithReplayLastN(n int) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayLastN
		c.lastN = n
	}
}

// WithMaxReplayLines caps WithReplayLastN. Default 10000; -1 for
// unlimited.
func WithMaxReplayLines(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLines = max
	}
}

// WithPollFile polls the log file instead of relying on filesystem
// notifications.
func WithPollFile(poll bool) WatchOption {
	return func(c *watchConfig) {
		c.poll = poll
	}
}

// WithWatchLogger sets the logger for the watcher and its Server.
func WithWatchLogger(logger *slog.Logger) WatchOption {
	return func(c *watchConfig) {
		c.logger = logger
	}
}

// WithServerOptions configures the Server the watcher feeds, for example
// WithCommandSink to make SendCommand reach the watched server.
func WithServerOptions(opts ...Option) WatchOption {
	return func(c *watchConfig) {
		c.serverOpts = append(c.serverOpts, opts...)
	}
}

// Watcher follows the latest.log of a server it did not start and feeds
// every line to a Server. The Server becomes Running when the boot banner
// is seen, so replaying from the start recovers the roster of a server that
// is already up.
type Watcher struct {
	cfg    *watchConfig
	logDir string
	server *Server

	mu       sync.Mutex
	closed   bool
	watching bool
	cancel   context.CancelFunc
	doneCh   chan struct{}
}

// NewWatcher validates options and resolves the log directory. It does
// not start goroutines.
func NewWatcher(opts ...WatchOption) (*Watcher, error) {
	cfg := applyWatchOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logDir, err := logfinder.FindLogDir(cfg.logDir)
	if err != nil {
		return nil, err
	}

	serverOpts := append([]Option{WithLogger(cfg.logger)}, cfg.serverOpts...)
	return &Watcher{
		cfg:    cfg,
		logDir: logDir,
		server: New(serverOpts...),
	}, nil
}

// Server returns the Server fed by this watcher. Subscribe to it before
// calling Watch to see replayed lines.
func (w *Watcher) Server() *Server { return w.server }

// LogDir returns the resolved log directory.
func (w *Watcher) LogDir() string { return w.logDir }

// Watch starts following the log in the background. The returned channel
// carries non-fatal errors and is closed when watching ends, after ctx is
// cancelled, Close is called, or a fatal error was sent. Watch can only be
// called once per Watcher; later calls return a closed channel.
func (w *Watcher) Watch(ctx context.Context) <-chan error {
	errCh := make(chan error, 16)

	w.mu.Lock()
	if w.closed || w.watching {
		w.mu.Unlock()
		close(errCh)
		return errCh
	}
	w.watching = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx, errCh)
	return errCh
}

// Close stops the watcher and waits for its goroutine to exit.
// Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.cancel != nil {
		w.cancel()
	}
	doneCh := w.doneCh
	w.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, errCh chan<- error) {
	defer close(w.doneCh)
	defer close(errCh)

	logFile, err := logfinder.LatestLogFile(w.logDir)
	if err != nil {
		sendError(errCh, err)
		return
	}

	cfg := tailer.DefaultConfig()
	cfg.Poll = w.cfg.poll
	cfg.FromStart = w.cfg.replay == ReplayFromStart

	if w.cfg.replay == ReplayLastN && w.cfg.lastN > 0 {
		lines, end, err := readLastNLines(logFile, w.cfg.lastN)
		if err != nil {
			sendError(errCh, fmt.Errorf("replaying last %d lines: %w", w.cfg.lastN, err))
		}
		// Follow from where the replay ended so nothing written in
		// between is missed.
		cfg.Offset = end
		for _, line := range lines {
			if ctx.Err() != nil {
				return
			}
			w.server.HandleLine(line)
		}
	}

	t, err := tailer.Open(logFile, cfg)
	if err != nil {
		sendError(errCh, fmt.Errorf("starting tailer: %w", err))
		return
	}
	defer func() { _ = t.Stop() }()

	w.cfg.logger.Info("watching server log", "path", logFile, "replay", w.cfg.replay)

	err = t.Run(ctx, w.server.HandleLine, func(err error) { sendError(errCh, err) })
	if err != nil && !errors.Is(err, context.Canceled) {
		sendError(errCh, err)
	}
}

// readLastNLines reads the last n complete, non-empty lines from a file,
// oldest first. It also returns the offset just past the last newline; a
// trailing line still being written is left for the tailer.
func readLastNLines(path string, n int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, 0, err
	}

	const chunkSize = 4096
	var (
		buffer []byte
		lines  []string
	)
	offset := stat.Size()

	// Read backwards until the buffer holds more than n line breaks, so
	// the oldest kept line is complete.
	for offset > 0 && bytes.Count(buffer, []byte{'\n'}) <= n {
		readSize := min(int64(chunkSize), offset)
		offset -= readSize

		chunk := make([]byte, readSize)
		if _, err := file.ReadAt(chunk, offset); err != nil {
			return nil, 0, err
		}
		buffer = append(chunk, buffer...)
	}

	end := stat.Size()
	partial := len(buffer) - (bytes.LastIndexByte(buffer, '\n') + 1)
	buffer = buffer[:len(buffer)-partial]
	end -= int64(partial)

	lines = splitLines(buffer)
	if offset > 0 && len(lines) > 0 {
		// First line may be partial.
		lines = lines[1:]
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, end, nil
}

// splitLines splits on "\n", trims "\r" and drops empty lines.
func splitLines(buffer []byte) []string {
	var lines []string
	start := 0
	for i := 0; i <= len(buffer); i++ {
		if i < len(buffer) && buffer[i] != '\n' {
			continue
		}
		line := buffer[start:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
		start = i + 1
	}
	return lines
}

// sendError sends an error non-blocking.
func sendError(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}
