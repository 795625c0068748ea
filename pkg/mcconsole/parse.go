package mcconsole

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/mcconsole/mcconsole-go/internal/logfinder"
	"github.com/mcconsole/mcconsole-go/internal/parser"
)

// Membership answers whether a player is online. *Roster implements it.
type Membership = parser.Membership

// ParseLine applies the console grammar "[HH:MM:SS] [source/level]: body"
// to line. It reports false when the line does not match, for example a
// stack trace continuation.
func ParseLine(line string) (*Line, bool) {
	return parser.ParseLine(line)
}

// Classify parses line and returns every event it describes, in matcher
// priority order. roster decides whether a death message names a known
// player; it is not modified. A nil roster counts nobody as online.
//
// Example:
//
//	roster := mcconsole.NewRoster("Steve")
//	_, events := mcconsole.Classify("[12:00:00] [Server thread/INFO]: Steve drowned", roster)
//	// events[0].Type == mcconsole.EventDied
func Classify(line string, roster Membership) (*Line, []Event) {
	res := parser.Classify(line, roster)
	return res.Line, res.Events
}

// ParseOption configures ParseFile behavior.
type ParseOption func(*parseConfig)

type parseConfig struct {
	filter         *compiledFilter
	includeRawLine bool
	since          time.Time
	until          time.Time
	date           time.Time
}

func applyParseOptions(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithParseIncludeTypes filters events to only include the specified types.
func WithParseIncludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.withInclude(types)
	}
}

// WithParseExcludeTypes filters out events of the specified types.
func WithParseExcludeTypes(types ...EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter = c.filter.withExclude(types)
	}
}

// WithParseFilter sets both include and exclude type filters for parsing.
func WithParseFilter(include, exclude []EventType) ParseOption {
	return func(c *parseConfig) {
		c.filter = newCompiledFilter(include, exclude)
	}
}

// WithParseIncludeRawLine includes the original log line in Event.RawLine.
func WithParseIncludeRawLine(include bool) ParseOption {
	return func(c *parseConfig) {
		c.includeRawLine = include
	}
}

// WithParseDate sets the calendar day the log starts on. Console lines
// carry only a clock time; with a date, events get a Timestamp, and the
// day advances whenever the clock goes backwards. Without it Timestamp is
// left zero.
func WithParseDate(day time.Time) ParseOption {
	return func(c *parseConfig) {
		c.date = day
	}
}

// WithParseTimeRange keeps only events within [since, until). Zero values
// are ignored. Events without a Timestamp are never filtered out.
func WithParseTimeRange(since, until time.Time) ParseOption {
	return func(c *parseConfig) {
		c.since = since
		c.until = until
	}
}

func (c *parseConfig) inRange(ts time.Time) bool {
	if ts.IsZero() {
		return true
	}
	if !c.since.IsZero() && ts.Before(c.since) {
		return false
	}
	if !c.until.IsZero() && !ts.Before(c.until) {
		return false
	}
	return true
}

// ParseFile parses a server log file and returns an iterator over its
// events. Files ending in ".gz" are decompressed. Each file gets its own
// roster, starting empty, so deaths are only reported for players seen
// joining in the same file.
//
// The file is opened lazily on first iteration. Open and read errors are
// yielded once as a *FileError and end the iteration; context
// cancellation yields ctx.Err().
//
// Example:
//
//	for ev, err := range mcconsole.ParseFile(ctx, "logs/latest.log") {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("%s %s\n", ev.Type, ev.Player)
//	}
func ParseFile(ctx context.Context, path string, opts ...ParseOption) iter.Seq2[Event, error] {
	if path == "" {
		return func(yield func(Event, error) bool) {
			yield(Event{}, errors.New("mcconsole: path required"))
		}
	}

	cfg := applyParseOptions(opts)

	return func(yield func(Event, error) bool) {
		r, closeFn, err := openLog(path)
		if err != nil {
			yield(Event{}, &FileError{Path: path, Err: err})
			return
		}
		defer closeFn()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		roster := &Roster{}
		clock := sessionClock{day: cfg.date}

		for scanner.Scan() {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			raw := strings.TrimSuffix(scanner.Text(), "\r")
			res := parser.Classify(raw, roster)
			if !res.Recognized() {
				continue
			}
			ts := clock.timestamp(res.Line.Time)

			for _, ev := range res.Events {
				roster.Apply(ev)

				if !cfg.filter.Allows(ev.Type) || !cfg.inRange(ts) {
					continue
				}
				ev.Timestamp = ts
				if cfg.includeRawLine {
					ev.RawLine = raw
				}
				if !yield(ev, nil) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Event{}, &FileError{Path: path, Err: err})
		}
	}
}

// ParseFileAll parses a log file and collects all events into a slice.
// Stops on first error and returns events collected so far.
func ParseFileAll(ctx context.Context, path string, opts ...ParseOption) ([]Event, error) {
	events := make([]Event, 0, 256)
	for ev, err := range ParseFile(ctx, path, opts...) {
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// openLog opens path, decompressing gzip archives.
func openLog(path string) (io.Reader, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, func() { f.Close() }, nil
	}

	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return zr, func() {
		zr.Close()
		f.Close()
	}, nil
}

// sessionClock turns console clock times into timestamps on a known day.
type sessionClock struct {
	day  time.Time
	days int
	last time.Duration
	seen bool
}

func (c *sessionClock) timestamp(ct ClockTime) time.Time {
	if c.day.IsZero() {
		return time.Time{}
	}
	h, errH := strconv.Atoi(ct.Hours)
	m, errM := strconv.Atoi(ct.Minutes)
	s, errS := strconv.Atoi(ct.Seconds)
	if errH != nil || errM != nil || errS != nil {
		return time.Time{}
	}

	offset := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
	if c.seen && offset < c.last {
		c.days++
	}
	c.last, c.seen = offset, true

	y, mo, d := c.day.Date()
	return time.Date(y, mo, d+c.days, h, m, s, 0, c.day.Location())
}

// ParseDirOption configures ParseDir behavior.
type ParseDirOption func(*parseDirConfig)

type parseDirConfig struct {
	parseConfig
	logDir      string
	paths       []string
	stopOnError bool
}

func applyParseDirOptions(opts []ParseDirOption) *parseDirConfig {
	cfg := &parseDirConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithDirLogDir sets the log directory to parse. If not set, the directory
// is found from MCCONSOLE_LOGDIR or ./logs.
func WithDirLogDir(dir string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.logDir = dir
	}
}

// WithDirPaths sets explicit file paths to parse, in order.
// If set, LogDir is ignored.
func WithDirPaths(paths ...string) ParseDirOption {
	return func(c *parseDirConfig) {
		c.paths = paths
	}
}

// WithDirIncludeTypes filters events to only include the specified types.
func WithDirIncludeTypes(types ...EventType) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter = c.filter.withInclude(types)
	}
}

// WithDirExcludeTypes filters out events of the specified types.
func WithDirExcludeTypes(types ...EventType) ParseDirOption {
	return func(c *parseDirConfig) {
		c.filter = c.filter.withExclude(types)
	}
}

// WithDirTimeRange keeps only events within [since, until).
func WithDirTimeRange(since, until time.Time) ParseDirOption {
	return func(c *parseDirConfig) {
		c.since = since
		c.until = until
	}
}

// WithDirIncludeRawLine includes the original log line in Event.RawLine.
func WithDirIncludeRawLine(include bool) ParseDirOption {
	return func(c *parseDirConfig) {
		c.includeRawLine = include
	}
}

// WithDirStopOnError stops at the first unreadable file instead of
// skipping to the next one.
func WithDirStopOnError(stop bool) ParseDirOption {
	return func(c *parseDirConfig) {
		c.stopOnError = stop
	}
}

// ParseDir parses every log file in a directory in session order: dated
// archives oldest first, then latest.log. Archive events are timestamped
// from the date in the file name.
//
// Directory errors are yielded once and end the iteration. A file that
// cannot be read is skipped, or ends the iteration with WithDirStopOnError.
//
// Example:
//
//	for ev, err := range mcconsole.ParseDir(ctx,
//	    mcconsole.WithDirIncludeTypes(mcconsole.EventJoined),
//	) {
//	    if err != nil {
//	        log.Printf("error: %v", err)
//	        break
//	    }
//	    fmt.Printf("%s joined at %s\n", ev.Player, ev.Timestamp)
//	}
func ParseDir(ctx context.Context, opts ...ParseDirOption) iter.Seq2[Event, error] {
	cfg := applyParseDirOptions(opts)

	return func(yield func(Event, error) bool) {
		files := cfg.paths
		if len(files) == 0 {
			logDir, err := logfinder.FindLogDir(cfg.logDir)
			if err != nil {
				yield(Event{}, err)
				return
			}
			files, err = logfinder.ListLogFiles(logDir)
			if err != nil {
				yield(Event{}, err)
				return
			}
		}
		if len(files) == 0 {
			yield(Event{}, ErrNoLogFiles)
			return
		}

		for _, file := range files {
			if err := ctx.Err(); err != nil {
				yield(Event{}, err)
				return
			}

			fileCfg := cfg.parseConfig
			if day, ok := logfinder.SessionDate(file); ok {
				fileCfg.date = day
			}
			opts := []ParseOption{func(c *parseConfig) { *c = fileCfg }}

			for ev, err := range ParseFile(ctx, file, opts...) {
				if err != nil {
					if cfg.stopOnError || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						yield(Event{}, err)
						return
					}
					break
				}
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}
