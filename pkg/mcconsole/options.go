package mcconsole

import (
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/mcconsole/mcconsole-go/internal/process"
)

// Option configures a Server using the functional options pattern.
type Option func(*serverConfig)

// serverConfig holds internal configuration for a Server.
type serverConfig struct {
	java           string
	javaOpts       []string
	extraOpts      []string
	serverJar      string
	worldDir       string
	env            []string
	launcher       process.Launcher
	sink           CommandSink
	logger         *slog.Logger
	includeRawLine bool
	now            func() time.Time
}

// DefaultJava is the Java executable used when WithJava is not given.
const DefaultJava = "java"

// DefaultJavaOpts size the heap when WithJavaOpts is not given.
func DefaultJavaOpts() []string {
	return []string{"-Xmx1024M", "-Xms1024M"}
}

func defaultServerConfig() *serverConfig {
	return &serverConfig{
		java:     DefaultJava,
		javaOpts: DefaultJavaOpts(),
		launcher: process.ExecLauncher{},
		now:      time.Now,
	}
}

func applyOptions(opts []Option) *serverConfig {
	cfg := defaultServerConfig()
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

// WithJava sets the Java executable. Default: "java" from PATH.
func WithJava(path string) Option {
	return func(c *serverConfig) {
		if path != "" {
			c.java = path
		}
	}
}

// WithJavaOpts sets JVM options such as "-Xmx2G", replacing
// DefaultJavaOpts. They are placed before "-jar".
func WithJavaOpts(opts ...string) Option {
	return func(c *serverConfig) {
		c.javaOpts = slices.Clone(opts)
	}
}

// WithExtraOpts sets arguments passed to the server after the jar, such as
// "nogui".
func WithExtraOpts(opts ...string) Option {
	return func(c *serverConfig) {
		c.extraOpts = slices.Clone(opts)
	}
}

// WithServerJar sets the server jar. Relative paths are resolved against
// the current directory when Start is called. Required for Start.
func WithServerJar(path string) Option {
	return func(c *serverConfig) {
		c.serverJar = path
	}
}

// WithWorldDir sets the server's working directory. Default: the current
// directory.
func WithWorldDir(dir string) Option {
	return func(c *serverConfig) {
		c.worldDir = dir
	}
}

// WithEnv adds "KEY=VALUE" entries to the server's environment.
func WithEnv(env ...string) Option {
	return func(c *serverConfig) {
		c.env = append(c.env, env...)
	}
}

// WithLauncher replaces how the server process is spawned. Mostly useful
// in tests.
func WithLauncher(l process.Launcher) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.launcher = l
		}
	}
}

// WithCommandSink sets where commands go when the Server does not own a
// process, for example an RCON connection while watching a log file.
func WithCommandSink(sink CommandSink) Option {
	return func(c *serverConfig) {
		c.sink = sink
	}
}

// WithLogger sets the slog logger for lifecycle and diagnostic output.
// If nil (default), logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// WithIncludeRawLine includes the original console line in Event.RawLine.
// Default: false.
func WithIncludeRawLine(include bool) Option {
	return func(c *serverConfig) {
		c.includeRawLine = include
	}
}

// withClock overrides the wall clock used for Event.Timestamp.
func withClock(now func() time.Time) Option {
	return func(c *serverConfig) {
		c.now = now
	}
}

// commandSpec builds "<java> <javaOpts...> -jar <jar> <extraOpts...>".
func (c *serverConfig) commandSpec() (process.Spec, error) {
	if c.serverJar == "" {
		return process.Spec{}, ErrNoServerJar
	}
	jar, err := filepath.Abs(c.serverJar)
	if err != nil {
		return process.Spec{}, err
	}

	args := make([]string, 0, len(c.javaOpts)+2+len(c.extraOpts))
	args = append(args, c.javaOpts...)
	args = append(args, "-jar", jar)
	args = append(args, c.extraOpts...)

	return process.Spec{
		Path: c.java,
		Args: args,
		Dir:  c.worldDir,
		Env:  c.env,
	}, nil
}
