// Package config loads CLI settings from a YAML file and MCCONSOLE_*
// environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

// EnvPrefix prefixes every environment override, e.g. MCCONSOLE_SERVER_JAR
// for server.jar.
const EnvPrefix = "MCCONSOLE"

// Secrets are only read from the environment, never from the config file.
const (
	EnvRCONPassword = "MCCONSOLE_RCON_PASSWORD"
	EnvDiscordToken = "MCCONSOLE_DISCORD_TOKEN"
)

// Config represents the complete mcconsole CLI configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Watch   WatchConfig   `mapstructure:"watch" yaml:"watch"`
	RCON    RCONConfig    `mapstructure:"rcon" yaml:"rcon"`
	Discord DiscordConfig `mapstructure:"discord" yaml:"discord"`
	OTel    OTelConfig    `mapstructure:"otel" yaml:"otel"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
}

// ServerConfig describes how to launch the server process.
type ServerConfig struct {
	// Java is the JVM executable (default: "java").
	Java string `mapstructure:"java" yaml:"java"`
	// JavaOpts are JVM options placed before -jar, e.g. ["-Xmx2G"].
	JavaOpts []string `mapstructure:"java_opts" yaml:"java_opts"`
	// Jar is the server jar path. Required for `run`.
	Jar string `mapstructure:"jar" yaml:"jar"`
	// ExtraOpts are arguments after the jar (default: ["nogui"]).
	ExtraOpts []string `mapstructure:"extra_opts" yaml:"extra_opts"`
	// WorldDir is the server's working directory.
	WorldDir string `mapstructure:"world_dir" yaml:"world_dir"`
	// StopTimeoutSeconds bounds a graceful stop before the process is
	// killed (default: 60).
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds" yaml:"stop_timeout_seconds"`
}

// StopTimeout returns the graceful stop timeout as a Duration.
func (c *ServerConfig) StopTimeout() time.Duration {
	return time.Duration(c.StopTimeoutSeconds) * time.Second
}

// WatchConfig controls `watch`.
type WatchConfig struct {
	// LogDir is the server log directory. Empty falls back to
	// MCCONSOLE_LOGDIR, then ./logs.
	LogDir string `mapstructure:"log_dir" yaml:"log_dir"`
	// Poll polls latest.log instead of using filesystem notifications.
	Poll bool `mapstructure:"poll" yaml:"poll"`
}

// RCONConfig points at the server's RCON listener.
type RCONConfig struct {
	// Address is host:port. Empty disables RCON.
	Address  string `mapstructure:"address" yaml:"address"`
	Password string `mapstructure:"-" yaml:"-"`
}

// DiscordConfig controls the Discord bridge.
type DiscordConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	ChannelID string `mapstructure:"channel_id" yaml:"channel_id"`
	// Relay sends channel messages into the game with "say".
	Relay bool `mapstructure:"relay" yaml:"relay"`
	// Events limits which event types are posted. Empty posts all.
	Events []string `mapstructure:"events" yaml:"events"`
	Token  string   `mapstructure:"-" yaml:"-"`
}

// OTelConfig controls OTLP/gRPC export.
type OTelConfig struct {
	// Endpoint is the collector address. Empty uses
	// OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure        bool   `mapstructure:"insecure" yaml:"insecure"`
	ServiceName     string `mapstructure:"service_name" yaml:"service_name"`
	Metrics         bool   `mapstructure:"metrics" yaml:"metrics"`
	Logs            bool   `mapstructure:"logs" yaml:"logs"`
	IntervalSeconds int    `mapstructure:"interval_seconds" yaml:"interval_seconds"`
}

// Interval returns the metric export interval as a Duration.
func (c *OTelConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Enabled reports whether any signal is exported.
func (c *OTelConfig) Enabled() bool {
	return c.Metrics || c.Logs
}

// LoggingConfig controls the CLI's own diagnostic log on stderr.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: "warn").
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "text" or "json" (default: "text").
	Format string `mapstructure:"format" yaml:"format"`
}

// OutputConfig controls how events are printed.
type OutputConfig struct {
	// Format is jsonl, pretty or yaml (default: "jsonl").
	Format         string `mapstructure:"format" yaml:"format"`
	IncludeRawLine bool   `mapstructure:"include_raw_line" yaml:"include_raw_line"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Java:               "java",
			JavaOpts:           mcconsole.DefaultJavaOpts(),
			ExtraOpts:          []string{"nogui"},
			StopTimeoutSeconds: 60,
		},
		OTel: OTelConfig{
			ServiceName:     "mcconsole",
			Metrics:         false,
			Logs:            false,
			IntervalSeconds: 30,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Output: OutputConfig{
			Format: "jsonl",
		},
	}
}

// SetDefaults registers Default() on v so every key is known to viper,
// which lets environment variables override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.java", d.Server.Java)
	v.SetDefault("server.java_opts", d.Server.JavaOpts)
	v.SetDefault("server.jar", d.Server.Jar)
	v.SetDefault("server.extra_opts", d.Server.ExtraOpts)
	v.SetDefault("server.world_dir", d.Server.WorldDir)
	v.SetDefault("server.stop_timeout_seconds", d.Server.StopTimeoutSeconds)

	v.SetDefault("watch.log_dir", d.Watch.LogDir)
	v.SetDefault("watch.poll", d.Watch.Poll)

	v.SetDefault("rcon.address", d.RCON.Address)

	v.SetDefault("discord.enabled", d.Discord.Enabled)
	v.SetDefault("discord.channel_id", d.Discord.ChannelID)
	v.SetDefault("discord.relay", d.Discord.Relay)
	v.SetDefault("discord.events", d.Discord.Events)

	v.SetDefault("otel.endpoint", d.OTel.Endpoint)
	v.SetDefault("otel.insecure", d.OTel.Insecure)
	v.SetDefault("otel.service_name", d.OTel.ServiceName)
	v.SetDefault("otel.metrics", d.OTel.Metrics)
	v.SetDefault("otel.logs", d.OTel.Logs)
	v.SetDefault("otel.interval_seconds", d.OTel.IntervalSeconds)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.include_raw_line", d.Output.IncludeRawLine)
}

// Init prepares v: defaults, environment overrides and the config file.
// With cfgFile empty, config.yaml is looked up in ConfigDir() and then
// mcconsole.yaml in the working directory; a missing file is not an
// error. An explicit cfgFile must exist.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	for _, candidate := range []string{ConfigFile(), "mcconsole.yaml"} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

// Load unmarshals v, reads secrets from the environment and validates
// the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	cfg.RCON.Password = os.Getenv(EnvRCONPassword)
	cfg.Discord.Token = os.Getenv(EnvDiscordToken)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the user's mcconsole config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mcconsole")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mcconsole"
	}
	return filepath.Join(home, ".config", "mcconsole")
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var verrs ValidationErrors
	return errors.As(err, &verrs)
}
