package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole/event"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // config key, e.g. "output.format"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the accepted logging.level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted logging.format values.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

// ValidOutputFormats returns the accepted output.format values.
func ValidOutputFormats() []string {
	return []string{"jsonl", "pretty", "yaml"}
}

// Validate checks c and returns every problem found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDiscord()...)
	errs = append(errs, c.validateOTel()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateOutput()...)
	return errs
}

func (c *Config) validateServer() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(c.Server.Java) == "" {
		errs = append(errs, ValidationError{
			Field:   "server.java",
			Value:   c.Server.Java,
			Message: "must not be empty",
		})
	}
	if c.Server.StopTimeoutSeconds <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.stop_timeout_seconds",
			Value:   c.Server.StopTimeoutSeconds,
			Message: "must be positive",
		})
	}
	return errs
}

func (c *Config) validateDiscord() []ValidationError {
	var errs []ValidationError
	for _, name := range c.Discord.Events {
		if _, ok := event.ParseType(name); !ok {
			errs = append(errs, ValidationError{
				Field:   "discord.events",
				Value:   name,
				Message: fmt.Sprintf("unknown event type (valid: %s)", strings.Join(event.TypeNames(), ", ")),
			})
		}
	}
	if !c.Discord.Enabled {
		return errs
	}
	if c.Discord.ChannelID == "" {
		errs = append(errs, ValidationError{
			Field:   "discord.channel_id",
			Value:   c.Discord.ChannelID,
			Message: "required when discord is enabled",
		})
	}
	if c.Discord.Token == "" {
		errs = append(errs, ValidationError{
			Field:   EnvDiscordToken,
			Value:   "",
			Message: "required when discord is enabled",
		})
	}
	return errs
}

func (c *Config) validateOTel() []ValidationError {
	if !c.OTel.Metrics {
		return nil
	}
	if c.OTel.IntervalSeconds <= 0 {
		return []ValidationError{{
			Field:   "otel.interval_seconds",
			Value:   c.OTel.IntervalSeconds,
			Message: "must be positive",
		}}
	}
	return nil
}

func (c *Config) validateLogging() []ValidationError {
	var errs []ValidationError
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats(), c.Logging.Format) {
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Value:   c.Logging.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogFormats(), ", ")),
		})
	}
	return errs
}

func (c *Config) validateOutput() []ValidationError {
	if slices.Contains(ValidOutputFormats(), c.Output.Format) {
		return nil
	}
	return []ValidationError{{
		Field:   "output.format",
		Value:   c.Output.Format,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
	}}
}

// DiscordEvents returns the configured Discord event types. Invalid names
// are skipped; Validate reports them.
func (c *Config) DiscordEvents() []event.Type {
	var types []event.Type
	for _, name := range c.Discord.Events {
		if t, ok := event.ParseType(name); ok {
			types = append(types, t)
		}
	}
	return types
}
