package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

var (
	// parse flags
	parseLogDir       string
	parseIncludeTypes []string
	parseExcludeTypes []string
	parseSince        string
	parseUntil        string
	parseFormat       string
	parseRaw          bool
	parseStopOnError  bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse server log files (batch mode)",
	Long: `Parse saved server logs and output events.

Without arguments every log in the log directory is read in session
order: rotated archives (2024-01-15-1.log.gz, ...) oldest first, then
latest.log. Archive events are timestamped from the date in the file
name; latest.log events carry only the console clock.

Examples:
  # Parse all logs in ./logs
  mcconsole parse

  # Specify log directory
  mcconsole parse --log-dir /srv/minecraft/logs

  # Deaths on one day
  mcconsole parse --include-types died --since 2024-01-15T00:00:00Z --until 2024-01-16T00:00:00Z

  # Parse specific files
  mcconsole parse logs/2024-01-15-1.log.gz logs/2024-01-15-2.log.gz`,
	RunE: runParse,
}

func init() {
	parseCmd.Flags().StringVarP(&parseLogDir, "log-dir", "d", "",
		"Server log directory (default from watch.log_dir, MCCONSOLE_LOGDIR, then ./logs)")
	parseCmd.Flags().StringSliceVar(&parseIncludeTypes, "include-types", nil,
		"Event types to include (comma-separated)")
	parseCmd.Flags().StringSliceVar(&parseExcludeTypes, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	parseCmd.Flags().StringVar(&parseSince, "since", "",
		"Only events at/after timestamp (RFC3339 format, e.g., 2024-01-15T12:00:00Z)")
	parseCmd.Flags().StringVar(&parseUntil, "until", "",
		"Only events before timestamp (RFC3339 format)")
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "",
		"Output format: jsonl, pretty, yaml (default from output.format)")
	parseCmd.Flags().BoolVar(&parseRaw, "raw", false,
		"Include raw log lines in output")
	parseCmd.Flags().BoolVar(&parseStopOnError, "stop-on-error", false,
		"Stop on first unreadable file instead of skipping it")

	registerEventTypeCompletion(parseCmd, "include-types")
	registerEventTypeCompletion(parseCmd, "exclude-types")
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(parseFormat)
	if err != nil {
		return err
	}
	includes, excludes, err := eventFilter(parseIncludeTypes, parseExcludeTypes)
	if err != nil {
		return err
	}

	sinceTime, untilTime, err := parseTimeRange(parseSince, parseUntil)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var opts []mcconsole.ParseDirOption

	logDir := parseLogDir
	if logDir == "" {
		logDir = appConfig.Watch.LogDir
	}
	if logDir != "" {
		opts = append(opts, mcconsole.WithDirLogDir(logDir))
	}

	// Use positional args as explicit file paths
	if len(args) > 0 {
		opts = append(opts, mcconsole.WithDirPaths(args...))
	}

	if len(includes) > 0 {
		opts = append(opts, mcconsole.WithDirIncludeTypes(includes...))
	}
	if len(excludes) > 0 {
		opts = append(opts, mcconsole.WithDirExcludeTypes(excludes...))
	}
	if !sinceTime.IsZero() || !untilTime.IsZero() {
		opts = append(opts, mcconsole.WithDirTimeRange(sinceTime, untilTime))
	}
	if parseRaw || appConfig.Output.IncludeRawLine {
		opts = append(opts, mcconsole.WithDirIncludeRawLine(true))
	}
	if parseStopOnError {
		opts = append(opts, mcconsole.WithDirStopOnError(true))
	}

	out := cmd.OutOrStdout()
	for ev, err := range mcconsole.ParseDir(ctx, opts...) {
		if err != nil {
			// Ctrl+C: exit silently
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("parse error: %w", err)
		}

		if err := OutputEvent(format, ev, out); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	return nil
}

// parseTimeRange parses RFC3339 since and until values; empty strings
// yield zero times.
func parseTimeRange(since, until string) (time.Time, time.Time, error) {
	var sinceTime, untilTime time.Time
	var err error

	if since != "" {
		if sinceTime, err = time.Parse(time.RFC3339, since); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --since format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}
	if until != "" {
		if untilTime, err = time.Parse(time.RFC3339, until); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --until format: %w (expected RFC3339, e.g., 2024-01-15T12:00:00Z)", err)
		}
	}

	if !sinceTime.IsZero() && !untilTime.IsZero() && sinceTime.After(untilTime) {
		return time.Time{}, time.Time{}, fmt.Errorf("--since must be before --until")
	}
	return sinceTime, untilTime, nil
}

