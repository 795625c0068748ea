package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mcconsole/mcconsole-go/internal/config"
)

var (
	// Version information (set by ldflags)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile string
	verbose bool

	// Set by loadConfig before any subcommand runs.
	appConfig = config.Default()
	logger    = slog.New(slog.DiscardHandler)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mcconsole",
	Short: "Minecraft server console supervisor",
	Long: `mcconsole runs a Minecraft-style dedicated server and turns its console
into a stream of events: boot completion, joins, leaves, chat, achievements
and deaths.

It can supervise a server it starts itself (run), follow the log of a
server started elsewhere (watch), parse saved logs (parse) and send
commands over RCON (send). Events are output as JSON Lines by default.`,
	SilenceUsage:      true, // Don't show usage on error
	PersistentPreRunE: loadConfig,
}

func init() {
	// Global flags (inherited by all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is $XDG_CONFIG_HOME/mcconsole/config.yaml, then ./mcconsole.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	v := viper.New()
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	appConfig = cfg
	logger = newLogger(cfg.Logging, verbose)
	return nil
}

// newLogger builds the stderr diagnostic logger. --verbose forces debug.
func newLogger(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcconsole %s (commit: %s, built: %s)\n", version, commit, date)
	},
}
