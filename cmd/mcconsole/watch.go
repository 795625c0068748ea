package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcconsole/mcconsole-go/internal/discord"
	"github.com/mcconsole/mcconsole-go/internal/rcon"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

var (
	// watch flags
	watchLogDir       string
	watchFormat       string
	watchIncludeTypes []string
	watchExcludeTypes []string
	watchRaw          bool
	watchReplayLast   int
	watchPoll         bool
	watchRCON         string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the log of a running server and output events",
	Long: `Follow logs/latest.log of a server started elsewhere and output parsed
events in real time. Log rotation is followed automatically.

Replaying latest.log from the start recovers the list of online players
of a server that is already running. With an RCON address configured,
messages relayed from Discord reach the server.

Examples:
  # Follow ./logs/latest.log
  mcconsole watch

  # Specify log directory
  mcconsole watch --log-dir /srv/minecraft/logs

  # Replay the whole current log, then follow
  mcconsole watch --replay-last 0

  # Only joins and leaves, through jq
  mcconsole watch --include-types joined,left | jq .player`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchLogDir, "log-dir", "d", "",
		"Server log directory (default from watch.log_dir, MCCONSOLE_LOGDIR, then ./logs)")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "",
		"Output format: jsonl, pretty, yaml (default from output.format)")
	watchCmd.Flags().StringSliceVar(&watchIncludeTypes, "include-types", nil,
		"Event types to include (comma-separated)")
	watchCmd.Flags().StringSliceVar(&watchExcludeTypes, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	watchCmd.Flags().BoolVar(&watchRaw, "raw", false,
		"Include raw log lines in output")
	watchCmd.Flags().IntVar(&watchReplayLast, "replay-last", -1,
		"Replay last N lines before tailing (-1 = disabled, 0 = from start)")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false,
		"Poll the log file instead of using filesystem notifications")
	watchCmd.Flags().StringVar(&watchRCON, "rcon", "",
		"RCON address for sending commands (default from rcon.address)")

	registerEventTypeCompletion(watchCmd, "include-types")
	registerEventTypeCompletion(watchCmd, "exclude-types")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(watchFormat)
	if err != nil {
		return err
	}
	includes, excludes, err := eventFilter(watchIncludeTypes, watchExcludeTypes)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchOpts := []mcconsole.WatchOption{mcconsole.WithWatchLogger(logger)}

	logDir := watchLogDir
	if logDir == "" {
		logDir = appConfig.Watch.LogDir
	}
	if logDir != "" {
		watchOpts = append(watchOpts, mcconsole.WithLogDir(logDir))
	}

	switch {
	case watchReplayLast == 0:
		watchOpts = append(watchOpts, mcconsole.WithReplayFromStart())
	case watchReplayLast > 0:
		watchOpts = append(watchOpts, mcconsole.WithReplayLastN(watchReplayLast))
	}

	if watchPoll || appConfig.Watch.Poll {
		watchOpts = append(watchOpts, mcconsole.WithPollFile(true))
	}

	serverOpts := []mcconsole.Option{
		mcconsole.WithIncludeRawLine(watchRaw || appConfig.Output.IncludeRawLine),
	}

	var rc *rcon.Client
	addr := watchRCON
	if addr == "" {
		addr = appConfig.RCON.Address
	}
	if addr != "" {
		rc, err = rcon.New(addr, appConfig.RCON.Password)
		if err != nil {
			return err
		}
		defer rc.Close()
		serverOpts = append(serverOpts, mcconsole.WithCommandSink(rc))
	}
	watchOpts = append(watchOpts, mcconsole.WithServerOptions(serverOpts...))

	watcher, err := mcconsole.NewWatcher(watchOpts...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	srv := watcher.Server()
	out := &printer{format: format, w: os.Stdout}
	srv.SubscribeFiltered(includes, excludes, out.print)

	// The watched server may already be running without a Started line
	// in view, so relay through RCON directly when possible.
	var commander discord.Commander = srv
	if rc != nil {
		commander = rc
	}
	sk, err := startSinks(appConfig, srv, commander)
	if err != nil {
		return err
	}
	defer sk.close()

	errs := watcher.Watch(ctx)

	var lastErr error
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return lastErr
			}
			// Always output errors to stderr
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
			lastErr = err

		case <-ctx.Done():
			return nil
		}
	}
}
