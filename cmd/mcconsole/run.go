package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcconsole/mcconsole-go/internal/config"
	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

var (
	// run flags
	runJar          string
	runJava         string
	runJavaOpts     []string
	runWorldDir     string
	runFormat       string
	runIncludeTypes []string
	runExcludeTypes []string
	runRaw          bool
	runNoStdin      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the server and output its events",
	Long: `Start the server process, supervise it and output parsed events.

Lines typed on stdin are sent to the server console as commands.
Ctrl+C sends "stop" and waits for the server to save and exit; if it does
not exit within server.stop_timeout_seconds it is killed.

Examples:
  # Start the jar from the config file
  mcconsole run

  # Start a specific jar with more memory
  mcconsole run --jar server.jar --java-opt -Xmx4G --world-dir /srv/mc

  # Human-readable chat and deaths only
  mcconsole run --format pretty --include-types said,died`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runJar, "jar", "",
		"Server jar (default from server.jar)")
	runCmd.Flags().StringVar(&runJava, "java", "",
		"Java executable (default from server.java)")
	runCmd.Flags().StringArrayVar(&runJavaOpts, "java-opt", nil,
		"JVM option placed before -jar (repeatable; replaces server.java_opts)")
	runCmd.Flags().StringVar(&runWorldDir, "world-dir", "",
		"Server working directory (default from server.world_dir)")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "",
		"Output format: jsonl, pretty, yaml (default from output.format)")
	runCmd.Flags().StringSliceVar(&runIncludeTypes, "include-types", nil,
		"Event types to include (comma-separated)")
	runCmd.Flags().StringSliceVar(&runExcludeTypes, "exclude-types", nil,
		"Event types to exclude (comma-separated)")
	runCmd.Flags().BoolVar(&runRaw, "raw", false,
		"Include raw console lines in output")
	runCmd.Flags().BoolVar(&runNoStdin, "no-stdin", false,
		"Do not forward stdin lines as commands")

	registerEventTypeCompletion(runCmd, "include-types")
	registerEventTypeCompletion(runCmd, "exclude-types")
}

// outputFormat returns flag, or the configured format when flag is empty.
func outputFormat(flag string) (string, error) {
	format := flag
	if format == "" {
		format = appConfig.Output.Format
	}
	if !ValidFormats[format] {
		return "", fmt.Errorf("invalid format %q: must be one of: %s", format, strings.Join(config.ValidOutputFormats(), ", "))
	}
	return format, nil
}

// serverOptions merges run flags over the server section of the config.
func serverOptions() ([]mcconsole.Option, error) {
	sc := appConfig.Server
	if runJar != "" {
		sc.Jar = runJar
	}
	if runJava != "" {
		sc.Java = runJava
	}
	if len(runJavaOpts) > 0 {
		sc.JavaOpts = runJavaOpts
	}
	if runWorldDir != "" {
		sc.WorldDir = runWorldDir
	}
	if sc.Jar == "" {
		return nil, fmt.Errorf("%w: set --jar or server.jar", mcconsole.ErrNoServerJar)
	}

	return []mcconsole.Option{
		mcconsole.WithJava(sc.Java),
		mcconsole.WithJavaOpts(sc.JavaOpts...),
		mcconsole.WithServerJar(sc.Jar),
		mcconsole.WithExtraOpts(sc.ExtraOpts...),
		mcconsole.WithWorldDir(sc.WorldDir),
		mcconsole.WithIncludeRawLine(runRaw || appConfig.Output.IncludeRawLine),
		mcconsole.WithLogger(logger),
	}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(runFormat)
	if err != nil {
		return err
	}
	includes, excludes, err := eventFilter(runIncludeTypes, runExcludeTypes)
	if err != nil {
		return err
	}
	opts, err := serverOptions()
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := mcconsole.New(opts...)
	out := &printer{format: format, w: os.Stdout}
	srv.SubscribeFiltered(includes, excludes, out.print)

	sk, err := startSinks(appConfig, srv, srv)
	if err != nil {
		return err
	}
	defer sk.close()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- srv.Wait(context.Background()) }()

	if !runNoStdin {
		go forwardCommands(ctx, srv, os.Stdin)
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "stopping server...")
	return shutdown(srv, done)
}

// shutdown stops srv gracefully, killing it when the stop timeout passes
// or when it has not finished starting.
func shutdown(srv *mcconsole.Server, done <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), appConfig.Server.StopTimeout())
	defer cancel()

	killed := false
	if err := srv.Stop(ctx); err != nil {
		if !errors.Is(err, mcconsole.ErrNotRunning) {
			logger.Warn("graceful stop failed, killing server", "error", err)
		}
		switch err := srv.Kill(); {
		case err == nil:
			killed = true
		case !errors.Is(err, mcconsole.ErrNotRunning):
			return err
		}
	}

	err := <-done
	var unexpected *mcconsole.UnexpectedExitError
	if killed && errors.As(err, &unexpected) {
		return nil
	}
	return err
}

// forwardCommands sends each non-empty line of r to srv.
func forwardCommands(ctx context.Context, srv *mcconsole.Server, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := srv.SendCommand(ctx, line); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}
