package mcconsole_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

// Example demonstrates supervising a server and greeting players.
func Example() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := mcconsole.New(
		mcconsole.WithServerJar("minecraft_server.jar"),
		mcconsole.WithJavaOpts("-Xmx2G"),
		mcconsole.WithExtraOpts("nogui"),
		mcconsole.WithWorldDir("/srv/minecraft"),
	)

	srv.Subscribe(mcconsole.EventJoined, func(ev mcconsole.Event) {
		_ = srv.SendCommand(ctx, "say Welcome, "+ev.Player+"!")
	})
	srv.Subscribe(mcconsole.EventDied, func(ev mcconsole.Event) {
		fmt.Printf("%s %s\n", ev.Player, ev.Cause)
	})

	if err := srv.Start(ctx); err != nil {
		log.Fatal(err)
	}

	bootCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := srv.WaitRunning(bootCtx); err != nil {
		log.Fatal(err)
	}

	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := srv.Stop(stopCtx); err != nil {
		_ = srv.Kill()
	}
}

// ExampleServer_HandleLine feeds console lines to a Server by hand.
func ExampleServer_HandleLine() {
	srv := mcconsole.New()
	srv.SubscribeAll(func(ev mcconsole.Event) {
		fmt.Printf("%s %s\n", ev.Type, ev.Player)
	})
	srv.SubscribeTransitions(func(tr mcconsole.Transition) {
		fmt.Printf("%s -> %s\n", tr.From, tr.To)
	})

	srv.HandleLine(`[10:00:00] [Server thread/INFO]: Done (2.5s)! For help, type "help" or "?"`)
	srv.HandleLine("[10:00:05] [Server thread/INFO]: Steve joined the game")
	srv.HandleLine("[10:00:09] [Server thread/INFO]: Steve tried to swim in lava")
	srv.HandleLine("[10:00:12] [Server thread/INFO]: Steve left the game")

	fmt.Println(srv.State(), len(srv.Players()))
	// Output:
	// idle -> running
	// started
	// joined Steve
	// died Steve
	// left Steve
	// running 0
}

// ExampleClassify classifies a single line against a known roster.
func ExampleClassify() {
	roster := mcconsole.NewRoster("Alex")

	line, events := mcconsole.Classify("[18:30:02] [Server thread/INFO]: Alex was shot by Skeleton", roster)
	fmt.Println(line.Source, line.Level, line.Time)
	for _, ev := range events {
		fmt.Printf("%s: %s %s\n", ev.Type, ev.Player, ev.Cause)
	}
	// Output:
	// Server thread INFO 18:30:02
	// died: Alex was shot by Skeleton
}

// ExampleNewWatcher follows the log of a server started elsewhere.
func ExampleNewWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := mcconsole.NewWatcher(
		mcconsole.WithLogDir("/srv/minecraft/logs"),
		mcconsole.WithReplayFromStart(),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()

	w.Server().SubscribeFiltered(
		[]mcconsole.EventType{mcconsole.EventSaid, mcconsole.EventAction},
		nil,
		func(ev mcconsole.Event) { fmt.Printf("<%s> %s\n", ev.Player, ev.Text) },
	)

	for err := range w.Watch(ctx) {
		log.Printf("watch: %v", err)
	}
}

// Example_errorsIs shows checking usage errors regardless of wrapping.
func Example_errorsIs() {
	srv := mcconsole.New()
	err := fmt.Errorf("announce: %w", srv.SendCommand(context.Background(), "say hi"))

	if errors.Is(err, mcconsole.ErrNotRunning) {
		fmt.Println("server is not running")
	}
	if mcconsole.IsUsageError(err) {
		fmt.Println("usage error")
	}
	// Output:
	// server is not running
	// usage error
}

// Example_errorsAs shows extracting how a failed server exited.
func Example_errorsAs() {
	err := fmt.Errorf("supervise: %w", &mcconsole.UnexpectedExitError{
		Exit: mcconsole.Exit{Code: 1},
	})

	var exitErr *mcconsole.UnexpectedExitError
	if errors.As(err, &exitErr) {
		fmt.Println(exitErr.Exit)
	}
	// Output: exit code 1
}
