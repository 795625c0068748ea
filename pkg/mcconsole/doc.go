// Package mcconsole supervises a Minecraft-style dedicated server and turns
// its console output into typed events.
//
// A Server launches the server process, reads its console line by line and
// classifies each line that matches "[HH:MM:SS] [source/level]: body" into
// zero or more events: boot completion, joins, leaves, lost connections,
// chat, emotes, achievements and deaths. It keeps the set of online players
// and a lifecycle state (idle, starting, running, stopped, failed), and lets
// callers send console commands back.
//
// # Basic Usage
//
//	srv := mcconsole.New(
//	    mcconsole.WithServerJar("minecraft_server.jar"),
//	    mcconsole.WithExtraOpts("nogui"),
//	)
//	srv.Subscribe(mcconsole.EventJoined, func(ev mcconsole.Event) {
//	    srv.SendCommand(ctx, "say Welcome, "+ev.Player)
//	})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.WaitRunning(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Subscribers run synchronously on the goroutine reading the console, in
// registration order, with type-specific handlers before SubscribeAll
// handlers. A slow handler delays the next line. A panicking handler is
// logged and skipped.
//
// # Deaths
//
// The server prints death messages in many shapes ("Steve drowned", "Steve
// was slain by Zombie"). A line is reported as EventDied only when its first
// word is a player currently on the roster and the line was not already
// claimed as a join, leave, lost connection or achievement.
//
// # Watching and Offline Parsing
//
// NewWatcher follows logs/latest.log of a server started elsewhere and feeds
// the same Server machinery; pair it with WithCommandSink (for example an
// RCON client) to send commands. ParseFile and ParseDir iterate over events
// in saved logs, including rotated .log.gz archives.
package mcconsole
