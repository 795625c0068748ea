package mcconsole

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/mcconsole/mcconsole-go/internal/dispatch"
	"github.com/mcconsole/mcconsole-go/internal/parser"
	"github.com/mcconsole/mcconsole-go/internal/process"
)

// StopCommand is the console command that shuts the server down.
const StopCommand = "stop"

// CommandSink delivers console commands to a server the Server does not
// own a process for.
type CommandSink interface {
	SendCommand(ctx context.Context, command string) error
}

// Server supervises one server process. It classifies every console line,
// tracks online players and the lifecycle state, and fans the results out
// to subscribers.
//
// A Server can also be fed lines it did not read itself through
// HandleLine, which is how a Watcher follows a server started elsewhere.
type Server struct {
	cfg    *serverConfig
	logger *slog.Logger
	bus    *dispatch.Bus
	roster *Roster

	// lineMu serialises HandleLine so lines are dispatched in arrival order.
	lineMu sync.Mutex

	// writeMu serialises command writes to the process stdin.
	writeMu sync.Mutex

	mu      sync.Mutex
	state   State
	proc    process.Process
	runDone chan struct{} // closed when the current run is terminal
	changed chan struct{} // closed and replaced on every state change
	lastErr error
}

// New creates an idle Server. No process is started until Start.
func New(opts ...Option) *Server {
	cfg := applyOptions(opts)
	return &Server{
		cfg:     cfg,
		logger:  cfg.logger,
		bus:     dispatch.NewBus(cfg.logger),
		roster:  &Roster{},
		state:   StateIdle,
		changed: make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Players returns the players currently online, sorted by name.
func (s *Server) Players() []string {
	return s.roster.Players()
}

// Roster exposes the live roster for read-only queries.
func (s *Server) Roster() *Roster {
	return s.roster
}

// Start launches the server process and returns once it has been spawned.
// It does not wait for the server to finish booting; use WaitRunning for
// that.
//
// Start returns ErrAlreadyStarting or ErrAlreadyRunning without spawning
// anything if a run is in progress. If the process cannot be spawned the
// state becomes Failed and a *LaunchError is returned.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateStarting:
		s.mu.Unlock()
		return ErrAlreadyStarting
	case StateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	spec, err := s.cfg.commandSpec()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	done := make(chan struct{})
	s.runDone = done
	s.lastErr = nil
	tr := s.setStateLocked(StateStarting)
	s.mu.Unlock()
	s.publishTransition(tr)

	s.logger.Info("starting server", "java", spec.Path, "args", spec.Args, "dir", spec.Dir)

	// The process outlives the Start call.
	proc, stdout, err := s.cfg.launcher.Start(context.WithoutCancel(ctx), spec)
	if err != nil {
		lerr := &LaunchError{Path: spec.Path, Err: err}
		s.mu.Lock()
		tr := s.setStateLocked(StateFailed)
		tr.Err = lerr
		s.lastErr = lerr
		s.mu.Unlock()

		s.logger.Error("launch failed", "error", err)
		s.publishTransition(tr)
		close(done)
		return lerr
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()

	go s.supervise(proc, stdout, done)
	return nil
}

// supervise pumps console lines into HandleLine until stdout closes, then
// records how the process exited.
func (s *Server) supervise(proc process.Process, stdout io.ReadCloser, done chan struct{}) {
	defer close(done)

	if err := process.ScanLines(context.Background(), stdout, s.HandleLine); err != nil {
		s.logger.Warn("reading console output", "error", err)
		// Keep the pipe drained so the server never blocks on a write.
		_, _ = io.Copy(io.Discard, stdout)
	}
	exit := process.ExitFromError(proc.Wait())

	s.mu.Lock()
	var tr Transition
	if s.state == StateRunning {
		tr = s.setStateLocked(StateStopped)
	} else {
		tr = s.setStateLocked(StateFailed)
		tr.Err = &UnexpectedExitError{Exit: exit}
		s.lastErr = tr.Err
	}
	tr.Exit = &exit
	s.proc = nil
	s.mu.Unlock()

	if tr.Err != nil {
		s.logger.Error("server exited unexpectedly", "exit", exit.String(), "from", tr.From)
	} else {
		s.logger.Info("server stopped", "exit", exit.String())
	}
	s.publishTransition(tr)
}

// Stop asks a running server to shut down by sending the stop command, and
// waits until the process has exited or ctx is done. When the Server does
// not own the process (a watched server), Stop returns once the command is
// delivered. Stop must not be called from a subscriber, since the process
// exit is observed on the goroutine running the handlers.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	owned := s.proc != nil
	done := s.runDone
	s.mu.Unlock()

	if err := s.SendCommand(ctx, StopCommand); err != nil {
		return err
	}
	if !owned {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Kill terminates an owned server process immediately.
func (s *Server) Kill() error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return ErrNotRunning
	}
	return proc.Signal(os.Kill)
}

// SendCommand writes command followed by a newline to the server console.
// It returns ErrNotRunning, and writes nothing, unless the server is
// Running and there is a process or CommandSink to deliver to. Writes are
// serialised; a cancelled ctx abandons the wait but not an in-flight write.
func (s *Server) SendCommand(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	state, proc := s.state, s.proc
	s.mu.Unlock()

	if state != StateRunning {
		return ErrNotRunning
	}
	if proc == nil {
		if s.cfg.sink == nil {
			return ErrNotRunning
		}
		if err := s.cfg.sink.SendCommand(ctx, command); err != nil {
			return fmt.Errorf("sending command: %w", err)
		}
		return nil
	}

	errCh := make(chan error, 1)
	go func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		_, err := io.WriteString(proc.Stdin(), command+"\n")
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("writing command: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitRunning blocks until the server is Running. It returns the run's
// error if the server fails first, and ctx.Err() if ctx is done. There is
// no built-in boot timeout; bound the wait with ctx.
func (s *Server) WaitRunning(ctx context.Context) error {
	for {
		s.mu.Lock()
		state, changed, lastErr := s.state, s.changed, s.lastErr
		s.mu.Unlock()

		switch state {
		case StateRunning:
			return nil
		case StateFailed:
			return lastErr
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Wait blocks until the current run has exited. It returns nil after a
// clean stop, the launch or unexpected exit error after a failure, and
// ctx.Err() if ctx is done first. Without a run it returns immediately.
func (s *Server) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.runDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HandleLine classifies one console line and dispatches the results.
// Lines are processed one at a time in call order.
//
// Dispatch order for a recognised line: Line subscribers, then each event
// (after its effect on state and roster), then Unclassified subscribers if
// no event matched, then Raw subscribers. For a line that does not match
// the console grammar: Unrecognized, then Raw.
func (s *Server) HandleLine(raw string) {
	s.lineMu.Lock()
	defer s.lineMu.Unlock()

	res := parser.Classify(raw, s.roster)
	if !res.Recognized() {
		s.bus.PublishUnrecognized(raw)
		s.bus.PublishRaw(raw)
		return
	}

	s.bus.PublishLine(*res.Line)

	now := s.cfg.now()
	for _, ev := range res.Events {
		ev.Timestamp = now
		if s.cfg.includeRawLine {
			ev.RawLine = raw
		}
		if ev.Type == EventStarted {
			s.markRunning()
		}
		s.roster.Apply(ev)
		s.bus.PublishEvent(ev)
	}

	if !res.Classified() {
		s.bus.PublishUnclassified(*res.Line)
	}
	s.bus.PublishRaw(raw)
}

// markRunning moves to Running from any state. A boot banner is trusted
// even when this Server did not launch the process.
func (s *Server) markRunning() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	tr := s.setStateLocked(StateRunning)
	s.mu.Unlock()

	s.logger.Info("server running", "from", tr.From)
	s.publishTransition(tr)
}

// setStateLocked changes state and wakes WaitRunning callers. s.mu must be
// held. The returned Transition is published after unlocking.
func (s *Server) setStateLocked(to State) Transition {
	tr := Transition{From: s.state, To: to, At: s.cfg.now()}
	s.state = to
	close(s.changed)
	s.changed = make(chan struct{})
	return tr
}

func (s *Server) publishTransition(tr Transition) {
	s.logger.Debug("state transition", "from", tr.From, "to", tr.To)
	s.bus.PublishTransition(tr)
}

// Subscribe registers h for events of type t.
func (s *Server) Subscribe(t EventType, h func(Event)) Subscription {
	return s.bus.Subscribe(t, h)
}

// SubscribeAll registers h for every event. All-event handlers run after
// the handlers registered for the specific type.
func (s *Server) SubscribeAll(h func(Event)) Subscription {
	return s.bus.SubscribeAll(h)
}

// SubscribeFiltered registers h for events that pass the include and
// exclude lists. An empty include list admits every type; exclude wins.
func (s *Server) SubscribeFiltered(include, exclude []EventType, h func(Event)) Subscription {
	f := newCompiledFilter(include, exclude)
	return s.bus.SubscribeAll(func(ev Event) {
		if f.Allows(ev.Type) {
			h(ev)
		}
	})
}

// SubscribeLines registers h for every line that matched the console
// grammar, classified or not.
func (s *Server) SubscribeLines(h func(Line)) Subscription {
	return s.bus.SubscribeLines(h)
}

// SubscribeUnclassified registers h for grammar lines no matcher claimed.
func (s *Server) SubscribeUnclassified(h func(Line)) Subscription {
	return s.bus.SubscribeUnclassified(h)
}

// SubscribeRaw registers h for every raw console line.
func (s *Server) SubscribeRaw(h func(string)) Subscription {
	return s.bus.SubscribeRaw(h)
}

// SubscribeUnrecognized registers h for raw lines that did not match the
// console grammar.
func (s *Server) SubscribeUnrecognized(h func(string)) Subscription {
	return s.bus.SubscribeUnrecognized(h)
}

// SubscribeTransitions registers h for lifecycle state changes.
func (s *Server) SubscribeTransitions(h func(Transition)) Subscription {
	return s.bus.SubscribeTransitions(h)
}

// Unsubscribe removes a handler. It reports whether id was registered.
func (s *Server) Unsubscribe(id Subscription) bool {
	return s.bus.Unsubscribe(id)
}

// IsUsageError reports whether err was caused by calling an operation in
// the wrong state.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrUsage)
}
