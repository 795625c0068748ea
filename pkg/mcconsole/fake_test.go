package mcconsole_test

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mcconsole/mcconsole-go/internal/process"
)

const (
	doneLine  = `[12:00:00] [Server thread/INFO]: Done (3.512s)! For help, type "help" or "?"`
	steveJoin = "[12:00:05] [Server thread/INFO]: Steve joined the game"
	steveLeft = "[12:00:09] [Server thread/INFO]: Steve left the game"
	steveFell = "[12:00:07] [Server thread/INFO]: Steve fell from a high place"
	steveSaid = "[12:00:06] [Server thread/INFO]: <Steve> hello there"
	noiseLine = "[12:00:01] [Server thread/INFO]: Preparing level \"world\""
	javaTrace = "\tat net.minecraft.server.Main.main(Main.java:42)"
)

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

// fakeProcess stands in for a server process. Lines written with emit
// appear on its stdout; commands written to stdin are recorded.
type fakeProcess struct {
	mu      sync.Mutex
	written strings.Builder
	signals []os.Signal
	onWrite func(p *fakeProcess, command string)

	stdout   *io.PipeWriter
	exitCh   chan error
	exitOnce sync.Once
}

func (p *fakeProcess) Stdin() io.Writer {
	return writerFunc(func(b []byte) (int, error) {
		p.mu.Lock()
		p.written.Write(b)
		cb := p.onWrite
		p.mu.Unlock()
		if cb != nil {
			cb(p, string(b))
		}
		return len(b), nil
	})
}

func (p *fakeProcess) Wait() error { return <-p.exitCh }

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.mu.Lock()
	p.signals = append(p.signals, sig)
	p.mu.Unlock()
	p.exit(errors.New("killed"))
	return nil
}

func (p *fakeProcess) emit(lines ...string) {
	for _, l := range lines {
		_, _ = io.WriteString(p.stdout, l+"\n")
	}
}

func (p *fakeProcess) exit(err error) {
	p.exitOnce.Do(func() {
		p.stdout.Close()
		p.exitCh <- err
	})
}

func (p *fakeProcess) stdin() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

// exitOnStop makes the fake process exit cleanly when told to stop.
func exitOnStop(p *fakeProcess, command string) {
	if command == "stop\n" {
		p.exit(nil)
	}
}

type fakeLauncher struct {
	mu      sync.Mutex
	specs   []process.Spec
	procs   []*fakeProcess
	err     error
	onWrite func(p *fakeProcess, command string)
}

func (l *fakeLauncher) Start(_ context.Context, spec process.Spec) (process.Process, io.ReadCloser, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.specs = append(l.specs, spec)
	if l.err != nil {
		return nil, nil, l.err
	}
	r, w := io.Pipe()
	p := &fakeProcess{stdout: w, exitCh: make(chan error, 1), onWrite: l.onWrite}
	l.procs = append(l.procs, p)
	return p, r, nil
}

func (l *fakeLauncher) starts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.specs)
}

func (l *fakeLauncher) last() *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[len(l.procs)-1]
}

func (l *fakeLauncher) lastSpec() process.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.specs[len(l.specs)-1]
}

// fakeSink records commands sent over a CommandSink.
type fakeSink struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (s *fakeSink) SendCommand(_ context.Context, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.commands = append(s.commands, command)
	return nil
}

func (s *fakeSink) sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// recorder collects strings from handlers running on other goroutines.
type recorder struct {
	mu      sync.Mutex
	entries []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.entries = append(r.entries, s)
	r.mu.Unlock()
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.entries...)
}
