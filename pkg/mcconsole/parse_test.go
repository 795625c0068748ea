package mcconsole_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/mcconsole/mcconsole-go/pkg/mcconsole"
)

const sessionLog = `[23:58:00] [Server thread/INFO]: Starting minecraft server version 1.12.2
[23:58:04] [Server thread/INFO]: Done (4.211s)! For help, type "help" or "?"
[23:59:00] [Server thread/INFO]: Steve joined the game
[23:59:30] [Server thread/INFO]: Notch fell out of the world
[00:00:10] [Server thread/INFO]: Steve was slain by Zombie
	at net.minecraft.server.Main.main(Main.java:42)
[00:01:00] [Server thread/INFO]: Steve left the game
`

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeGzipLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return writeLog(t, dir, name, buf.String())
}

func collect(t *testing.T, seq func(func(mcconsole.Event, error) bool)) []mcconsole.Event {
	t.Helper()
	var events []mcconsole.Event
	for ev, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func TestParseLine(t *testing.T) {
	line, ok := mcconsole.ParseLine(steveSaid)
	if !ok {
		t.Fatal("ParseLine() ok = false, want true")
	}
	if line.Source != "Server thread" || line.Level != "INFO" || line.Body != "<Steve> hello there" {
		t.Errorf("ParseLine() = %+v", line)
	}

	if _, ok := mcconsole.ParseLine(javaTrace); ok {
		t.Error("ParseLine() ok = true for stack trace line")
	}
}

func TestClassify(t *testing.T) {
	roster := mcconsole.NewRoster("Steve")

	_, events := mcconsole.Classify(steveFell, roster)
	if len(events) != 1 || events[0].Type != mcconsole.EventDied {
		t.Fatalf("Classify() = %+v, want one died event", events)
	}

	_, events = mcconsole.Classify(steveFell, nil)
	if len(events) != 0 {
		t.Errorf("Classify() with nil roster = %+v, want none", events)
	}

	if !roster.Contains("Steve") || roster.Len() != 1 {
		t.Error("Classify() must not modify the roster")
	}
}

func TestParseFile_Basic(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)

	events := collect(t, mcconsole.ParseFile(context.Background(), logFile))

	expected := []struct {
		typ    mcconsole.EventType
		player string
	}{
		{mcconsole.EventStarted, ""},
		{mcconsole.EventJoined, "Steve"},
		{mcconsole.EventDied, "Steve"},
		{mcconsole.EventLeft, "Steve"},
	}
	if len(events) != len(expected) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(expected), events)
	}
	for i, want := range expected {
		if events[i].Type != want.typ || events[i].Player != want.player {
			t.Errorf("event %d: got %s/%q, want %s/%q", i, events[i].Type, events[i].Player, want.typ, want.player)
		}
		if !events[i].Timestamp.IsZero() {
			t.Errorf("event %d: Timestamp = %v, want zero without a date", i, events[i].Timestamp)
		}
	}
	if events[2].Cause != "was slain by Zombie" {
		t.Errorf("died cause = %q", events[2].Cause)
	}
}

func TestParseFile_EmptyPath(t *testing.T) {
	var errCount int
	for _, err := range mcconsole.ParseFile(context.Background(), "") {
		if err != nil {
			errCount++
			break
		}
	}
	if errCount != 1 {
		t.Error("ParseFile with empty path should yield an error")
	}
}

func TestParseFile_FileNotFound(t *testing.T) {
	_, err := mcconsole.ParseFileAll(context.Background(), "/nonexistent/latest.log")

	var fileErr *mcconsole.FileError
	if !errors.As(err, &fileErr) {
		t.Fatalf("ParseFileAll() error = %v, want *FileError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ParseFileAll() error = %v, want os.ErrNotExist", err)
	}
}

func TestParseFile_Filters(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)
	ctx := context.Background()

	joined := collect(t, mcconsole.ParseFile(ctx, logFile,
		mcconsole.WithParseIncludeTypes(mcconsole.EventJoined, mcconsole.EventLeft),
		mcconsole.WithParseExcludeTypes(mcconsole.EventLeft),
	))
	if len(joined) != 1 || joined[0].Type != mcconsole.EventJoined {
		t.Errorf("include/exclude: got %+v", joined)
	}

	// Filtering must not hide roster effects from the death matcher.
	died := collect(t, mcconsole.ParseFile(ctx, logFile,
		mcconsole.WithParseFilter([]mcconsole.EventType{mcconsole.EventDied}, nil),
	))
	if len(died) != 1 || died[0].Player != "Steve" {
		t.Errorf("died only: got %+v", died)
	}
}

func TestParseFile_IncludeRawLine(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", steveJoin+"\r\n")

	events := collect(t, mcconsole.ParseFile(context.Background(), logFile,
		mcconsole.WithParseIncludeRawLine(true),
	))
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].RawLine != steveJoin {
		t.Errorf("got RawLine %q, want %q", events[0].RawLine, steveJoin)
	}
}

func TestParseFile_DateAndRollover(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	events := collect(t, mcconsole.ParseFile(context.Background(), logFile,
		mcconsole.WithParseDate(day),
	))
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}
	if want := time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC); !events[1].Timestamp.Equal(want) {
		t.Errorf("joined Timestamp = %v, want %v", events[1].Timestamp, want)
	}
	if want := time.Date(2024, 1, 16, 0, 1, 0, 0, time.UTC); !events[3].Timestamp.Equal(want) {
		t.Errorf("left Timestamp = %v, want %v", events[3].Timestamp, want)
	}
}

func TestParseFile_TimeRange(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	events := collect(t, mcconsole.ParseFile(context.Background(), logFile,
		mcconsole.WithParseDate(day),
		mcconsole.WithParseTimeRange(
			time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 0, 1, 0, 0, time.UTC),
		),
	))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Type != mcconsole.EventJoined || events[1].Type != mcconsole.EventDied {
		t.Errorf("got %s, %s", events[0].Type, events[1].Type)
	}
}

func TestParseFile_Gzip(t *testing.T) {
	logFile := writeGzipLog(t, t.TempDir(), "2024-01-15-1.log.gz", sessionLog)

	events, err := mcconsole.ParseFileAll(context.Background(), logFile)
	if err != nil {
		t.Fatalf("ParseFileAll() error = %v", err)
	}
	if len(events) != 4 {
		t.Errorf("got %d events, want 4", len(events))
	}
}

func TestParseFile_CorruptGzip(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "2024-01-15-1.log.gz", "not gzip")

	_, err := mcconsole.ParseFileAll(context.Background(), logFile)
	var fileErr *mcconsole.FileError
	if !errors.As(err, &fileErr) {
		t.Errorf("ParseFileAll() error = %v, want *FileError", err)
	}
}

func TestParseFile_ContextCancel(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mcconsole.ParseFileAll(ctx, logFile)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ParseFileAll() error = %v, want context.Canceled", err)
	}
}

func TestParseFile_EarlyBreak(t *testing.T) {
	logFile := writeLog(t, t.TempDir(), "latest.log", sessionLog)

	count := 0
	for _, err := range mcconsole.ParseFile(context.Background(), logFile) {
		if err != nil {
			t.Fatal(err)
		}
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestParseDir_SessionOrder(t *testing.T) {
	dir := t.TempDir()
	writeGzipLog(t, dir, "2024-01-14-1.log.gz", doneLine+"\n"+"[10:00:00] [Server thread/INFO]: Alex joined the game\n")
	writeGzipLog(t, dir, "2024-01-15-1.log.gz", doneLine+"\n"+steveJoin+"\n")
	// Alex is not on this file's roster, so this is not a death.
	writeLog(t, dir, "latest.log", doneLine+"\n"+"[13:00:00] [Server thread/INFO]: Alex drowned\n"+steveSaid+"\n")

	events := collect(t, mcconsole.ParseDir(context.Background(),
		mcconsole.WithDirLogDir(dir),
		mcconsole.WithDirExcludeTypes(mcconsole.EventStarted),
	))

	var got []string
	for _, ev := range events {
		got = append(got, string(ev.Type)+":"+ev.Player)
	}
	want := []string{"joined:Alex", "joined:Steve", "said:Steve"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}

	if events[0].Timestamp.Year() != 2024 || events[0].Timestamp.Day() != 14 {
		t.Errorf("archive event Timestamp = %v, want 2024-01-14", events[0].Timestamp)
	}
	if !events[2].Timestamp.IsZero() {
		t.Errorf("latest.log event Timestamp = %v, want zero", events[2].Timestamp)
	}
}

func TestParseDir_ExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.log", steveJoin+"\n")
	b := writeLog(t, dir, "b.log", steveLeft+"\n")

	events := collect(t, mcconsole.ParseDir(context.Background(), mcconsole.WithDirPaths(b, a)))
	if len(events) != 2 || events[0].Type != mcconsole.EventLeft || events[1].Type != mcconsole.EventJoined {
		t.Errorf("got %+v, want left then joined", events)
	}
}

func TestParseDir_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeLog(t, dir, "good.log", steveJoin+"\n")
	missing := filepath.Join(dir, "missing.log")

	events := collect(t, mcconsole.ParseDir(context.Background(), mcconsole.WithDirPaths(missing, good)))
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}

	var gotErr error
	for _, err := range mcconsole.ParseDir(context.Background(),
		mcconsole.WithDirPaths(missing, good),
		mcconsole.WithDirStopOnError(true),
	) {
		if err != nil {
			gotErr = err
			break
		}
	}
	if !errors.Is(gotErr, os.ErrNotExist) {
		t.Errorf("stop on error: got %v, want os.ErrNotExist", gotErr)
	}
}

func TestParseDir_NoLogDir(t *testing.T) {
	var gotErr error
	for _, err := range mcconsole.ParseDir(context.Background(), mcconsole.WithDirLogDir("/nonexistent/logs")) {
		gotErr = err
		break
	}
	if !errors.Is(gotErr, mcconsole.ErrLogDirNotFound) {
		t.Errorf("got %v, want ErrLogDirNotFound", gotErr)
	}
}
