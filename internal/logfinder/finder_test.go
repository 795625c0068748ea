package logfinder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("test"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func resolved(t *testing.T, dir string) string {
	t.Helper()
	// e.g. /var -> /private/var on macOS
	want, _ := filepath.EvalSymlinks(dir)
	if want == "" {
		want = dir
	}
	return want
}

func TestListLogFiles_SessionOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "latest.log")
	touch(t, dir, "2024-01-15-10.log.gz")
	touch(t, dir, "2024-01-15-2.log.gz")
	touch(t, dir, "2023-12-31-1.log.gz")
	touch(t, dir, "debug.log")
	touch(t, dir, "notes.log.gz")

	got, err := ListLogFiles(dir)
	if err != nil {
		t.Fatalf("ListLogFiles() error = %v", err)
	}

	want := []string{
		"2023-12-31-1.log.gz",
		"2024-01-15-2.log.gz",
		"2024-01-15-10.log.gz",
		"latest.log",
	}
	if len(got) != len(want) {
		t.Fatalf("ListLogFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Errorf("ListLogFiles()[%d] = %s, want %s", i, filepath.Base(got[i]), want[i])
		}
	}
}

func TestListLogFiles_Empty(t *testing.T) {
	got, err := ListLogFiles(t.TempDir())
	if err != nil {
		t.Fatalf("ListLogFiles() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ListLogFiles() = %v, want empty", got)
	}
}

func TestLatestLogFile(t *testing.T) {
	dir := t.TempDir()
	want := touch(t, dir, "latest.log")

	got, err := LatestLogFile(dir)
	if err != nil {
		t.Fatalf("LatestLogFile() error = %v", err)
	}
	if got != want {
		t.Errorf("LatestLogFile() = %v, want %v", got, want)
	}
}

func TestLatestLogFile_Missing(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "2024-01-15-1.log.gz")

	_, err := LatestLogFile(dir)
	if !errors.Is(err, ErrNoLogFiles) {
		t.Errorf("LatestLogFile() error = %v, want %v", err, ErrNoLogFiles)
	}
}

func TestSessionDate(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		want   time.Time
		wantOK bool
	}{
		{"archive", "/srv/logs/2024-01-15-3.log.gz", time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local), true},
		{"latest", "/srv/logs/latest.log", time.Time{}, false},
		{"bad date", "2024-13-40-1.log.gz", time.Time{}, false},
		{"no sequence", "2024-01-15.log.gz", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SessionDate(tt.path)
			if ok != tt.wantOK {
				t.Fatalf("SessionDate(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if !got.Equal(tt.want) {
				t.Errorf("SessionDate(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFindLogDir_EnvVar(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "latest.log")
	t.Setenv(EnvLogDir, dir)

	got, err := FindLogDir("")
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if want := resolved(t, dir); got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_Explicit(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "2024-01-15-1.log.gz")

	// Explicit takes priority over env
	t.Setenv(EnvLogDir, "/some/other/path")

	got, err := FindLogDir(dir)
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if want := resolved(t, dir); got != want {
		t.Errorf("FindLogDir() = %v, want %v", got, want)
	}
}

func TestFindLogDir_Default(t *testing.T) {
	root := t.TempDir()
	logs := filepath.Join(root, "logs")
	if err := os.Mkdir(logs, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, logs, "latest.log")
	t.Setenv(EnvLogDir, "")
	t.Chdir(root)

	got, err := FindLogDir("")
	if err != nil {
		t.Fatalf("FindLogDir() error = %v", err)
	}
	if filepath.Base(got) != "logs" {
		t.Errorf("FindLogDir() = %v, want the logs directory", got)
	}
}

func TestFindLogDir_ExplicitInvalid(t *testing.T) {
	_, err := FindLogDir("/nonexistent/path")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestFindLogDir_EnvVarInvalid(t *testing.T) {
	t.Setenv(EnvLogDir, "/nonexistent/path")

	_, err := FindLogDir("")
	if !errors.Is(err, ErrLogDirNotFound) {
		t.Errorf("FindLogDir() error = %v, want %v", err, ErrLogDirNotFound)
	}
}

func TestResolveLogDir_WithoutLogs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "server.properties")

	if got := resolveLogDir(dir); got != "" {
		t.Errorf("resolveLogDir() = %q, want empty for dir without log files", got)
	}
}

func TestResolveLogDir_NotExists(t *testing.T) {
	if got := resolveLogDir("/nonexistent/path"); got != "" {
		t.Errorf("resolveLogDir() = %q, want empty for nonexistent path", got)
	}
}
