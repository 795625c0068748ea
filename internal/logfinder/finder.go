// Package logfinder locates a server's log directory and its log files.
//
// A server writes its current session to latest.log and rolls finished
// sessions into archives named "YYYY-MM-DD-N.log.gz".
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "MCCONSOLE_LOGDIR"

// LatestLogName is the file the server writes the current session to.
const LatestLogName = "latest.log"

const archiveSuffix = ".log.gz"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFiles     = errors.New("no log files found")
)

// DefaultLogDirs returns candidate log directories in priority order,
// relative to the working directory.
func DefaultLogDirs() []string {
	return []string{"logs"}
}

// FindLogDir returns the server log directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. MCCONSOLE_LOGDIR environment variable
//  3. DefaultLogDirs()
//
// A directory qualifies when it contains latest.log or at least one archive.
// The returned path has symlinks resolved.
func FindLogDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveLogDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s is not a directory with server logs", ErrLogDirNotFound, explicit)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveLogDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	for _, dir := range DefaultLogDirs() {
		if resolved := resolveLogDir(dir); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// LatestLogFile returns the path of latest.log in dir, or ErrNoLogFiles if
// the server has not created it.
func LatestLogFile(dir string) (string, error) {
	path := filepath.Join(dir, LatestLogName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNoLogFiles, path)
	}
	return path, nil
}

// ListLogFiles returns every log file in dir in session order: archives
// oldest first, then latest.log.
func ListLogFiles(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+archiveSuffix))
	if err != nil {
		return nil, fmt.Errorf("globbing log archives: %w", err)
	}

	type archive struct {
		path string
		date time.Time
		seq  int
	}
	archives := make([]archive, 0, len(matches))
	for _, path := range matches {
		date, seq, ok := parseArchiveName(filepath.Base(path))
		if !ok {
			continue
		}
		archives = append(archives, archive{path: path, date: date, seq: seq})
	}
	slices.SortFunc(archives, func(a, b archive) int {
		if c := a.date.Compare(b.date); c != 0 {
			return c
		}
		return a.seq - b.seq
	})

	files := make([]string, 0, len(archives)+1)
	for _, a := range archives {
		files = append(files, a.path)
	}
	if latest, err := LatestLogFile(dir); err == nil {
		files = append(files, latest)
	}
	return files, nil
}

// SessionDate returns the calendar day an archived log starts on, taken
// from its file name. It reports false for latest.log and for names that do
// not follow the archive pattern.
func SessionDate(path string) (time.Time, bool) {
	date, _, ok := parseArchiveName(filepath.Base(path))
	return date, ok
}

// parseArchiveName splits "2024-01-15-3.log.gz" into its date and sequence.
func parseArchiveName(name string) (time.Time, int, bool) {
	stem, ok := strings.CutSuffix(name, archiveSuffix)
	if !ok {
		return time.Time{}, 0, false
	}
	i := strings.LastIndexByte(stem, '-')
	if i < 0 {
		return time.Time{}, 0, false
	}
	seq, err := strconv.Atoi(stem[i+1:])
	if err != nil {
		return time.Time{}, 0, false
	}
	date, err := time.ParseInLocation("2006-01-02", stem[:i], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	return date, seq, true
}

// resolveLogDir resolves symlinks and checks that dir holds server logs.
// Returns the resolved path if valid, empty string otherwise.
func resolveLogDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}

	files, err := ListLogFiles(resolved)
	if err != nil || len(files) == 0 {
		return ""
	}
	return resolved
}
