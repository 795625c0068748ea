package process

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineLength     = 1024 * 1024
)

// ScanLines reads r line by line and calls fn for each line in order,
// with trailing "\r" removed. It returns when r reaches EOF, when reading
// fails, or when ctx is cancelled.
func ScanLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineLength)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return scanner.Err()
}
