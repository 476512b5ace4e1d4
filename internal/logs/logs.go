// Package logs writes the updater log file and follows it.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/nxadm/tail"
)

// ErrNoLogFile is returned when the log file does not exist.
var ErrNoLogFile = errors.New("log file not found")

// Open returns a logger appending to path with the given prefix. The
// returned closer releases the file. An empty path logs to stderr.
func Open(path, prefix string) (*log.Logger, io.Closer, error) {
	if path == "" {
		return log.New(os.Stderr, prefix, log.LstdFlags), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, prefix, log.LstdFlags), f, nil
}

// Options configures Follow.
type Options struct {
	Lines  int  // start with the last n lines; 0 prints the whole file
	Follow bool // keep waiting for new lines until ctx is cancelled
	Poll   bool // poll instead of inotify/kqueue
}

// Follow copies the log at path to out.
func Follow(ctx context.Context, path string, out io.Writer, opts Options) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoLogFile, path)
		}
		return err
	}

	var offset int64
	if opts.Lines > 0 {
		off, err := lastLinesOffset(path, opts.Lines)
		if err != nil {
			return err
		}
		offset = off
	}

	t, err := tail.TailFile(path, tail.Config{
		Follow:    opts.Follow,
		ReOpen:    opts.Follow, // handle rotation
		MustExist: true,
		Poll:      opts.Poll,
		Location:  &tail.SeekInfo{Offset: offset, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to tail log: %w", err)
	}
	defer t.Cleanup()
	defer func() { _ = t.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-t.Lines:
			if !ok || line == nil {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(out, line.Text)
		}
	}
}

// lastLinesOffset returns the byte offset at which the last n lines begin.
func lastLinesOffset(path string, n int) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	starts := make([]int64, 0, n+1)
	var pos int64
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			starts = append(starts, pos)
			if len(starts) > n {
				starts = starts[1:]
			}
			pos += int64(len(line))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if len(starts) == 0 {
		return 0, nil
	}
	return starts[0], nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
