package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/timvw/pane-relay/internal/model"
	"github.com/timvw/pane-relay/internal/mux"
)

// Watch streams complete lines of a session log to fn, starting from the
// beginning of the file. It blocks until ctx is cancelled or a read fails.
// When no data is available it waits for a filesystem write event or the
// poll interval, whichever comes first. A truncated file is re-read from the
// start.
func (r *Reader) Watch(ctx context.Context, id model.SessionID, fn func(line string)) error {
	return r.watchFile(ctx, r.Path(id), fn)
}

// WatchPane is Watch for a pane log.
func (r *Reader) WatchPane(ctx context.Context, id model.PaneID, fn func(line string)) error {
	return r.watchFile(ctx, r.PanePath(id), fn)
}

func (r *Reader) watchFile(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: log file %s does not exist", mux.ErrNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer f.Close()

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if w, err := fsnotify.NewWatcher(); err != nil {
		r.logger.Debug("fsnotify unavailable, polling only", "error", err)
	} else {
		defer w.Close()
		if err := w.Add(path); err != nil {
			r.logger.Debug("fsnotify add failed, polling only", "path", path, "error", err)
		} else {
			events, watchErrs = w.Events, w.Errors
		}
	}

	br := bufio.NewReader(f)
	var partial strings.Builder
	var offset int64
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		for {
			chunk, err := br.ReadString('\n')
			offset += int64(len(chunk))
			if err == nil {
				partial.WriteString(chunk)
				fn(strings.TrimRight(partial.String(), "\r\n"))
				partial.Reset()
				continue
			}
			partial.WriteString(chunk)
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("reading log: %w", err)
		}

		if info, err := f.Stat(); err == nil && info.Size() < offset {
			if _, err := f.Seek(0, io.SeekStart); err != nil {
				return fmt.Errorf("rewinding truncated log: %w", err)
			}
			br.Reset(f)
			partial.Reset()
			offset = 0
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-events:
		case err := <-watchErrs:
			r.logger.Debug("fsnotify error", "path", path, "error", err)
		case <-ticker.C:
		}
	}
}
