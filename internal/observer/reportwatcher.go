package observer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReportChangeCallback is called when the analyzer report on disk changes
type ReportChangeCallback func(changedFiles []string)

// ReportWatcher monitors the analyzer output directory for report changes.
// The watch is not recursive: rendered converter output lives in a
// subdirectory and must not feed back into the callback.
type ReportWatcher struct {
	watcher  *fsnotify.Watcher
	callback ReportChangeCallback
	dir      string

	mu       sync.Mutex
	debounce time.Duration
	pending  map[string]struct{}
	timer    *time.Timer

	cancel context.CancelFunc
}

// NewReportWatcher creates a watcher for the given output directory
func NewReportWatcher(dir string, callback ReportChangeCallback) (*ReportWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Create the directory so the watch can attach before the first run
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	return &ReportWatcher{
		watcher:  watcher,
		callback: callback,
		dir:      dir,
		debounce: 500 * time.Millisecond, // Batch rapid writes from one analysis run
		pending:  make(map[string]struct{}),
	}, nil
}

// Start begins watching for file changes
func (rw *ReportWatcher) Start(ctx context.Context) {
	ctx, rw.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-rw.watcher.Events:
				if !ok {
					return
				}
				rw.handleEvent(event)
			case _, ok := <-rw.watcher.Errors:
				if !ok {
					return
				}
				// Keep watching on transient errors
			}
		}
	}()
}

// Stop stops watching for file changes
func (rw *ReportWatcher) Stop() {
	if rw.cancel != nil {
		rw.cancel()
	}
	rw.watcher.Close()
}

func (rw *ReportWatcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	// Only direct children of the output dir count as report files
	if filepath.Dir(event.Name) != filepath.Clean(rw.dir) {
		return
	}
	if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
		return
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	rw.pending[event.Name] = struct{}{}

	if rw.timer != nil {
		rw.timer.Stop()
	}
	rw.timer = time.AfterFunc(rw.debounce, rw.flush)
}

func (rw *ReportWatcher) flush() {
	rw.mu.Lock()
	pending := rw.pending
	rw.pending = make(map[string]struct{})
	rw.mu.Unlock()

	if rw.callback == nil || len(pending) == 0 {
		return
	}

	files := make([]string, 0, len(pending))
	for f := range pending {
		files = append(files, f)
	}
	rw.callback(files)
}

// SetDebounce sets the debounce duration for batching file changes
func (rw *ReportWatcher) SetDebounce(d time.Duration) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.debounce = d
}
