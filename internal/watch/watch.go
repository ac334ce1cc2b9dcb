// Package watch signals changes to matching files in a directory. It uses
// fsnotify when the platform supports it and falls back to periodic
// directory scans otherwise, or when fsnotify reports an error.
//
// Events carry no payload: receivers rescan whatever they care about.
// Signals coalesce, so a burst of changes yields one pending event.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the scan interval when none is configured.
const DefaultPollInterval = 2 * time.Second

// Filter reports whether a file name (base name, no directory) is of interest.
type Filter func(name string) bool

// Options configures a [Watcher].
type Options struct {
	// Filter selects the files whose changes produce events. Nil matches
	// every file.
	Filter Filter
	// PollInterval is the scan interval in polling mode.
	PollInterval time.Duration
	// ForcePolling skips fsnotify entirely.
	ForcePolling bool
	// Logger receives mode switches. Nil uses slog.Default().
	Logger *slog.Logger
}

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher monitors a directory for changes using fsnotify with a polling fallback.
type Watcher struct {
	// dir is the directory being monitored.
	dir string
	// filter selects relevant file names.
	filter Filter
	// log receives mode switches.
	log *slog.Logger
	// events delivers a signal each time a matching file changes.
	// The channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// mu guards fsw, which the event loop clears when it falls back.
	mu sync.Mutex
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to directory scans.
	polling atomic.Bool
	// pollInterval is the duration between scans in polling mode.
	pollInterval time.Duration
}

// New creates a Watcher for dir. The directory must exist.
func New(dir string, opts Options) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	w := &Watcher{
		dir:          dir,
		filter:       opts.Filter,
		log:          opts.Logger,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: opts.PollInterval,
	}
	if w.filter == nil {
		w.filter = func(string) bool { return true }
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if w.pollInterval <= 0 {
		w.pollInterval = DefaultPollInterval
	}

	if opts.ForcePolling {
		w.startPolling()
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Info("fsnotify unavailable, falling back to polling", "dir", dir, "error", err)
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(dir); err != nil {
		w.log.Info("cannot watch directory, falling back to polling", "dir", dir, "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}

	w.fsw = fsw
	go w.watch(fsw)
	return w, nil
}

// NewFile creates a Watcher for a single file by watching its parent
// directory. Watching the directory keeps working when editors replace the
// file with a rename.
func NewFile(path string, opts Options) (*Watcher, error) {
	base := filepath.Base(path)
	opts.Filter = func(name string) bool { return name == base }
	return New(filepath.Dir(path), opts)
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when a matching file changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
			w.fsw = nil
		}
	})
	return err
}

// watch loops over fsnotify events, forwarding write, create, and rename
// notifications for matching files. On an fsnotify error it closes the
// native watcher and falls back to polling.
func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if w.filter(filepath.Base(event.Name)) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.log.Info("fsnotify error, switching to polling", "dir", w.dir, "error", err)
			w.mu.Lock()
			if w.fsw != nil {
				w.fsw.Close()
				w.fsw = nil
			}
			w.mu.Unlock()
			w.startPolling()
			return
		}
	}
}

// startPolling switches to directory scans. The baseline is taken before
// returning so a change made right after New or NewFile is still seen.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll(w.snapshot())
}

// poll periodically scans the directory and sends a notification when the
// set of matching files, or any of their sizes or modification times,
// differs from last.
func (w *Watcher) poll(last map[string]fileStamp) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.snapshot()
			if changed(last, cur) {
				w.notify()
			}
			last = cur
		}
	}
}

// fileStamp is what polling compares between scans.
type fileStamp struct {
	mod  time.Time
	size int64
}

// snapshot stamps every matching regular file in the directory. A missing
// or unreadable directory yields an empty snapshot.
func (w *Watcher) snapshot() map[string]fileStamp {
	snap := map[string]fileStamp{}
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return snap
	}
	for _, e := range entries {
		if e.IsDir() || !w.filter(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		snap[e.Name()] = fileStamp{mod: info.ModTime(), size: info.Size()}
	}
	return snap
}

// changed reports whether cur differs from prev by an added or modified
// file. Removals alone do not count.
func changed(prev, cur map[string]fileStamp) bool {
	for name, st := range cur {
		old, ok := prev[name]
		if !ok || !old.mod.Equal(st.mod) || old.size != st.size {
			return true
		}
	}
	return false
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
		// Channel already has a pending event, skip
	}
}
