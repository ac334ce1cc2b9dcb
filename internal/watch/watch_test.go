// Tests for the directory watcher: construction, filtered event delivery,
// close semantics, and the polling fallback. Exercises [New], [NewFile],
// [Watcher.Events], [Watcher.Close], and [Watcher.Polling].
package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func isJSON(name string) bool { return strings.HasSuffix(name, ".json") }

// expectEvent fails the test unless an event arrives within d.
func expectEvent(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
	case <-time.After(d):
		t.Fatal("timed out waiting for event")
	}
}

// expectNoEvent fails the test if an event arrives within d.
func expectNoEvent(t *testing.T, w *Watcher, d time.Duration) {
	t.Helper()
	select {
	case <-w.Events():
		t.Fatal("unexpected event")
	case <-time.After(d):
	}
}

// ///////////////////////////////////////////////
// Constructor Tests
// ///////////////////////////////////////////////

func TestNewConstructor(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string // returns directory to watch
		wantErr bool
	}{
		{
			name: "existing directory",
			setup: func(t *testing.T) string {
				t.Helper()
				return t.TempDir()
			},
		},
		{
			name: "missing directory",
			setup: func(t *testing.T) string {
				t.Helper()
				return filepath.Join(t.TempDir(), "nope")
			},
			wantErr: true,
		},
		{
			name: "regular file",
			setup: func(t *testing.T) string {
				t.Helper()
				path := filepath.Join(t.TempDir(), "file")
				os.WriteFile(path, nil, 0o644)
				return path
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New(tt.setup(t), Options{})
			if tt.wantErr {
				if err == nil {
					w.Close()
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if w.Events() == nil {
				t.Error("Events() channel is nil")
			}
			if err := w.Close(); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

// ///////////////////////////////////////////////
// Event Tests
// ///////////////////////////////////////////////

func TestNewFileEventFires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	w, err := New(dir, Options{Filter: isJSON, PollInterval: 100 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	// Give the watcher a moment to initialise.
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "job.json"), []byte(`{}`), 0o644)
	expectEvent(t, w, 5*time.Second)
}

func TestFilteredFilesIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	w, err := New(dir, Options{Filter: isJSON, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	expectNoEvent(t, w, 400*time.Millisecond)
}

func TestMultipleWritesCoalesce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	w, err := New(dir, Options{Filter: isJSON})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)

	// Rapid successive writes should coalesce into one (or a small number of) events
	// because the events channel is buffered to 1.
	for i := 0; i < 10; i++ {
		os.WriteFile(filepath.Join(dir, "job.json"), []byte(strings.Repeat("x", i)), 0o644)
	}
	expectEvent(t, w, 5*time.Second)
	if len(w.events) > 1 {
		t.Errorf("pending events = %d, want at most 1", len(w.events))
	}
}

func TestNewFileWatchesSingleFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "memes.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w, err := NewFile(path, Options{PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	defer w.Close()
	if w.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", w.Dir(), dir)
	}

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o644)
	expectNoEvent(t, w, 300*time.Millisecond)

	// Replace the file via rename, the way editors save.
	tmp := filepath.Join(dir, ".memes.json.tmp")
	os.WriteFile(tmp, []byte(`{"drake":{}}`), 0o644)
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	expectEvent(t, w, 5*time.Second)
}

// ///////////////////////////////////////////////
// Close Tests
// ///////////////////////////////////////////////

func TestCloseStopsEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow watcher test in short mode")
	}

	dir := t.TempDir()
	w, err := New(dir, Options{Filter: isJSON, PollInterval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(filepath.Join(dir, "job.json"), []byte(`{}`), 0o644)
	expectNoEvent(t, w, 500*time.Millisecond)
}

func TestCloseIdempotent(t *testing.T) {
	w, err := New(t.TempDir(), Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Calling Close multiple times should not panic or error.
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

// ///////////////////////////////////////////////
// Poll Tests
// ///////////////////////////////////////////////

func TestPollDetectsNewAndModifiedFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	dir := t.TempDir()
	existing := filepath.Join(dir, "a.json")
	os.WriteFile(existing, []byte(`{}`), 0o644)

	w, err := New(dir, Options{Filter: isJSON, PollInterval: 50 * time.Millisecond, ForcePolling: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()
	if !w.Polling() {
		t.Fatal("Polling() = false with ForcePolling")
	}

	// Let the initial scan settle.
	time.Sleep(100 * time.Millisecond)

	// A file moved in with an old modification time still counts.
	old := time.Now().Add(-time.Hour)
	added := filepath.Join(dir, "b.json")
	os.WriteFile(added, []byte(`{}`), 0o644)
	os.Chtimes(added, old, old)
	expectEvent(t, w, 3*time.Second)

	// Touch the existing file with a future mod time.
	future := time.Now().Add(time.Second)
	os.Chtimes(existing, future, future)
	expectEvent(t, w, 3*time.Second)
}

func TestPollReportsChangeRightAfterStart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	tests := []struct {
		name  string
		start func(dir, path string) (*Watcher, error)
	}{
		{"New", func(dir, _ string) (*Watcher, error) {
			return New(dir, Options{Filter: isJSON, PollInterval: 20 * time.Millisecond, ForcePolling: true})
		}},
		{"NewFile", func(_, path string) (*Watcher, error) {
			return NewFile(path, Options{PollInterval: 20 * time.Millisecond, ForcePolling: true})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "memes.json")
			os.WriteFile(path, []byte(`{}`), 0o644)

			w, err := tt.start(dir, path)
			if err != nil {
				t.Fatalf("start: %v", err)
			}
			defer w.Close()

			// No settle delay: the write races the polling goroutine's start.
			if err := os.WriteFile(path, []byte(`{"stonks":{}}`), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			expectEvent(t, w, 3*time.Second)
		})
	}
}

func TestPollIgnoresRemovals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow polling test in short mode")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	os.WriteFile(path, []byte(`{}`), 0o644)

	w, err := New(dir, Options{Filter: isJSON, PollInterval: 50 * time.Millisecond, ForcePolling: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	time.Sleep(100 * time.Millisecond)
	os.Remove(path)
	expectNoEvent(t, w, 300*time.Millisecond)
}

func TestChanged(t *testing.T) {
	now := time.Now()
	base := map[string]fileStamp{"a": {mod: now, size: 1}}

	tests := []struct {
		name string
		cur  map[string]fileStamp
		want bool
	}{
		{"identical", map[string]fileStamp{"a": {mod: now, size: 1}}, false},
		{"removed", map[string]fileStamp{}, false},
		{"added", map[string]fileStamp{"a": {mod: now, size: 1}, "b": {mod: now}}, true},
		{"resized", map[string]fileStamp{"a": {mod: now, size: 2}}, true},
		{"touched", map[string]fileStamp{"a": {mod: now.Add(time.Second), size: 1}}, true},
	}
	for _, tt := range tests {
		if got := changed(base, tt.cur); got != tt.want {
			t.Errorf("%s: changed = %v, want %v", tt.name, got, tt.want)
		}
	}
}
