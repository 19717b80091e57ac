package confloader

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_NotifiesOnWrite(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "cli.yaml")
	otherFile := filepath.Join(dir, "other.yaml")
	if err := os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Stop()

	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 16)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()

	// Writes to unrelated files in the same directory are ignored.
	if err := os.WriteFile(otherFile, []byte("x: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got != configFile {
			t.Errorf("callback path = %q, want %q", got, configFile)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_WatchMissingDir(t *testing.T) {
	w, err := NewWatcher(WithWatcherLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := w.Watch("/nonexistent-dir/cli.yaml"); err == nil {
		t.Error("Watch() on missing directory should fail")
	}
}
