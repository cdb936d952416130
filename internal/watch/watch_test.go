package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNew_RejectsFiles(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "main.go")
	if err := os.WriteFile(file, []byte("package main"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := New(file, 0); err == nil {
		t.Error("New should reject a non-directory root")
	}
}

func TestNew_RejectsMissingRoot(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing"), 0); err == nil {
		t.Error("New should reject a missing root")
	}
}

func TestWatcher_DebouncesBurstIntoSingleCallback(t *testing.T) {
	tmp := t.TempDir()
	w, err := New(tmp, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}()

	// A burst of writes inside the debounce window.
	for i := 0; i < 5; i++ {
		path := filepath.Join(tmp, "app.py")
		if err := os.WriteFile(path, []byte("print('hi')"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Wait for the debounce to settle.
	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("callback never fired")
		case <-time.After(20 * time.Millisecond):
		}
	}

	// Give a moment for any spurious extra callbacks.
	time.Sleep(300 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callback fired %d times for one burst, want 1", got)
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
}

func TestWatcher_IgnoresSkippedDirs(t *testing.T) {
	tmp := t.TempDir()
	gitDir := filepath.Join(tmp, ".git")
	if err := os.MkdirAll(gitDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, err := New(tmp, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	if w.relevant(fsnotify.Event{Name: filepath.Join(gitDir, "HEAD"), Op: fsnotify.Write}) {
		t.Error("events under .git should be irrelevant")
	}
	if w.relevant(fsnotify.Event{Name: filepath.Join(tmp, ".hidden"), Op: fsnotify.Write}) {
		t.Error("dotfile events should be irrelevant")
	}
	if !w.relevant(fsnotify.Event{Name: filepath.Join(tmp, "server.js"), Op: fsnotify.Write}) {
		t.Error("source file events should be relevant")
	}
	if w.relevant(fsnotify.Event{Name: filepath.Join(tmp, "server.js"), Op: fsnotify.Chmod}) {
		t.Error("chmod-only events should be irrelevant")
	}
}
