package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func start(t *testing.T, root string, run RunFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, root, 50*time.Millisecond, quiet, run) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch: %v", err)
		}
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_BurstTriggersOneRun(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "Eyes"), 0o755); err != nil {
		t.Fatal(err)
	}
	var runs atomic.Int32
	start(t, root, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	for _, name := range []string{"Round.png", "Sleepy.png", "Angry#2.png"} {
		_ = os.WriteFile(filepath.Join(root, "Eyes", name), []byte("x"), 0o644)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return runs.Load() >= 1 }, "no run after changes")
	time.Sleep(200 * time.Millisecond)
	if n := runs.Load(); n != 1 {
		t.Errorf("runs = %d, want 1", n)
	}
}

func TestWatch_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	start(t, root, func(context.Context) error {
		runs.Add(1)
		return nil
	})

	dir := filepath.Join(root, "Hat")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 1 }, "mkdir did not trigger a run")

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(dir, "Cap.png"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 2 }, "file in new dir did not trigger a run")
}

func TestWatch_HiddenFilesIgnoredAndErrorsSurvived(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	start(t, root, func(context.Context) error {
		runs.Add(1)
		return errors.New("exhausted")
	})

	_ = os.WriteFile(filepath.Join(root, ".DS_Store"), []byte("x"), 0o644)
	time.Sleep(200 * time.Millisecond)
	if runs.Load() != 0 {
		t.Fatalf("hidden file triggered a run")
	}

	_ = os.WriteFile(filepath.Join(root, "a.png"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 1 }, "no run")
	_ = os.WriteFile(filepath.Join(root, "b.png"), []byte("x"), 0o644)
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return runs.Load() == 2 }, "watcher stopped after a failed run")
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), 0, quiet, func(context.Context) error { return nil })
	if err == nil {
		t.Error("expected error for missing root")
	}
}
