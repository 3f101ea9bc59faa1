package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnChange(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond), WithLoader(LoadConfig))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	go func() {
		_ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg })
	}()

	// give the watcher time to register the directory
	time.Sleep(50 * time.Millisecond)

	updated := sampleYAML + "\nlimits:\n  storage:\n    backend: sqlite\n"
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Limits.Storage.Backend != "sqlite" {
			t.Errorf("Expected reloaded backend sqlite, got %q", cfg.Limits.Storage.Backend)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected reload callback")
	}
}

func TestWatcher_SkipsInvalidConfig(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond), WithLoader(LoadConfig))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go func() {
		_ = w.Watch(ctx, func(*Config) { calls.Add(1) })
	}()
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("providers: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if calls.Load() != 0 {
		t.Errorf("Expected no reload for invalid config, got %d", calls.Load())
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	var loads atomic.Int32
	loader := func(p string) (*Config, error) {
		loads.Add(1)
		return LoadConfig(p)
	}

	w, err := NewWatcher(path, WithDebounce(20*time.Millisecond), WithLoader(loader))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Watch(ctx, func(*Config) {}) }()
	time.Sleep(50 * time.Millisecond)

	sibling := filepath.Join(filepath.Dir(path), "other.yaml")
	if err := os.WriteFile(sibling, []byte("x: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)

	if loads.Load() != 0 {
		t.Errorf("Expected sibling writes to be ignored, got %d loads", loads.Load())
	}
}

func TestWatcher_WatchTwice(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = w.Watch(ctx, func(*Config) {})
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := w.Watch(ctx, func(*Config) {}); err != ErrWatcherRunning {
		t.Errorf("Expected ErrWatcherRunning, got %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Watch to return after cancel")
	}
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := NewWatcher(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("First Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}
