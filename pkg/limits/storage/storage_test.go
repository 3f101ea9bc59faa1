package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// backendFactories lets every contract test run against both backends.
func backendFactories(t *testing.T) map[string]func() Backend {
	return map[string]func() Backend{
		"memory": func() Backend { return NewMemoryBackend() },
		"sqlite": func() Backend {
			b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "quota.db"))
			if err != nil {
				t.Fatalf("Failed to create SQLite backend: %v", err)
			}
			return b
		},
	}
}

func TestBackend_SaveLoad(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			start := time.UnixMilli(1_700_000_000_000)
			state := &QuotaState{
				Provider:     "openai",
				RequestCount: 4,
				TokenCount:   1200,
				WindowStart:  start,
				UpdatedAt:    start.Add(10 * time.Second),
			}
			if err := backend.Save(ctx, state); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := backend.Load(ctx, "openai")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded == nil {
				t.Fatal("Expected state, got nil")
			}
			if loaded.RequestCount != 4 || loaded.TokenCount != 1200 {
				t.Errorf("Expected counts 4/1200, got %d/%d", loaded.RequestCount, loaded.TokenCount)
			}
			if !loaded.WindowStart.Equal(start) {
				t.Errorf("Expected window start %v, got %v", start, loaded.WindowStart)
			}
		})
	}
}

func TestBackend_Upsert(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			now := time.Now()
			_ = backend.Save(ctx, &QuotaState{Provider: "anthropic", RequestCount: 1, WindowStart: now})
			_ = backend.Save(ctx, &QuotaState{Provider: "anthropic", RequestCount: 7, TokenCount: 50, WindowStart: now})

			loaded, err := backend.Load(ctx, "anthropic")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded.RequestCount != 7 || loaded.TokenCount != 50 {
				t.Errorf("Expected upserted counts 7/50, got %d/%d", loaded.RequestCount, loaded.TokenCount)
			}

			states, _ := backend.List(ctx)
			if len(states) != 1 {
				t.Errorf("Expected 1 state after upsert, got %d", len(states))
			}
		})
	}
}

func TestBackend_LoadMissing(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()

			loaded, err := backend.Load(context.Background(), "missing")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if loaded != nil {
				t.Errorf("Expected nil state, got %+v", loaded)
			}
		})
	}
}

func TestBackend_Validation(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			if err := backend.Save(ctx, nil); !errors.Is(err, ErrNilState) {
				t.Errorf("Expected ErrNilState, got %v", err)
			}
			if err := backend.Save(ctx, &QuotaState{}); !errors.Is(err, ErrEmptyProvider) {
				t.Errorf("Expected ErrEmptyProvider, got %v", err)
			}
			if err := backend.Save(ctx, &QuotaState{Provider: "x", RequestCount: -1}); err == nil {
				t.Error("Expected error for negative counter")
			}
			if _, err := backend.Load(ctx, ""); !errors.Is(err, ErrEmptyProvider) {
				t.Errorf("Expected ErrEmptyProvider, got %v", err)
			}
			if err := backend.Delete(ctx, ""); !errors.Is(err, ErrEmptyProvider) {
				t.Errorf("Expected ErrEmptyProvider, got %v", err)
			}
		})
	}
}

func TestBackend_DeleteAndList(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			for _, p := range []string{"openai", "anthropic", "google"} {
				if err := backend.Save(ctx, &QuotaState{Provider: p, WindowStart: time.Now()}); err != nil {
					t.Fatalf("Save failed: %v", err)
				}
			}

			if err := backend.Delete(ctx, "google"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}
			// Deleting twice is a no-op.
			if err := backend.Delete(ctx, "google"); err != nil {
				t.Fatalf("Second delete failed: %v", err)
			}

			states, err := backend.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(states) != 2 {
				t.Fatalf("Expected 2 states, got %d", len(states))
			}
			if states[0].Provider != "anthropic" || states[1].Provider != "openai" {
				t.Errorf("Expected sorted [anthropic openai], got [%s %s]", states[0].Provider, states[1].Provider)
			}
		})
	}
}

func TestBackend_Cleanup(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			now := time.Now()
			_ = backend.Save(ctx, &QuotaState{Provider: "stale", UpdatedAt: now.Add(-2 * time.Hour)})
			_ = backend.Save(ctx, &QuotaState{Provider: "fresh", UpdatedAt: now})

			deleted, err := backend.Cleanup(ctx, now.Add(-time.Hour))
			if err != nil {
				t.Fatalf("Cleanup failed: %v", err)
			}
			if deleted != 1 {
				t.Errorf("Expected 1 deleted, got %d", deleted)
			}

			if s, _ := backend.Load(ctx, "stale"); s != nil {
				t.Error("Expected stale state to be removed")
			}
			if s, _ := backend.Load(ctx, "fresh"); s == nil {
				t.Error("Expected fresh state to remain")
			}
		})
	}
}

func TestBackend_ConcurrentAccess(t *testing.T) {
	for name, factory := range backendFactories(t) {
		t.Run(name, func(t *testing.T) {
			backend := factory()
			defer backend.Close()
			ctx := context.Background()

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func(n int) {
					defer wg.Done()
					_ = backend.Save(ctx, &QuotaState{Provider: "shared", RequestCount: int64(n), WindowStart: time.Now()})
					_, _ = backend.Load(ctx, "shared")
				}(i)
			}
			wg.Wait()

			states, err := backend.List(ctx)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(states) != 1 {
				t.Errorf("Expected 1 state, got %d", len(states))
			}
		})
	}
}

func TestMemoryBackend_SaveCopiesState(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()

	state := &QuotaState{Provider: "openai", RequestCount: 1}
	_ = backend.Save(ctx, state)
	state.RequestCount = 99

	loaded, _ := backend.Load(ctx, "openai")
	if loaded.RequestCount != 1 {
		t.Errorf("Expected stored copy to be isolated, got %d", loaded.RequestCount)
	}
	if backend.Size() != 1 {
		t.Errorf("Expected size 1, got %d", backend.Size())
	}
}
