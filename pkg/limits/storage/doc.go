// Package storage provides persistence backends for provider quota windows.
//
// # Overview
//
// The rate limit tracker keeps its per-provider window counters in memory.
// Without persistence a restart in the middle of a 60-second window would hand
// every provider a fresh quota. The storage package lets the tracker snapshot
// its window counters and restore them on startup:
//
//   - Memory: in-process storage (default, lost on exit)
//   - SQLite: file-based persistence using the pure-Go modernc.org/sqlite driver
//
// Concurrency slots are never persisted; in-flight requests do not survive a
// restart.
//
// # Usage
//
//	backend, err := storage.NewSQLiteBackend("/var/lib/relay/quota.db")
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	err = backend.Save(ctx, &storage.QuotaState{
//	    Provider:     "openai",
//	    RequestCount: 12,
//	    TokenCount:   48000,
//	    WindowStart:  windowStart,
//	})
//
//	state, err := backend.Load(ctx, "openai")
//
// # Thread Safety
//
// All storage backends are thread-safe and support concurrent access
// from multiple goroutines. Locking is handled internally by each backend.
package storage
