package routing

import (
	"sync"
	"sync/atomic"
	"time"
)

// AtomicRoutingStats implements thread-safe routing statistics using atomic operations.
// All counters are updated atomically for lock-free performance.
type AtomicRoutingStats struct {
	// totalRequests is the number of Execute and Stream calls
	totalRequests atomic.Int64

	// succeeded is the number of calls served by some provider
	succeeded atomic.Int64

	// requestsPerProvider tracks requests served by each provider
	// Uses sync.Map for thread-safe concurrent access
	requestsPerProvider sync.Map // map[string]*atomic.Int64

	// recoveryUseCount tracks how many times each recovery strategy ran
	recoveryUseCount sync.Map // map[string]*atomic.Int64

	// fallbacks is the number of times a call advanced to the next chain member
	fallbacks atomic.Int64

	// rateLimited is the number of local admission rejections
	rateLimited atomic.Int64

	// errors is the total number of calls that ended in an error
	errors atomic.Int64

	// lastResetTime is when statistics were last reset
	lastResetTime time.Time

	// mu protects lastResetTime
	mu sync.RWMutex
}

// NewAtomicRoutingStats creates a new atomic routing statistics tracker.
func NewAtomicRoutingStats() *AtomicRoutingStats {
	return &AtomicRoutingStats{
		lastResetTime: time.Now(),
	}
}

// IncrementTotal increments the total request counter.
func (s *AtomicRoutingStats) IncrementTotal() {
	s.totalRequests.Add(1)
}

// IncrementSucceeded records a call served by provider.
func (s *AtomicRoutingStats) IncrementSucceeded(provider string) {
	s.succeeded.Add(1)
	increment(&s.requestsPerProvider, provider)
}

// IncrementRecovery increments the counter for a recovery strategy.
func (s *AtomicRoutingStats) IncrementRecovery(strategy string) {
	increment(&s.recoveryUseCount, strategy)
}

// IncrementFallback increments the fallback counter.
func (s *AtomicRoutingStats) IncrementFallback() {
	s.fallbacks.Add(1)
}

// IncrementRateLimited increments the local rate limit rejection counter.
func (s *AtomicRoutingStats) IncrementRateLimited() {
	s.rateLimited.Add(1)
}

// IncrementErrors increments the error counter.
func (s *AtomicRoutingStats) IncrementErrors() {
	s.errors.Add(1)
}

func increment(m *sync.Map, key string) {
	// Get or create counter for this key
	val, _ := m.LoadOrStore(key, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
}

// Snapshot returns a point-in-time snapshot of the statistics.
// The returned RoutingStats struct is safe to read without locks.
func (s *AtomicRoutingStats) Snapshot() *RoutingStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &RoutingStats{
		TotalRequests:       s.totalRequests.Load(),
		Succeeded:           s.succeeded.Load(),
		RequestsPerProvider: collect(&s.requestsPerProvider),
		RecoveryUseCount:    collect(&s.recoveryUseCount),
		Fallbacks:           s.fallbacks.Load(),
		RateLimited:         s.rateLimited.Load(),
		Errors:              s.errors.Load(),
		LastResetTime:       s.lastResetTime,
	}
}

func collect(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(key, value interface{}) bool {
		out[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}

// Reset resets all statistics to zero.
func (s *AtomicRoutingStats) Reset() {
	s.totalRequests.Store(0)
	s.succeeded.Store(0)
	s.fallbacks.Store(0)
	s.rateLimited.Store(0)
	s.errors.Store(0)

	s.requestsPerProvider.Range(func(key, value interface{}) bool {
		s.requestsPerProvider.Delete(key)
		return true
	})
	s.recoveryUseCount.Range(func(key, value interface{}) bool {
		s.recoveryUseCount.Delete(key)
		return true
	})

	s.mu.Lock()
	s.lastResetTime = time.Now()
	s.mu.Unlock()
}
