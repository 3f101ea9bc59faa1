// Package limits holds per-provider quota enforcement for the router.
//
// # Architecture
//
//   - ratelimit: the quota tracker (requests and tokens per rolling
//     minute window, plus concurrent in-flight requests)
//   - storage: persistence of tracker snapshots (memory, SQLite)
//
// The tracker is the only component that decides whether a provider has
// quota left. The router checks it before each attempt and commits usage
// after a success; the two steps are not atomic, so concurrent requests may
// briefly overshoot a limit by the number of in-flight requests.
//
// # Usage
//
//	tracker := ratelimit.NewTracker(clock.Real())
//	tracker.Configure("openai", &ratelimit.Limits{RequestsPerMinute: 60})
//
//	if tracker.Check("openai", estimatedTokens) {
//	    release := tracker.Acquire("openai")
//	    // call the provider, then
//	    release()
//	    tracker.Update("openai", ratelimit.DimensionRequests, 1)
//	}
//
//	store, _ := storage.NewSQLiteBackend("relay.db")
//	tracker.SaveTo(ctx, store)
package limits
