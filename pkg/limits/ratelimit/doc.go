// Package ratelimit tracks per-provider request, token, and concurrency quotas.
//
// # Overview
//
// Each provider gets its own RateLimitState:
//
//   - requests per minute, counted in a fixed 60-second window
//   - tokens per minute, counted in the same window
//   - concurrent in-flight requests, a live gauge that is never window scoped
//
// Windows are reset lazily. There is no timer: whenever a provider is checked
// or updated and at least Window has elapsed since the window opened, the
// window counters are treated as zero.
//
// # Admission
//
// The router performs a check-then-commit sequence:
//
//	if !tracker.Check("openai", pendingTokens) {
//	    // advance to the next provider
//	}
//	release := tracker.Acquire("openai")
//	defer release()
//	// ... call the backend ...
//	tracker.Update("openai", ratelimit.DimensionRequests, 1)
//	tracker.Update("openai", ratelimit.DimensionTokens, usage.TotalTokens)
//
// Check and Update are each atomic, but the pair is not. Two callers may both
// pass Check before either commits, so a provider can overshoot its per-minute
// quota slightly under heavy interleaving. This is a lenient bound and callers
// that need a strict limit must serialize around the pair themselves.
//
// # Thread Safety
//
// Tracker is safe for concurrent use. Window counters are guarded by a
// per-provider mutex; the concurrency gauge uses atomic operations.
package ratelimit
