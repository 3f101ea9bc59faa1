// Package routing routes generation requests across multiple LLM providers.
//
// A Router owns a Registry of providers and a global fallback chain. For each
// request it builds the provider chain (the target first, then the eligible
// fallback ids), checks each candidate's rate limits, calls the backend and
// classifies and recovers from failures, either retrying the same provider
// or advancing along the chain. Every admitted call holds one concurrency
// slot that is released on every exit path, including cancellation.
//
// The check and commit of the per-minute counters are separate steps, so two
// concurrent requests may both pass admission before either commits. The
// overshoot is bounded by the number of concurrent callers and is accepted.
package routing
