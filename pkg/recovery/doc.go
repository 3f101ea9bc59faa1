// Package recovery selects and runs a recovery strategy after a classified
// provider failure.
//
// Attempts are counted per (provider, operation) Key. Every call to
// Manager.Recover increments the key's count before a strategy is chosen, so
// the first failure is attempt 1. A successful request or an explicit Reset
// clears the count.
//
// Strategy selection:
//
//	attempt >= maxRetries                 fallback_to_api_key if an alternate
//	                                      credential exists, else user_intervention
//	network / timeout / server            retry while attempt < 2, else user_intervention
//	token_expired / token_invalid         refresh_tokens
//	refresh_token_* / access_denied       clear_and_restart
//	configuration_error                   no_recovery
//	rate_limit_exceeded                   retry
//	anything else                         fallback_to_api_key or user_intervention
//
// Only the retry strategy waits. The wait honours context cancellation and
// blocks nothing but the calling goroutine.
package recovery
