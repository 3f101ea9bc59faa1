// Package failure maps raw vendor and transport errors into the canonical
// backend.ErrorKind taxonomy.
//
// Classify is total and deterministic: every error, including nil, maps to
// exactly one kind, and the same error always maps to the same kind.
// Classification reads structured fields first (HTTP status, vendor status
// strings such as RESOURCE_EXHAUSTED, vendor error type and code, syscall
// errno) and falls back to message substrings.
//
// Precedence, most specific first:
//
//  1. transport / connectivity       network_error
//  2. timeout                        timeout_error
//  3. vendor auth and token errors   token_*, refresh_token_*, access_denied
//  4. configuration                  configuration_error
//  5. rate limit signals             rate_limit_exceeded
//  6. server side                    server_error
//  7. anything else                  unknown
//
// Caller cancellation (context.Canceled) classifies as unknown. It is not a
// provider fault and the router surfaces it directly.
package failure
