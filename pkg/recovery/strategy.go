package recovery

import (
	"math"
	"time"

	"switchboard-hq/relay/pkg/backend"
)

// transientRetryCeiling bounds automatic retries for transport, timeout and
// server failures independently of maxRetries.
const transientRetryCeiling = 2

// SelectStrategy picks the strategy for a failure at the given attempt number.
// attempt counts the current failure, so the first failure is attempt 1.
func SelectStrategy(kind backend.ErrorKind, attempt, maxRetries int, hasAlternateAuth bool) Strategy {
	escalate := StrategyUserIntervention
	if hasAlternateAuth {
		escalate = StrategyFallbackToAPIKey
	}

	if attempt >= maxRetries {
		return escalate
	}

	switch kind {
	case backend.KindNetwork, backend.KindTimeout, backend.KindServer:
		if attempt < transientRetryCeiling {
			return StrategyRetry
		}
		return StrategyUserIntervention
	case backend.KindTokenExpired, backend.KindTokenInvalid:
		return StrategyRefreshTokens
	case backend.KindRefreshTokenExpired, backend.KindRefreshTokenInvalid, backend.KindAccessDenied:
		return StrategyClearAndRestart
	case backend.KindConfiguration:
		return StrategyNoRecovery
	case backend.KindRateLimit:
		return StrategyRetry
	default:
		return escalate
	}
}

// BackoffDelay returns the wait before retry number attempt.
// With backoff the delay is base * 2^(attempt-1); without it the delay is
// base. The result never exceeds max; with no max it saturates at the
// largest Duration instead of overflowing.
func BackoffDelay(attempt int, base, max time.Duration, useBackoff bool) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	if useBackoff && attempt > 1 {
		for i := 1; i < attempt; i++ {
			if delay > math.MaxInt64/2 {
				delay = math.MaxInt64
				break
			}
			delay *= 2
			if max > 0 && delay >= max {
				return max
			}
		}
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}
