package failure

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"switchboard-hq/relay/pkg/backend"
)

func genDetails() *rapid.Generator[Details] {
	return rapid.Custom(func(t *rapid.T) Details {
		return Details{
			Message:     rapid.SampledFrom([]string{"", "rate limit", "token expired", "connection refused", "internal error", "weird", "invalid_grant"}).Draw(t, "message"),
			StatusCode:  rapid.SampledFrom([]int{0, 200, 400, 401, 403, 404, 408, 429, 500, 503}).Draw(t, "status_code"),
			Status:      rapid.SampledFrom([]string{"", "RESOURCE_EXHAUSTED", "UNAVAILABLE", "PERMISSION_DENIED"}).Draw(t, "status"),
			Code:        rapid.SampledFrom([]string{"", "invalid_grant", "access_denied", "invalid_client", "ECONNRESET"}).Draw(t, "code"),
			Transport:   rapid.Bool().Draw(t, "transport"),
			Timeout:     rapid.Bool().Draw(t, "timeout"),
			Auth:        rapid.Bool().Draw(t, "auth"),
			Refresh:     rapid.Bool().Draw(t, "refresh"),
			Config:      rapid.Bool().Draw(t, "config"),
			RateLimited: rapid.Bool().Draw(t, "rate_limited"),
		}
	})
}

// Classification is total and deterministic.
func TestProperty_DeterministicClassification(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d := genDetails().Draw(rt, "details")

		first := ClassifyDetails(d)
		for i := 0; i < 5; i++ {
			assert.Equal(rt, first, ClassifyDetails(d))
		}
		assert.True(rt, slices.Contains(backend.AllKinds, first), "unexpected kind %q", first)
	})
}

func TestProperty_DeterministicClassificationOfText(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		msg := rapid.String().Draw(rt, "message")
		err := errors.New(msg)

		first := Classify(err)
		assert.Equal(rt, first, Classify(err))
		assert.Equal(rt, first, Classify(errors.New(msg)))
		assert.True(rt, slices.Contains(backend.AllKinds, first), "unexpected kind %q", first)
	})
}
