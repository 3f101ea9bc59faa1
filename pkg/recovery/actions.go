package recovery

import (
	"fmt"

	"switchboard-hq/relay/pkg/backend"
)

// UserActions returns the ordered remediation steps shown to the user for a
// failure kind.
func UserActions(kind backend.ErrorKind, provider string) []string {
	switch kind {
	case backend.KindNetwork:
		return []string{
			"Check your internet connection",
			"Check whether a proxy or firewall blocks " + provider,
			"Try again in a few moments",
		}
	case backend.KindTimeout:
		return []string{
			"Try again in a few moments",
			fmt.Sprintf("Check the %s status page for incidents", provider),
			"Reduce the size of the request",
		}
	case backend.KindServer:
		return []string{
			fmt.Sprintf("Check the %s status page for incidents", provider),
			"Try again later",
			"Switch to a different provider",
		}
	case backend.KindRateLimit:
		return []string{
			"Wait a minute before sending more requests",
			fmt.Sprintf("Lower the request rate configured for %s", provider),
			"Switch to a different provider",
		}
	case backend.KindTokenExpired, backend.KindTokenInvalid,
		backend.KindRefreshTokenExpired, backend.KindRefreshTokenInvalid:
		return []string{
			fmt.Sprintf("Sign in to %s again", provider),
			"Switch to API key authentication",
		}
	case backend.KindAccessDenied:
		return []string{
			fmt.Sprintf("Confirm your %s account has access to the requested model", provider),
			fmt.Sprintf("Sign in to %s again", provider),
			"Switch to API key authentication",
		}
	case backend.KindConfiguration:
		return []string{
			fmt.Sprintf("Check the configuration for %s", provider),
			"Run `relay validate` to find the problem",
		}
	default:
		return []string{
			"Try again",
			"Switch to a different provider",
		}
	}
}
