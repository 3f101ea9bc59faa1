package failure

import "switchboard-hq/relay/pkg/backend"

// UserMessage returns human-readable text for a kind.
func UserMessage(kind backend.ErrorKind) string {
	switch kind {
	case backend.KindNetwork:
		return "Could not reach the provider. Check your network connection."
	case backend.KindTimeout:
		return "The provider did not respond in time."
	case backend.KindTokenExpired:
		return "Your access token has expired."
	case backend.KindTokenInvalid:
		return "Your credentials were rejected by the provider."
	case backend.KindRefreshTokenExpired:
		return "Your session has expired and could not be refreshed."
	case backend.KindRefreshTokenInvalid:
		return "Your saved session is no longer valid."
	case backend.KindAccessDenied:
		return "Access to this provider or model was denied."
	case backend.KindConfiguration:
		return "The provider is not configured correctly."
	case backend.KindRateLimit:
		return "The provider is rate limiting requests."
	case backend.KindServer:
		return "The provider reported an internal error."
	default:
		return "The request failed for an unknown reason."
	}
}
