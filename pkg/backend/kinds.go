package backend

// ErrorKind is the canonical failure taxonomy vendor and transport errors are
// mapped into.
type ErrorKind string

// Canonical error kinds.
const (
	KindNetwork             ErrorKind = "network_error"
	KindTimeout             ErrorKind = "timeout_error"
	KindTokenExpired        ErrorKind = "token_expired"
	KindTokenInvalid        ErrorKind = "token_invalid"
	KindRefreshTokenExpired ErrorKind = "refresh_token_expired"
	KindRefreshTokenInvalid ErrorKind = "refresh_token_invalid"
	KindAccessDenied        ErrorKind = "access_denied"
	KindConfiguration       ErrorKind = "configuration_error"
	KindRateLimit           ErrorKind = "rate_limit_exceeded"
	KindServer              ErrorKind = "server_error"
	KindUnknown             ErrorKind = "unknown"
)

// Code is the standardized error code surfaced to callers.
type Code string

// Surfaced error codes.
const (
	CodeNetworkError  Code = "NETWORK_ERROR"
	CodeTimeout       Code = "TIMEOUT"
	CodeAuthFailed    Code = "AUTH_FAILED"
	CodeInvalidConfig Code = "INVALID_CONFIG"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeAPIError      Code = "API_ERROR"
)

// AllKinds lists every kind in classification precedence order.
var AllKinds = []ErrorKind{
	KindNetwork,
	KindTimeout,
	KindTokenExpired,
	KindTokenInvalid,
	KindRefreshTokenExpired,
	KindRefreshTokenInvalid,
	KindAccessDenied,
	KindConfiguration,
	KindRateLimit,
	KindServer,
	KindUnknown,
}

// Code returns the surfaced code for the kind. Unrecognized kinds map to API_ERROR.
func (k ErrorKind) Code() Code {
	switch k {
	case KindNetwork:
		return CodeNetworkError
	case KindTimeout:
		return CodeTimeout
	case KindTokenExpired, KindTokenInvalid,
		KindRefreshTokenExpired, KindRefreshTokenInvalid,
		KindAccessDenied:
		return CodeAuthFailed
	case KindConfiguration:
		return CodeInvalidConfig
	case KindRateLimit:
		return CodeRateLimited
	default:
		return CodeAPIError
	}
}

// Transient reports whether the kind is retried locally before surfacing.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindNetwork, KindTimeout, KindServer, KindRateLimit:
		return true
	default:
		return false
	}
}

// Credential reports whether the kind is an authentication/authorization failure.
func (k ErrorKind) Credential() bool {
	return k.Code() == CodeAuthFailed
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	return string(k)
}
