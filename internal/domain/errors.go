package domain

import "errors"

// Sentinel errors for domain error conditions.
// Use errors.Is() for matching - never compare error strings.
var (
	// ID validation errors
	ErrEmptyID   = errors.New("ID cannot be empty")
	ErrInvalidID = errors.New("invalid ID format")

	// Resource errors
	ErrNotFound = errors.New("resource not found")

	// Validation errors
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidPhoneNumber = errors.New("invalid phone number")

	// Operational errors
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrPhoneRateLimited  = errors.New("phone number rate limit exceeded")
	ErrIPRateLimited     = errors.New("IP address rate limit exceeded")
	ErrUnavailable       = errors.New("service temporarily unavailable")
	ErrStoreUnavailable  = errors.New("persistence store unavailable")
	ErrGatewayRejected   = errors.New("SMS gateway rejected the request")
	ErrGatewayTransport  = errors.New("SMS gateway unreachable")
	ErrUnknownDelivery   = errors.New("unknown delivery method")
	ErrChannelNotEnabled = errors.New("no delivery channel configured")

	// OTP lifecycle errors
	ErrDeliveryFailure         = errors.New("all SMS channels failed")
	ErrExpiredOrInvalidSession = errors.New("OTP expired or invalid session")
	ErrOTPExpired              = errors.New("OTP has expired")
	ErrInvalidOTP              = errors.New("invalid OTP")
	ErrSessionAlreadyExists    = errors.New("OTP session already exists")
	ErrSessionAlreadyConsumed  = errors.New("OTP session already verified")

	// Configuration errors
	ErrConfigRequired = errors.New("required configuration key missing")
)

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrPhoneRateLimited) ||
		errors.Is(err, ErrIPRateLimited) ||
		errors.Is(err, ErrDeliveryFailure)
}

// clientErrors enumerates all domain errors that represent client-side issues.
var clientErrors = []error{
	ErrInvalidInput,
	ErrInvalidPhoneNumber,
	ErrNotFound,
	ErrEmptyID,
	ErrInvalidID,
	ErrInvalidOTP,
	ErrOTPExpired,
	ErrExpiredOrInvalidSession,
	ErrSessionAlreadyConsumed,
}

// IsClientError returns true if the error represents a client-side issue
// that will not succeed on retry without client-side changes.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true if the error represents a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
