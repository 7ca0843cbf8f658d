package domain

import "time"

// Compiled defaults. Most can be overridden via configuration.
const (
	// OTP lifecycle
	OTPValidityDuration = 10 * time.Minute // expiresAt = createdAt + validity
	OTPCodeMin          = 1000
	OTPCodeMax          = 9999
	SessionIDPrefix     = "session_"
	DefaultDisplayName  = "User"

	// Gateway call budgets. A timed-out attempt is a definitive failure for that channel.
	ChannelTimeout = 15 * time.Second
	SMSSendTimeout = 10 * time.Second
	BalanceTimeout = 5 * time.Second

	// Gateway response marker for an accepted request.
	GatewayStatusSuccess = "Success"

	// Template SMS defaults
	DefaultTemplateParticipant = "Participant"
	MaxTemplateVars            = 5

	// Rate limiting for OTP issuance. Zero limits disable the check.
	OTPRequestRateLimitPerPhone = 5
	OTPRequestRateLimitPerIP    = 20
	OTPRateLimitWindow          = 15 * time.Minute

	// Timeout contracts
	StoreTimeout = 5 * time.Second
	RedisTimeout = 2 * time.Second

	// Graceful shutdown
	ShutdownDrainDelay  = 2 * time.Second
	ShutdownHTTPTimeout = 15 * time.Second
	ShutdownOTELTimeout = 5 * time.Second

	// HTTP request handling
	RequestTimeout     = 60 * time.Second // covers a full three-channel cascade
	MaxRequestBodySize = 64 * 1024
)

// BalanceCategory identifies a gateway quota bucket.
type BalanceCategory string

const (
	BalancePromotional   BalanceCategory = "PSMS"
	BalanceTransactional BalanceCategory = "SMS"
)

// IsValidBalanceCategory checks if a balance category is supported.
func IsValidBalanceCategory(c BalanceCategory) bool {
	return c == BalancePromotional || c == BalanceTransactional
}
