// Package app holds the OTP issuance and verification use cases. It owns the
// channel cascade policy; adapters only perform single delivery attempts.
package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/zonixt/eauction/internal/domain"
)

var tracer = otel.Tracer("verification/app")

var (
	otpIssuedTotal           metric.Int64Counter
	channelFailuresTotal     metric.Int64Counter
	deliveryFailuresTotal    metric.Int64Counter
	verifyTotal              metric.Int64Counter
	rateLimitsTotal          metric.Int64Counter
	storeFailuresTotal       metric.Int64Counter
	deliveryAttemptsPerIssue metric.Int64Histogram
)

func init() {
	m := otel.Meter("verification/app")

	otpIssuedTotal, _ = m.Int64Counter("otp.issued.total",
		metric.WithDescription("OTPs delivered and persisted, by delivery method"))
	channelFailuresTotal, _ = m.Int64Counter("otp.channel.failures.total",
		metric.WithDescription("Failed delivery attempts, by channel"))
	deliveryFailuresTotal, _ = m.Int64Counter("otp.delivery.failures.total",
		metric.WithDescription("Issuance calls where every channel failed"))
	verifyTotal, _ = m.Int64Counter("otp.verify.total",
		metric.WithDescription("OTP verification attempts, by result"))
	rateLimitsTotal, _ = m.Int64Counter("otp.rate_limits.total",
		metric.WithDescription("OTP requests rejected by rate limiting"))
	storeFailuresTotal, _ = m.Int64Counter("otp.store.failures.total",
		metric.WithDescription("OTP store operations that failed"))
	deliveryAttemptsPerIssue, _ = m.Int64Histogram("otp.delivery.attempts",
		metric.WithDescription("Channels tried per issuance call"))
}

// Delivery is the payload handed to a channel for one send attempt.
type Delivery struct {
	Phone       string // digits only; channels apply their own formatting
	Code        string
	DisplayName string
}

// Result is a channel's normalized answer. A gateway-level rejection is a
// Result with Success false, not an error.
type Result struct {
	Success bool
	Details string
}

// Channel is one outbound SMS pathway. Implementations make exactly one call
// per Send and never retry.
type Channel interface {
	Method() domain.DeliveryMethod
	Send(ctx context.Context, d Delivery) (Result, error)
}

// OTPStore persists OTP records.
type OTPStore interface {
	Insert(ctx context.Context, record domain.OTPRecord) error
	// FindUnverified returns the unverified record for sessionID regardless of
	// expiry, or domain.ErrNotFound.
	FindUnverified(ctx context.Context, sessionID string) (*domain.OTPRecord, error)
	// MarkVerified flips verified to true only if it is still false. A lost
	// race returns domain.ErrSessionAlreadyConsumed.
	MarkVerified(ctx context.Context, sessionID string, at time.Time) error
}

// RateLimiter checks and enforces fixed-window request limits.
type RateLimiter interface {
	CheckAndIncrement(ctx context.Context, key string, limit, windowSeconds int) (bool, error)
}
