// Package adapter implements the ports declared in verification/app:
// SMS delivery channels, OTP stores, and the issuance rate limiter.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("verification/adapter")
