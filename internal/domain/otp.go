package domain

import (
	"fmt"
	"time"
)

// DeliveryMethod records which SMS channel delivered an OTP.
type DeliveryMethod string

const (
	DeliveryTemplateSMS      DeliveryMethod = "TEMPLATE_SMS"
	DeliverySimpleSMS        DeliveryMethod = "SIMPLE_SMS"
	DeliveryTransactionalSMS DeliveryMethod = "TRANSACTIONAL_SMS"
	DeliverySNSSMS           DeliveryMethod = "SNS_SMS"
)

// DefaultChannelOrder is the gateway cascade: template, then simple, then free-text.
var DefaultChannelOrder = []DeliveryMethod{
	DeliveryTemplateSMS,
	DeliverySimpleSMS,
	DeliveryTransactionalSMS,
}

// ParseDeliveryMethod validates a raw method name.
func ParseDeliveryMethod(raw string) (DeliveryMethod, error) {
	m := DeliveryMethod(raw)
	switch m {
	case DeliveryTemplateSMS, DeliverySimpleSMS, DeliveryTransactionalSMS, DeliverySNSSMS:
		return m, nil
	}
	return "", fmt.Errorf("delivery method %q: %w", raw, ErrUnknownDelivery)
}

func (m DeliveryMethod) String() string { return string(m) }

// OTPRecord is one issuance. Only Verified/VerifiedAt ever change after insert.
type OTPRecord struct {
	PhoneNumber    string
	Code           string
	SessionID      string
	DeliveryMethod DeliveryMethod
	CreatedAt      time.Time
	ExpiresAt      time.Time
	Verified       bool
	VerifiedAt     time.Time
}

// NewOTPRecord builds an unverified record expiring validity after now.
func NewOTPRecord(phone, code, sessionID string, method DeliveryMethod, now time.Time, validity time.Duration) OTPRecord {
	return OTPRecord{
		PhoneNumber:    phone,
		Code:           code,
		SessionID:      sessionID,
		DeliveryMethod: method,
		CreatedAt:      now,
		ExpiresAt:      now.Add(validity),
	}
}

// Expired reports whether now is at or past ExpiresAt.
func (r OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Usable reports whether the record can still be verified.
func (r OTPRecord) Usable(now time.Time) bool {
	return !r.Verified && !r.Expired(now)
}

// VerifyReason classifies a verification outcome.
type VerifyReason string

const (
	ReasonVerified                VerifyReason = "VERIFIED"
	ReasonExpiredOrInvalidSession VerifyReason = "EXPIRED_OR_INVALID_SESSION"
	ReasonExpired                 VerifyReason = "EXPIRED"
	ReasonInvalidCode             VerifyReason = "INVALID_CODE"
	ReasonServerError             VerifyReason = "SERVER_ERROR"
)

var verifyMessages = map[VerifyReason]string{
	ReasonVerified:                "OTP verified successfully",
	ReasonExpiredOrInvalidSession: "OTP expired or invalid session",
	ReasonExpired:                 "OTP has expired",
	ReasonInvalidCode:             "Invalid OTP",
	ReasonServerError:             "Server error during OTP verification",
}

// Message is the caller-facing text for the reason.
func (r VerifyReason) Message() string {
	if m, ok := verifyMessages[r]; ok {
		return m
	}
	return verifyMessages[ReasonServerError]
}
