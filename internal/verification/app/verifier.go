package app

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/observability"
)

// VerifierConfig holds the dependencies for Verifier.
type VerifierConfig struct {
	Store        OTPStore
	Clock        domain.Clock
	Logger       *slog.Logger
	StoreTimeout time.Duration
}

// Verifier checks submitted codes against stored OTP records.
type Verifier struct {
	store        OTPStore
	clock        domain.Clock
	logger       *slog.Logger
	storeTimeout time.Duration
}

// NewVerifier creates a Verifier with the given dependencies.
func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{
		store:        cfg.Store,
		clock:        cfg.Clock,
		logger:       cfg.Logger,
		storeTimeout: orDefault(cfg.StoreTimeout, domain.StoreTimeout),
	}
}

// Verification is the outcome of VerifyOTP.
type Verification struct {
	Valid   bool
	Reason  domain.VerifyReason
	Message string
}

func verification(reason domain.VerifyReason) Verification {
	return Verification{
		Valid:   reason == domain.ReasonVerified,
		Reason:  reason,
		Message: reason.Message(),
	}
}

// VerifyOTP validates code for sessionID and consumes the session on a match.
// It never returns an error: store faults become ReasonServerError.
//
// Expiry is judged from the stored ExpiresAt against the injected clock. A
// wrong code leaves the record untouched so the caller may retry until expiry.
func (v *Verifier) VerifyOTP(ctx context.Context, sessionID, code string) Verification {
	ctx, span := tracer.Start(ctx, "otp.verify")
	defer span.End()

	logger := observability.WithTraceID(ctx, v.logger)

	reason := v.verify(ctx, logger, sessionID, code)

	verifyTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", string(reason))))
	span.SetAttributes(attribute.String("otp.verify_result", string(reason)))

	switch reason {
	case domain.ReasonVerified:
		logger.InfoContext(ctx, "otp.verified", "session_id", sessionID)
	case domain.ReasonServerError:
		span.SetStatus(codes.Error, string(reason))
	default:
		logger.InfoContext(ctx, "otp.verify_rejected", "session_id", sessionID, "reason", reason)
	}

	return verification(reason)
}

func (v *Verifier) verify(ctx context.Context, logger *slog.Logger, sessionID, code string) domain.VerifyReason {
	if sessionID == "" || code == "" {
		return domain.ReasonExpiredOrInvalidSession
	}

	storeCtx, cancel := context.WithTimeout(ctx, v.storeTimeout)
	defer cancel()

	record, err := v.store.FindUnverified(storeCtx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ReasonExpiredOrInvalidSession
		}
		v.storeFailed(ctx, logger, "find", sessionID, err)
		return domain.ReasonServerError
	}

	now := domain.NowUTC(v.clock)
	if record.Expired(now) {
		return domain.ReasonExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(record.Code)) != 1 {
		return domain.ReasonInvalidCode
	}

	if err := v.store.MarkVerified(storeCtx, sessionID, now); err != nil {
		if errors.Is(err, domain.ErrSessionAlreadyConsumed) || errors.Is(err, domain.ErrNotFound) {
			return domain.ReasonExpiredOrInvalidSession
		}
		v.storeFailed(ctx, logger, "mark_verified", sessionID, err)
		return domain.ReasonServerError
	}

	return domain.ReasonVerified
}

func (v *Verifier) storeFailed(ctx context.Context, logger *slog.Logger, op, sessionID string, err error) {
	storeFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	logger.ErrorContext(ctx, "otp.verify_store_failed",
		"op", op, "session_id", sessionID, "error", err)
	observability.SpanFromContext(ctx).RecordError(err)
}
