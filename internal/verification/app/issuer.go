package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/observability"
)

// IssuerConfig holds the dependencies for Issuer. Zero durations fall back
// to the compiled defaults in package domain.
type IssuerConfig struct {
	Channels        []Channel // tried strictly in order
	Store           OTPStore
	RateLimiter     RateLimiter // nil disables rate limiting
	Clock           domain.Clock
	Logger          *slog.Logger
	Validity        time.Duration
	ChannelTimeout  time.Duration
	StoreTimeout    time.Duration
	RateLimitPhone  int // zero disables the per-phone limit
	RateLimitIP     int // zero disables the per-IP limit
	RateLimitWindow time.Duration
}

// Issuer generates OTPs and delivers them through the first channel that
// accepts the message.
type Issuer struct {
	channels        []Channel
	store           OTPStore
	rateLimiter     RateLimiter
	clock           domain.Clock
	logger          *slog.Logger
	validity        time.Duration
	channelTimeout  time.Duration
	storeTimeout    time.Duration
	rateLimitPhone  int
	rateLimitIP     int
	rateLimitWindow time.Duration
}

// NewIssuer creates an Issuer with the given dependencies.
func NewIssuer(cfg IssuerConfig) *Issuer {
	return &Issuer{
		channels:        cfg.Channels,
		store:           cfg.Store,
		rateLimiter:     cfg.RateLimiter,
		clock:           cfg.Clock,
		logger:          cfg.Logger,
		validity:        orDefault(cfg.Validity, domain.OTPValidityDuration),
		channelTimeout:  orDefault(cfg.ChannelTimeout, domain.ChannelTimeout),
		storeTimeout:    orDefault(cfg.StoreTimeout, domain.StoreTimeout),
		rateLimitPhone:  cfg.RateLimitPhone,
		rateLimitIP:     cfg.RateLimitIP,
		rateLimitWindow: orDefault(cfg.RateLimitWindow, domain.OTPRateLimitWindow),
	}
}

// IssueRequest is the input to IssueOTP. Phone may be in any format.
type IssueRequest struct {
	Phone       string
	DisplayName string
	ClientIP    string
}

// IssueResult is returned by IssueOTP on success.
type IssueResult struct {
	SessionID string
	Method    domain.DeliveryMethod
	ExpiresAt time.Time
}

// IssueOTP normalizes the phone number, generates a code and session handle,
// and walks the channel list until one send succeeds. The record is persisted
// only after a successful delivery. When every channel fails the returned
// error wraps domain.ErrDeliveryFailure and carries the last failure detail.
func (s *Issuer) IssueOTP(ctx context.Context, req IssueRequest) (IssueResult, error) {
	ctx, span := tracer.Start(ctx, "otp.issue")
	defer span.End()

	logger := observability.WithTraceID(ctx, s.logger)

	phone := domain.PhoneDigits(req.Phone)
	if phone == "" {
		err := fmt.Errorf("otp issuer: %w", domain.ErrInvalidPhoneNumber)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, err
	}
	if len(s.channels) == 0 {
		err := fmt.Errorf("otp issuer: %w", domain.ErrChannelNotEnabled)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, err
	}

	if err := s.checkRateLimits(ctx, logger, phone, req.ClientIP); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, err
	}

	code, err := GenerateCode()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, fmt.Errorf("otp issuer: %w", err)
	}
	sessionID, err := domain.NewSessionID()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, fmt.Errorf("otp issuer: %w", err)
	}

	delivery := Delivery{Phone: phone, Code: code, DisplayName: displayName(req.DisplayName)}

	method, attempts, lastErr := s.deliver(ctx, logger, delivery)
	deliveryAttemptsPerIssue.Record(ctx, int64(attempts))
	if lastErr != nil {
		deliveryFailuresTotal.Add(ctx, 1)
		err := fmt.Errorf("%w: last error: %s", domain.ErrDeliveryFailure, lastErr.Error())
		logger.ErrorContext(ctx, "otp.delivery_failed",
			"phone", phone, "attempts", attempts, "error", lastErr)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, err
	}
	span.SetAttributes(attribute.String("otp.method", method.String()))

	record := domain.NewOTPRecord(phone, code, sessionID, method, domain.NowUTC(s.clock), s.validity)

	// The SMS is already out; a cancelled request must not lose the record.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.storeTimeout)
	defer cancel()

	if err := s.store.Insert(storeCtx, record); err != nil {
		storeFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "insert")))
		logger.ErrorContext(ctx, "otp.persist_failed",
			"session_id", sessionID, "method", method, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return IssueResult{}, fmt.Errorf("otp issuer: persist record: %w: %w", domain.ErrStoreUnavailable, err)
	}

	otpIssuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method.String())))
	logger.InfoContext(ctx, "otp.issued",
		"phone", phone, "session_id", sessionID, "method", method, "attempts", attempts)

	return IssueResult{
		SessionID: sessionID,
		Method:    method,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// deliver tries each channel once, in order, and stops at the first success.
// It returns the winning method, the number of channels tried, and the last
// failure when none succeeded.
func (s *Issuer) deliver(ctx context.Context, logger *slog.Logger, d Delivery) (domain.DeliveryMethod, int, error) {
	var lastErr error
	for i, ch := range s.channels {
		method := ch.Method()

		err := s.attempt(ctx, ch, d)
		if err == nil {
			return method, i + 1, nil
		}

		lastErr = err
		channelFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", method.String())))
		logger.WarnContext(ctx, "otp.channel_failed",
			"channel", method, "attempt", i+1, "error", err)

		if ctx.Err() != nil {
			return "", i + 1, lastErr
		}
	}
	return "", len(s.channels), lastErr
}

// attempt runs one channel under its own timeout. A non-success gateway
// answer becomes domain.ErrGatewayRejected.
func (s *Issuer) attempt(ctx context.Context, ch Channel, d Delivery) error {
	method := ch.Method()

	ctx, span := tracer.Start(ctx, "otp.deliver",
		trace.WithAttributes(attribute.String("otp.channel", method.String())))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.channelTimeout)
	defer cancel()

	res, err := ch.Send(ctx, d)
	if err != nil {
		err = fmt.Errorf("%s: %w", method, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if !res.Success {
		err = fmt.Errorf("%s: %w: %s", method, domain.ErrGatewayRejected, res.Details)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// checkRateLimits applies the per-phone limit (fail-closed) and the per-IP
// limit (fail-open).
func (s *Issuer) checkRateLimits(ctx context.Context, logger *slog.Logger, phone, clientIP string) error {
	if s.rateLimiter == nil {
		return nil
	}
	window := int(s.rateLimitWindow.Seconds())

	if s.rateLimitPhone > 0 {
		allowed, err := s.rateLimiter.CheckAndIncrement(ctx, "otp_req:phone:"+phone, s.rateLimitPhone, window)
		if err != nil {
			return fmt.Errorf("check phone rate limit: %w: %w", domain.ErrUnavailable, err)
		}
		if !allowed {
			rateLimitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_type", "phone")))
			logger.WarnContext(ctx, "otp.rate_limited", "limit_type", "phone", "phone", phone)
			return domain.ErrPhoneRateLimited
		}
	}

	if s.rateLimitIP > 0 && clientIP != "" {
		allowed, err := s.rateLimiter.CheckAndIncrement(ctx, "otp_req:ip:"+clientIP, s.rateLimitIP, window)
		if err != nil {
			logger.WarnContext(ctx, "ip rate limit check failed, proceeding",
				"error", err, "client_ip", clientIP)
			return nil
		}
		if !allowed {
			rateLimitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("limit_type", "ip")))
			logger.WarnContext(ctx, "otp.rate_limited", "limit_type", "ip", "client_ip", clientIP)
			return domain.ErrIPRateLimited
		}
	}
	return nil
}

// displayName trims and title-cases name, falling back to DefaultDisplayName.
func displayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return domain.DefaultDisplayName
	}
	// Casers are stateful and not safe for concurrent use.
	return cases.Title(language.Und).String(name)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
