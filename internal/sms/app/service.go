// Package app implements the operational SMS use cases: free-text
// promotional sends, registered template sends and gateway quota checks.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/observability"
)

var tracer = otel.Tracer("sms/app")

var (
	meter        = otel.Meter("sms/app")
	sentTotal    metric.Int64Counter
	balanceGauge metric.Float64ObservableGauge
)

func init() {
	var err error
	sentTotal, err = meter.Int64Counter("sms.sent.total",
		metric.WithDescription("Operational SMS sends by kind and result"))
	if err != nil {
		otel.Handle(err)
	}
	balanceGauge, err = meter.Float64ObservableGauge("sms.balance",
		metric.WithDescription("Last observed gateway quota by category"))
	if err != nil {
		otel.Handle(err)
	}
}

// Send kinds recorded on sms.sent.total.
const (
	KindPromotional = "promotional"
	KindTemplate    = "template"
)

// Result is the gateway's answer to one request. Success is false when the
// gateway answered but declined.
type Result struct {
	Success bool
	Details string
}

// Gateway is the SMS provider as seen by the service. Implementations pick
// the credentials for each operation and format the phone number.
type Gateway interface {
	SendPromotional(ctx context.Context, phone, message string) (Result, error)
	SendTemplate(ctx context.Context, phone string, vars []string) (Result, error)
	Balance(ctx context.Context, category domain.BalanceCategory) (Result, error)
}

// ServiceConfig holds the dependencies for Service.
type ServiceConfig struct {
	Gateway Gateway
	Logger  *slog.Logger
}

// Service sends operational SMS and reports gateway balances.
type Service struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewService creates a Service with the given dependencies.
func NewService(cfg ServiceConfig) *Service {
	return &Service{gateway: cfg.Gateway, logger: cfg.Logger}
}

// SendPromotional sends message to phone on the promotional route.
// A gateway rejection is reported through Result, not as an error.
func (s *Service) SendPromotional(ctx context.Context, phone, message string) (Result, error) {
	ctx, span := tracer.Start(ctx, "sms.send_promotional")
	defer span.End()

	digits := domain.PhoneDigits(phone)
	if digits == "" {
		return Result{}, fmt.Errorf("sms: %w", domain.ErrInvalidPhoneNumber)
	}
	if strings.TrimSpace(message) == "" {
		return Result{}, fmt.Errorf("sms: empty message: %w", domain.ErrInvalidInput)
	}

	res, err := s.gateway.SendPromotional(ctx, digits, message)
	s.recordSend(ctx, KindPromotional, digits, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("sms: send promotional: %w", err)
	}
	return res, nil
}

// SendTemplate sends the registered template to phone. vars fill VAR1..VAR5
// in order; VAR1 defaults to domain.DefaultTemplateParticipant.
func (s *Service) SendTemplate(ctx context.Context, phone string, vars []string) (Result, error) {
	ctx, span := tracer.Start(ctx, "sms.send_template")
	defer span.End()

	digits := domain.PhoneDigits(phone)
	if digits == "" {
		return Result{}, fmt.Errorf("sms: %w", domain.ErrInvalidPhoneNumber)
	}
	if len(vars) > domain.MaxTemplateVars {
		return Result{}, fmt.Errorf("sms: %d template variables, at most %d: %w",
			len(vars), domain.MaxTemplateVars, domain.ErrInvalidInput)
	}

	filled := make([]string, domain.MaxTemplateVars)
	for i, v := range vars {
		filled[i] = strings.TrimSpace(v)
	}
	if filled[0] == "" {
		filled[0] = domain.DefaultTemplateParticipant
	}

	res, err := s.gateway.SendTemplate(ctx, digits, filled)
	s.recordSend(ctx, KindTemplate, digits, res, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("sms: send template: %w", err)
	}
	return res, nil
}

// CheckBalance returns the remaining quota for category. Details carries the
// gateway's balance figure on success.
func (s *Service) CheckBalance(ctx context.Context, category domain.BalanceCategory) (Result, error) {
	ctx, span := tracer.Start(ctx, "sms.check_balance")
	defer span.End()

	if !domain.IsValidBalanceCategory(category) {
		return Result{}, fmt.Errorf("sms: balance category %q: %w", category, domain.ErrInvalidInput)
	}
	span.SetAttributes(attribute.String("sms.category", string(category)))

	res, err := s.gateway.Balance(ctx, category)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("sms: check %s balance: %w", category, err)
	}

	observability.WithTraceID(ctx, s.logger).InfoContext(ctx, "sms.balance_checked",
		"category", category, "success", res.Success, "details", res.Details)
	return res, nil
}

func (s *Service) recordSend(ctx context.Context, kind, phone string, res Result, err error) {
	logger := observability.WithTraceID(ctx, s.logger)

	result := "success"
	switch {
	case err != nil:
		result = "error"
		logger.ErrorContext(ctx, "sms.send_failed", "kind", kind, "phone", phone, "error", err)
	case !res.Success:
		result = "rejected"
		logger.WarnContext(ctx, "sms.send_rejected", "kind", kind, "phone", phone, "details", res.Details)
	default:
		logger.InfoContext(ctx, "sms.sent", "kind", kind, "phone", phone)
	}
	sentTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("result", result),
	))
}
