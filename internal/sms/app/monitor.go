package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/zonixt/eauction/internal/domain"
)

// balanceChecker is the subset of *Service the monitor polls.
type balanceChecker interface {
	CheckBalance(ctx context.Context, category domain.BalanceCategory) (Result, error)
}

var _ balanceChecker = (*Service)(nil)

// BalanceMonitorConfig holds the dependencies for BalanceMonitor.
type BalanceMonitorConfig struct {
	Checker  balanceChecker
	Schedule string // cron spec, e.g. "@every 30m"
	Timeout  time.Duration
	Logger   *slog.Logger
}

// BalanceMonitor polls both gateway quotas on a cron schedule and exposes
// the last readings through the sms.balance gauge.
type BalanceMonitor struct {
	checker balanceChecker
	timeout time.Duration
	logger  *slog.Logger
	cron    *cron.Cron
	reg     metric.Registration

	mu       sync.Mutex
	balances map[domain.BalanceCategory]float64
}

// NewBalanceMonitor creates a BalanceMonitor. It does not start polling.
func NewBalanceMonitor(cfg BalanceMonitorConfig) (*BalanceMonitor, error) {
	m := &BalanceMonitor{
		checker:  cfg.Checker,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		balances: make(map[domain.BalanceCategory]float64),
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
	if m.timeout <= 0 {
		m.timeout = domain.BalanceTimeout
	}

	if _, err := m.cron.AddFunc(cfg.Schedule, m.run); err != nil {
		return nil, fmt.Errorf("balance monitor: schedule %q: %w: %w", cfg.Schedule, domain.ErrInvalidInput, err)
	}

	reg, err := meter.RegisterCallback(m.observe, balanceGauge)
	if err != nil {
		return nil, fmt.Errorf("balance monitor: register gauge: %w", err)
	}
	m.reg = reg

	return m, nil
}

// Start begins scheduled polling in the background.
func (m *BalanceMonitor) Start() {
	m.cron.Start()
}

// Stop halts scheduling and waits for a running poll to finish or ctx to end.
func (m *BalanceMonitor) Stop(ctx context.Context) error {
	done := m.cron.Stop().Done()
	if err := m.reg.Unregister(); err != nil {
		m.logger.Warn("balance gauge unregister failed", "error", err)
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("balance monitor: stop: %w", ctx.Err())
	}
}

// Poll checks every category once and records the readings it can parse.
func (m *BalanceMonitor) Poll(ctx context.Context) {
	for _, category := range []domain.BalanceCategory{domain.BalancePromotional, domain.BalanceTransactional} {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		res, err := m.checker.CheckBalance(checkCtx, category)
		cancel()

		switch {
		case err != nil:
			m.logger.WarnContext(ctx, "sms.balance_poll_failed", "category", category, "error", err)
		case !res.Success:
			m.logger.WarnContext(ctx, "sms.balance_poll_rejected", "category", category, "details", res.Details)
		default:
			balance, err := strconv.ParseFloat(strings.TrimSpace(res.Details), 64)
			if err != nil {
				m.logger.WarnContext(ctx, "sms.balance_unparsable", "category", category, "details", res.Details)
				continue
			}
			m.mu.Lock()
			m.balances[category] = balance
			m.mu.Unlock()
		}
	}
}

// Balance returns the last successful reading for category.
func (m *BalanceMonitor) Balance(category domain.BalanceCategory) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[category]
	return b, ok
}

func (m *BalanceMonitor) run() {
	m.Poll(context.Background())
}

func (m *BalanceMonitor) observe(_ context.Context, o metric.Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for category, balance := range m.balances {
		o.ObserveFloat64(balanceGauge, balance,
			metric.WithAttributes(attribute.String("category", string(category))))
	}
	return nil
}
