// Package adapter connects the SMS use cases to the 2Factor gateway.
package adapter

import (
	"context"
	"fmt"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/sms/app"
	"github.com/zonixt/eauction/internal/twofactor"
)

// smsGateway is the subset of *twofactor.Client the adapter calls.
type smsGateway interface {
	SendPromotional(ctx context.Context, key domain.SecretString, from, phone, message string) (twofactor.Response, error)
	SendAutogenTemplate(ctx context.Context, key domain.SecretString, phone, template string, vars []string) (twofactor.Response, error)
	Balance(ctx context.Context, key domain.SecretString, category domain.BalanceCategory) (twofactor.Response, error)
}

var _ smsGateway = (*twofactor.Client)(nil)

// GatewayConfig selects credentials and sender identities per route.
// Promotional sends and the PSMS balance use PromotionalKey; template sends
// and the SMS balance use TransactionalKey.
type GatewayConfig struct {
	PromotionalKey    domain.SecretString
	TransactionalKey  domain.SecretString
	PromotionalSender string
	Template          string
}

// Gateway implements app.Gateway over the 2Factor client.
type Gateway struct {
	client smsGateway
	cfg    GatewayConfig
}

var _ app.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway.
func NewGateway(client smsGateway, cfg GatewayConfig) *Gateway {
	return &Gateway{client: client, cfg: cfg}
}

// SendPromotional posts a PSMS message from the promotional sender.
func (g *Gateway) SendPromotional(ctx context.Context, phone, message string) (app.Result, error) {
	if g.cfg.PromotionalKey.IsEmpty() {
		return app.Result{}, fmt.Errorf("sms gateway: promotional API key: %w", domain.ErrConfigRequired)
	}
	resp, err := g.client.SendPromotional(ctx, g.cfg.PromotionalKey, g.cfg.PromotionalSender, domain.GatewayPhone(phone), message)
	if err != nil {
		return app.Result{}, fmt.Errorf("sms gateway: promotional: %w", err)
	}
	return result(resp), nil
}

// SendTemplate sends the configured AUTOGEN2 template.
func (g *Gateway) SendTemplate(ctx context.Context, phone string, vars []string) (app.Result, error) {
	if g.cfg.TransactionalKey.IsEmpty() {
		return app.Result{}, fmt.Errorf("sms gateway: transactional API key: %w", domain.ErrConfigRequired)
	}
	resp, err := g.client.SendAutogenTemplate(ctx, g.cfg.TransactionalKey, domain.GatewayPhone(phone), g.cfg.Template, vars)
	if err != nil {
		return app.Result{}, fmt.Errorf("sms gateway: template: %w", err)
	}
	return result(resp), nil
}

// Balance queries the quota for category with the key that owns it.
func (g *Gateway) Balance(ctx context.Context, category domain.BalanceCategory) (app.Result, error) {
	key := g.cfg.TransactionalKey
	if category == domain.BalancePromotional {
		key = g.cfg.PromotionalKey
	}
	if key.IsEmpty() {
		return app.Result{}, fmt.Errorf("sms gateway: %s balance API key: %w", category, domain.ErrConfigRequired)
	}
	resp, err := g.client.Balance(ctx, key, category)
	if err != nil {
		return app.Result{}, fmt.Errorf("sms gateway: balance: %w", err)
	}
	return result(resp), nil
}

func result(resp twofactor.Response) app.Result {
	return app.Result{Success: resp.OK(), Details: resp.Details}
}
