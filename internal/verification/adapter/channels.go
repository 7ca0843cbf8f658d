package adapter

import (
	"context"
	"fmt"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/twofactor"
	"github.com/zonixt/eauction/internal/verification/app"
)

// otpGateway is the subset of *twofactor.Client the OTP channels call.
type otpGateway interface {
	SendTemplateOTP(ctx context.Context, key domain.SecretString, phone, code, template string, vars ...string) (twofactor.Response, error)
	SendSimpleOTP(ctx context.Context, key domain.SecretString, phone, code string) (twofactor.Response, error)
	SendTransactional(ctx context.Context, key domain.SecretString, from, phone, message string) (twofactor.Response, error)
}

var (
	_ otpGateway  = (*twofactor.Client)(nil)
	_ app.Channel = (*TemplateChannel)(nil)
	_ app.Channel = (*SimpleChannel)(nil)
	_ app.Channel = (*TransactionalChannel)(nil)
)

func result(resp twofactor.Response) app.Result {
	return app.Result{Success: resp.OK(), Details: resp.Details}
}

// TemplateChannel sends the code through a pre-approved OTP template with
// the recipient's display name as var1.
type TemplateChannel struct {
	gw       otpGateway
	key      domain.SecretString
	template string
}

// NewTemplateChannel creates a TemplateChannel.
func NewTemplateChannel(gw otpGateway, key domain.SecretString, template string) *TemplateChannel {
	return &TemplateChannel{gw: gw, key: key, template: template}
}

func (c *TemplateChannel) Method() domain.DeliveryMethod { return domain.DeliveryTemplateSMS }

func (c *TemplateChannel) Send(ctx context.Context, d app.Delivery) (app.Result, error) {
	resp, err := c.gw.SendTemplateOTP(ctx, c.key, domain.GatewayPhone(d.Phone), d.Code, c.template, d.DisplayName)
	if err != nil {
		return app.Result{}, fmt.Errorf("template sms: %w", err)
	}
	return result(resp), nil
}

// SimpleChannel sends the code with the gateway's stock OTP text.
type SimpleChannel struct {
	gw  otpGateway
	key domain.SecretString
}

// NewSimpleChannel creates a SimpleChannel.
func NewSimpleChannel(gw otpGateway, key domain.SecretString) *SimpleChannel {
	return &SimpleChannel{gw: gw, key: key}
}

func (c *SimpleChannel) Method() domain.DeliveryMethod { return domain.DeliverySimpleSMS }

func (c *SimpleChannel) Send(ctx context.Context, d app.Delivery) (app.Result, error) {
	resp, err := c.gw.SendSimpleOTP(ctx, c.key, domain.GatewayPhone(d.Phone), d.Code)
	if err != nil {
		return app.Result{}, fmt.Errorf("simple sms: %w", err)
	}
	return result(resp), nil
}

// TransactionalChannel renders a free-text message and sends it as a
// transactional SMS. messageFormat takes the display name then the code.
type TransactionalChannel struct {
	gw            otpGateway
	key           domain.SecretString
	sender        string
	messageFormat string
}

// NewTransactionalChannel creates a TransactionalChannel.
func NewTransactionalChannel(gw otpGateway, key domain.SecretString, sender, messageFormat string) *TransactionalChannel {
	return &TransactionalChannel{gw: gw, key: key, sender: sender, messageFormat: messageFormat}
}

func (c *TransactionalChannel) Method() domain.DeliveryMethod { return domain.DeliveryTransactionalSMS }

func (c *TransactionalChannel) Send(ctx context.Context, d app.Delivery) (app.Result, error) {
	msg := fmt.Sprintf(c.messageFormat, d.DisplayName, d.Code)
	resp, err := c.gw.SendTransactional(ctx, c.key, c.sender, domain.GatewayPhone(d.Phone), msg)
	if err != nil {
		return app.Result{}, fmt.Errorf("transactional sms: %w", err)
	}
	return result(resp), nil
}
