package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/verification/app"
)

// snsPublisher is the subset of *sns.Client the SNS channel calls.
type snsPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var (
	_ snsPublisher = (*sns.Client)(nil)
	_ app.Channel  = (*SNSChannel)(nil)
	_ app.Channel  = (*LogChannel)(nil)
)

// SNSChannel delivers OTP codes as transactional SMS through Amazon SNS.
type SNSChannel struct {
	client   snsPublisher
	senderID string
}

// NewSNSChannel creates an SNSChannel. senderID may be empty.
func NewSNSChannel(client snsPublisher, senderID string) *SNSChannel {
	return &SNSChannel{client: client, senderID: senderID}
}

func (c *SNSChannel) Method() domain.DeliveryMethod { return domain.DeliverySNSSMS }

// Send publishes one message. SNS has no soft rejection: any failure is an error.
func (c *SNSChannel) Send(ctx context.Context, d app.Delivery) (app.Result, error) {
	message := fmt.Sprintf("Dear %s, your verification code is %s.", d.DisplayName, d.Code)

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if c.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(c.senderID),
		}
	}

	out, err := c.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String("+" + domain.GatewayPhone(d.Phone)),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return app.Result{}, fmt.Errorf("sns sms: publish to %s: %w", domain.MaskPhone(d.Phone), err)
	}

	return app.Result{Success: true, Details: aws.ToString(out.MessageId)}, nil
}

// LogChannel writes the OTP to the log instead of sending it. It is only
// wired in local environments.
type LogChannel struct {
	logger *slog.Logger
}

// NewLogChannel creates a LogChannel writing to logger.
func NewLogChannel(logger *slog.Logger) *LogChannel {
	return &LogChannel{logger: logger}
}

func (c *LogChannel) Method() domain.DeliveryMethod { return domain.DeliverySimpleSMS }

func (c *LogChannel) Send(ctx context.Context, d app.Delivery) (app.Result, error) {
	// dev_otp is not a redacted key, so the code stays readable locally.
	c.logger.InfoContext(ctx, "otp delivery (log-only)",
		slog.String("phone", d.Phone),
		slog.String("display_name", d.DisplayName),
		slog.String("dev_otp", d.Code),
	)
	return app.Result{Success: true, Details: "logged"}, nil
}
