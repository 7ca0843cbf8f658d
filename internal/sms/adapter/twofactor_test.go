package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/sms/app"
	"github.com/zonixt/eauction/internal/twofactor"
)

type stubSMSGateway struct {
	sendPromotionalFn     func(ctx context.Context, key domain.SecretString, from, phone, message string) (twofactor.Response, error)
	sendAutogenTemplateFn func(ctx context.Context, key domain.SecretString, phone, template string, vars []string) (twofactor.Response, error)
	balanceFn             func(ctx context.Context, key domain.SecretString, category domain.BalanceCategory) (twofactor.Response, error)
}

func (s *stubSMSGateway) SendPromotional(ctx context.Context, key domain.SecretString, from, phone, message string) (twofactor.Response, error) {
	return s.sendPromotionalFn(ctx, key, from, phone, message)
}

func (s *stubSMSGateway) SendAutogenTemplate(ctx context.Context, key domain.SecretString, phone, template string, vars []string) (twofactor.Response, error) {
	return s.sendAutogenTemplateFn(ctx, key, phone, template, vars)
}

func (s *stubSMSGateway) Balance(ctx context.Context, key domain.SecretString, category domain.BalanceCategory) (twofactor.Response, error) {
	return s.balanceFn(ctx, key, category)
}

var _ smsGateway = (*stubSMSGateway)(nil)

var testConfig = GatewayConfig{
	PromotionalKey:    "promo-key",
	TransactionalKey:  "txn-key",
	PromotionalSender: "ZONIXT",
	Template:          "ZONIXT",
}

func TestGateway_SendPromotional(t *testing.T) {
	t.Run("uses promotional key, sender and gateway phone format", func(t *testing.T) {
		stub := &stubSMSGateway{
			sendPromotionalFn: func(_ context.Context, key domain.SecretString, from, phone, message string) (twofactor.Response, error) {
				assert.Equal(t, "promo-key", key.Expose())
				assert.Equal(t, "ZONIXT", from)
				assert.Equal(t, "919876543210", phone)
				assert.Equal(t, "hello", message)
				return twofactor.Response{Status: "Success", Details: "id-1"}, nil
			},
		}

		res, err := NewGateway(stub, testConfig).SendPromotional(context.Background(), "09876543210", "hello")

		require.NoError(t, err)
		assert.Equal(t, app.Result{Success: true, Details: "id-1"}, res)
	})

	t.Run("rejection maps to unsuccessful result", func(t *testing.T) {
		stub := &stubSMSGateway{
			sendPromotionalFn: func(context.Context, domain.SecretString, string, string, string) (twofactor.Response, error) {
				return twofactor.Response{Status: "Error", Details: "Invalid Sender"}, nil
			},
		}

		res, err := NewGateway(stub, testConfig).SendPromotional(context.Background(), "9876543210", "hello")

		require.NoError(t, err)
		assert.Equal(t, app.Result{Success: false, Details: "Invalid Sender"}, res)
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := testConfig
		cfg.PromotionalKey = ""

		_, err := NewGateway(&stubSMSGateway{}, cfg).SendPromotional(context.Background(), "9876543210", "hello")

		require.ErrorIs(t, err, domain.ErrConfigRequired)
	})

	t.Run("transport error is wrapped", func(t *testing.T) {
		stub := &stubSMSGateway{
			sendPromotionalFn: func(context.Context, domain.SecretString, string, string, string) (twofactor.Response, error) {
				return twofactor.Response{}, domain.ErrGatewayTransport
			},
		}

		_, err := NewGateway(stub, testConfig).SendPromotional(context.Background(), "9876543210", "hello")

		require.ErrorIs(t, err, domain.ErrGatewayTransport)
	})
}

func TestGateway_SendTemplate(t *testing.T) {
	stub := &stubSMSGateway{
		sendAutogenTemplateFn: func(_ context.Context, key domain.SecretString, phone, template string, vars []string) (twofactor.Response, error) {
			assert.Equal(t, "txn-key", key.Expose())
			assert.Equal(t, "919876543210", phone)
			assert.Equal(t, "ZONIXT", template)
			assert.Equal(t, []string{"Ravi", "", "", "", ""}, vars)
			return twofactor.Response{Status: "Success", Details: "id-2"}, nil
		},
	}

	res, err := NewGateway(stub, testConfig).SendTemplate(context.Background(), "9876543210", []string{"Ravi", "", "", "", ""})

	require.NoError(t, err)
	assert.True(t, res.Success)

	cfg := testConfig
	cfg.TransactionalKey = ""
	_, err = NewGateway(stub, cfg).SendTemplate(context.Background(), "9876543210", nil)
	require.ErrorIs(t, err, domain.ErrConfigRequired)
}

func TestGateway_Balance(t *testing.T) {
	tests := []struct {
		category domain.BalanceCategory
		wantKey  string
	}{
		{domain.BalancePromotional, "promo-key"},
		{domain.BalanceTransactional, "txn-key"},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			stub := &stubSMSGateway{
				balanceFn: func(_ context.Context, key domain.SecretString, category domain.BalanceCategory) (twofactor.Response, error) {
					assert.Equal(t, tt.wantKey, key.Expose())
					assert.Equal(t, tt.category, category)
					return twofactor.Response{Status: "Success", Details: "420"}, nil
				},
			}

			res, err := NewGateway(stub, testConfig).Balance(context.Background(), tt.category)

			require.NoError(t, err)
			assert.Equal(t, app.Result{Success: true, Details: "420"}, res)
		})
	}

	t.Run("missing key for category", func(t *testing.T) {
		cfg := testConfig
		cfg.PromotionalKey = ""

		_, err := NewGateway(&stubSMSGateway{}, cfg).Balance(context.Background(), domain.BalancePromotional)

		require.ErrorIs(t, err, domain.ErrConfigRequired)
	})
}
