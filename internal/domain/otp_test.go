package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonixt/eauction/internal/domain"
)

var issuedAt = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func TestNewOTPRecord(t *testing.T) {
	r := domain.NewOTPRecord("919876543210", "4821", "session_x", domain.DeliverySimpleSMS, issuedAt, domain.OTPValidityDuration)

	assert.Equal(t, issuedAt, r.CreatedAt)
	assert.Equal(t, issuedAt.Add(10*time.Minute), r.ExpiresAt)
	assert.False(t, r.Verified)
	assert.True(t, r.VerifiedAt.IsZero())
	assert.Equal(t, domain.DeliverySimpleSMS, r.DeliveryMethod)
}

func TestOTPRecord_Usable(t *testing.T) {
	r := domain.NewOTPRecord("919876543210", "4821", "session_x", domain.DeliveryTemplateSMS, issuedAt, domain.OTPValidityDuration)

	t.Run("usable inside the window", func(t *testing.T) {
		assert.True(t, r.Usable(issuedAt.Add(9*time.Minute+59*time.Second)))
	})

	t.Run("expired at the boundary", func(t *testing.T) {
		assert.True(t, r.Expired(r.ExpiresAt))
		assert.False(t, r.Usable(r.ExpiresAt))
	})

	t.Run("verified record is terminal", func(t *testing.T) {
		v := r
		v.Verified = true
		assert.False(t, v.Usable(issuedAt))
	})
}

func TestParseDeliveryMethod(t *testing.T) {
	for _, raw := range []string{"TEMPLATE_SMS", "SIMPLE_SMS", "TRANSACTIONAL_SMS", "SNS_SMS"} {
		m, err := domain.ParseDeliveryMethod(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, m.String())
	}

	_, err := domain.ParseDeliveryMethod("EMAIL")
	assert.ErrorIs(t, err, domain.ErrUnknownDelivery)
}

func TestVerifyReason_Message(t *testing.T) {
	tests := []struct {
		reason domain.VerifyReason
		want   string
	}{
		{domain.ReasonVerified, "OTP verified successfully"},
		{domain.ReasonExpiredOrInvalidSession, "OTP expired or invalid session"},
		{domain.ReasonExpired, "OTP has expired"},
		{domain.ReasonInvalidCode, "Invalid OTP"},
		{domain.ReasonServerError, "Server error during OTP verification"},
		{domain.VerifyReason("bogus"), "Server error during OTP verification"},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.reason.Message())
		})
	}
}
