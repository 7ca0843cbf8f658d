package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zonixt/eauction/internal/domain"
)

func TestIsValidBalanceCategory(t *testing.T) {
	tests := []struct {
		name string
		c    domain.BalanceCategory
		want bool
	}{
		{name: "PSMS is valid", c: "PSMS", want: true},
		{name: "SMS is valid", c: "SMS", want: true},
		{name: "empty is invalid", c: "", want: false},
		{name: "TSMS is invalid", c: "TSMS", want: false},
		{name: "psms is invalid (case-sensitive)", c: "psms", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.IsValidBalanceCategory(tt.c)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOTPCodeRange(t *testing.T) {
	assert.Equal(t, 1000, domain.OTPCodeMin)
	assert.Equal(t, 9999, domain.OTPCodeMax)
}
