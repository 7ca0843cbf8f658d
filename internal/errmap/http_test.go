package errmap_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/errmap"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatusCode int
		wantCode       string
	}{
		// Nil error
		{"nil error", nil, http.StatusOK, ""},

		// Resource errors
		{"ErrNotFound", domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

		// Validation errors
		{"ErrInvalidInput", domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"ErrEmptyID", domain.ErrEmptyID, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"ErrInvalidID", domain.ErrInvalidID, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"ErrInvalidPhoneNumber", domain.ErrInvalidPhoneNumber, http.StatusBadRequest, "INVALID_ARGUMENT"},

		// OTP outcomes
		{"ErrExpiredOrInvalidSession", domain.ErrExpiredOrInvalidSession, http.StatusBadRequest, "INVALID_SESSION"},
		{"ErrOTPExpired", domain.ErrOTPExpired, http.StatusBadRequest, "OTP_EXPIRED"},
		{"ErrInvalidOTP", domain.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},

		// Rate limiting
		{"ErrPhoneRateLimited", domain.ErrPhoneRateLimited, http.StatusTooManyRequests, "PHONE_RATE_LIMITED"},
		{"ErrIPRateLimited", domain.ErrIPRateLimited, http.StatusTooManyRequests, "IP_RATE_LIMITED"},
		{"ErrRateLimited", domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

		// Gateway and availability
		{"ErrDeliveryFailure", domain.ErrDeliveryFailure, http.StatusBadGateway, "DELIVERY_FAILED"},
		{"ErrGatewayTransport", domain.ErrGatewayTransport, http.StatusBadGateway, "GATEWAY_UNREACHABLE"},
		{"ErrStoreUnavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"ErrUnavailable", domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},

		// Wrapped errors
		{"wrapped ErrNotFound", fmt.Errorf("auction 7: %w", domain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped delivery failure", fmt.Errorf("issue otp: %w", domain.ErrDeliveryFailure), http.StatusBadGateway, "DELIVERY_FAILED"},

		// Unknown errors map to Internal
		{"unknown error", fmt.Errorf("unexpected"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errmap.ToHTTPError(tt.err)
			assert.Equal(t, tt.wantStatusCode, got.StatusCode, "expected status %d, got %d", tt.wantStatusCode, got.StatusCode)
			assert.Equal(t, tt.wantCode, got.Code, "expected code %q, got %q", tt.wantCode, got.Code)
		})
	}
}

func TestToHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"delivery failure", domain.ErrDeliveryFailure, http.StatusBadGateway},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errmap.ToHTTPStatusCode(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPErrorImplementsError(t *testing.T) {
	httpErr := errmap.ToHTTPError(domain.ErrNotFound)
	var err error = httpErr
	assert.NotEmpty(t, err.Error())
}

func TestRender(t *testing.T) {
	t.Run("mapped error keeps its message", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		errmap.Render(rec, req, fmt.Errorf("send otp: %w", domain.ErrDeliveryFailure))

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "DELIVERY_FAILED", body["code"])
		assert.Contains(t, body["message"], "all SMS channels failed")
	})

	t.Run("internal error hides details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		errmap.Render(rec, req, fmt.Errorf("pgx: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pgx")
	})

	t.Run("fixed message overrides error text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		errmap.RenderMessage(rec, req, domain.ErrNotFound, "Auction not found")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"message":"Auction not found"`)
	})
}
