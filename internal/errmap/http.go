// Package errmap translates domain errors into HTTP responses.
package errmap

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/zonixt/eauction/internal/domain"
)

// HTTPError represents an HTTP error response.
type HTTPError struct {
	StatusCode int    `json:"-"`
	Success    bool   `json:"success"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e HTTPError) Error() string {
	return e.Message
}

// httpMapping defines a domain error to HTTP status/code mapping.
type httpMapping struct {
	err        error
	statusCode int
	code       string
}

// httpMappings maps domain errors to HTTP status codes and error codes.
// Order matters: first match wins (via errors.Is).
var httpMappings = []httpMapping{
	// Resource errors
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},

	// OTP verification outcomes surfaced as errors
	{domain.ErrExpiredOrInvalidSession, http.StatusBadRequest, "INVALID_SESSION"},
	{domain.ErrOTPExpired, http.StatusBadRequest, "OTP_EXPIRED"},
	{domain.ErrInvalidOTP, http.StatusBadRequest, "INVALID_OTP"},

	// Validation errors
	{domain.ErrInvalidInput, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrEmptyID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidID, http.StatusBadRequest, "INVALID_ARGUMENT"},
	{domain.ErrInvalidPhoneNumber, http.StatusBadRequest, "INVALID_ARGUMENT"},

	// Rate limiting
	{domain.ErrPhoneRateLimited, http.StatusTooManyRequests, "PHONE_RATE_LIMITED"},
	{domain.ErrIPRateLimited, http.StatusTooManyRequests, "IP_RATE_LIMITED"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},

	// Upstream SMS gateway
	{domain.ErrDeliveryFailure, http.StatusBadGateway, "DELIVERY_FAILED"},
	{domain.ErrGatewayRejected, http.StatusBadGateway, "GATEWAY_REJECTED"},
	{domain.ErrGatewayTransport, http.StatusBadGateway, "GATEWAY_UNREACHABLE"},

	// Availability
	{domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
}

// ToHTTPError converts a domain error to an HTTP error.
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{StatusCode: http.StatusOK, Success: true}
	}
	for _, m := range httpMappings {
		if errors.Is(err, m.err) {
			return HTTPError{StatusCode: m.statusCode, Code: m.code, Message: err.Error()}
		}
	}
	// Never expose internal error details to clients
	return HTTPError{StatusCode: http.StatusInternalServerError, Code: "INTERNAL", Message: "internal error"}
}

// ToHTTPStatusCode extracts just the HTTP status code for a domain error.
func ToHTTPStatusCode(err error) int {
	return ToHTTPError(err).StatusCode
}

// Render writes err as a JSON error body with its mapped status.
func Render(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := ToHTTPError(err)
	render.Status(r, httpErr.StatusCode)
	render.JSON(w, r, httpErr)
}

// RenderMessage writes a fixed client-facing message with the status mapped from err.
// Use it where the response text is part of the API contract.
func RenderMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	httpErr := ToHTTPError(err)
	httpErr.Message = message
	render.Status(r, httpErr.StatusCode)
	render.JSON(w, r, httpErr)
}
