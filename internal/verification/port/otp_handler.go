// Package port exposes the OTP use cases over HTTP.
package port

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/errmap"
	"github.com/zonixt/eauction/internal/httpapi"
	"github.com/zonixt/eauction/internal/verification/app"
)

// otpIssuer is the subset of *app.Issuer the handler calls.
type otpIssuer interface {
	IssueOTP(ctx context.Context, req app.IssueRequest) (app.IssueResult, error)
}

// otpVerifier is the subset of *app.Verifier the handler calls.
type otpVerifier interface {
	VerifyOTP(ctx context.Context, sessionID, code string) app.Verification
}

var (
	_ otpIssuer   = (*app.Issuer)(nil)
	_ otpVerifier = (*app.Verifier)(nil)
)

const missingVerifyFields = "Session ID and OTP are required"

// OTPHandler serves /api/otp.
type OTPHandler struct {
	issuer   otpIssuer
	verifier otpVerifier
}

// NewOTPHandler creates an OTPHandler.
func NewOTPHandler(issuer *app.Issuer, verifier *app.Verifier) *OTPHandler {
	return &OTPHandler{issuer: issuer, verifier: verifier}
}

// Mount registers the OTP routes on r.
func (h *OTPHandler) Mount(r chi.Router) {
	r.Route("/api/otp", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/verify", h.Verify)
	})
}

type sendRequest struct {
	Phone string `json:"phone" validate:"required,max=32"`
	Name  string `json:"name" validate:"max=100"`
}

type sendResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	SessionID string    `json:"sessionId"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Send issues an OTP and returns the session handle.
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpapi.Bind(r, &req); err != nil {
		errmap.Render(w, r, err)
		return
	}

	res, err := h.issuer.IssueOTP(r.Context(), app.IssueRequest{
		Phone:       req.Phone,
		DisplayName: req.Name,
		ClientIP:    httpapi.ClientIP(r),
	})
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrUnavailable) {
			errmap.RenderMessage(w, r, err, "service temporarily unavailable")
			return
		}
		errmap.Render(w, r, err)
		return
	}

	render.JSON(w, r, sendResponse{
		Success:   true,
		Message:   "OTP sent successfully",
		SessionID: res.SessionID,
		Method:    res.Method.String(),
		ExpiresAt: res.ExpiresAt,
	})
}

type verifyRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
	OTP       string `json:"otp" validate:"required,max=16"`
}

type verifyResponse struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// Verify checks a submitted code. It answers 200 when the code is valid
// and 400 otherwise, including on internal faults.
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := httpapi.Bind(r, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, verifyResponse{IsValid: false, Message: missingVerifyFields})
		return
	}

	v := h.verifier.VerifyOTP(r.Context(), req.SessionID, req.OTP)
	if !v.Valid {
		render.Status(r, http.StatusBadRequest)
	}
	render.JSON(w, r, verifyResponse{IsValid: v.Valid, Message: v.Message})
}
