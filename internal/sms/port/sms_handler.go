// Package port exposes the operational SMS use cases over HTTP.
package port

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/zonixt/eauction/internal/domain"
	"github.com/zonixt/eauction/internal/errmap"
	"github.com/zonixt/eauction/internal/httpapi"
	"github.com/zonixt/eauction/internal/sms/app"
)

// smsService is the subset of *app.Service the handler calls.
type smsService interface {
	SendPromotional(ctx context.Context, phone, message string) (app.Result, error)
	SendTemplate(ctx context.Context, phone string, vars []string) (app.Result, error)
	CheckBalance(ctx context.Context, category domain.BalanceCategory) (app.Result, error)
}

var _ smsService = (*app.Service)(nil)

// SMSHandler serves /api/sms.
type SMSHandler struct {
	svc smsService
}

// NewSMSHandler creates an SMSHandler.
func NewSMSHandler(svc *app.Service) *SMSHandler {
	return &SMSHandler{svc: svc}
}

// Mount registers the SMS routes on r.
func (h *SMSHandler) Mount(r chi.Router) {
	r.Route("/api/sms", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/template", h.SendTemplate)
		r.Get("/balance/{category}", h.Balance)
	})
}

type sendRequest struct {
	Phone   string `json:"phone" validate:"required,max=32"`
	Message string `json:"message" validate:"required,max=1000"`
}

type templateRequest struct {
	Phone  string         `json:"phone" validate:"required,max=32"`
	Params templateParams `json:"params"`
}

type templateParams struct {
	Var1 string `json:"VAR1" validate:"max=30"`
	Var2 string `json:"VAR2" validate:"max=30"`
	Var3 string `json:"VAR3" validate:"max=30"`
	Var4 string `json:"VAR4" validate:"max=30"`
	Var5 string `json:"VAR5" validate:"max=30"`
}

type sendResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	Details string `json:"details"`
}

type balanceResponse struct {
	Success  bool   `json:"success"`
	Category string `json:"category"`
	Balance  string `json:"balance"`
}

// Send sends a promotional SMS.
func (h *SMSHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpapi.Bind(r, &req); err != nil {
		errmap.Render(w, r, err)
		return
	}

	res, err := h.svc.SendPromotional(r.Context(), req.Phone, req.Message)
	if err != nil {
		errmap.Render(w, r, err)
		return
	}
	renderSend(w, r, res)
}

// SendTemplate sends the registered template SMS.
func (h *SMSHandler) SendTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := httpapi.Bind(r, &req); err != nil {
		errmap.Render(w, r, err)
		return
	}

	p := req.Params
	res, err := h.svc.SendTemplate(r.Context(), req.Phone, []string{p.Var1, p.Var2, p.Var3, p.Var4, p.Var5})
	if err != nil {
		errmap.Render(w, r, err)
		return
	}
	renderSend(w, r, res)
}

// Balance reports the gateway quota for the PSMS or SMS category.
func (h *SMSHandler) Balance(w http.ResponseWriter, r *http.Request) {
	category := domain.BalanceCategory(strings.ToUpper(chi.URLParam(r, "category")))

	res, err := h.svc.CheckBalance(r.Context(), category)
	if err != nil {
		errmap.Render(w, r, err)
		return
	}
	if !res.Success {
		render.Status(r, http.StatusBadGateway)
	}
	render.JSON(w, r, balanceResponse{
		Success:  res.Success,
		Category: string(category),
		Balance:  res.Details,
	})
}

// renderSend answers 200 when the gateway accepted the message and 502 when
// it declined.
func renderSend(w http.ResponseWriter, r *http.Request, res app.Result) {
	status := "sent"
	if !res.Success {
		status = "failed"
		render.Status(r, http.StatusBadGateway)
	}
	render.JSON(w, r, sendResponse{Success: res.Success, Status: status, Details: res.Details})
}
