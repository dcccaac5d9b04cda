package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/backend-billing/internal/common"
	"github.com/noah-isme/backend-billing/internal/obs"
)

// SetupInfo is the publishable configuration handed to the storefront.
type SetupInfo struct {
	PublishableKey string `json:"publishableKey"`
	BasicPrice     string `json:"basicPrice"`
	ProPrice       string `json:"proPrice"`
}

// Handler exposes the checkout and portal session endpoints.
type Handler struct {
	Gateway  Gateway
	Setup    SetupInfo
	Validate *validator.Validate
}

type createSessionReq struct {
	PriceID string `json:"priceId" validate:"required"`
}

type portalReq struct {
	SessionID string `json:"sessionId" validate:"required"`
}

// CreateCheckoutSession implements POST /create-checkout-session.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if h.Gateway == nil {
		common.JSONError(w, http.StatusInternalServerError, "BILLING_NOT_CONFIGURED", "session gateway unavailable", nil)
		return
	}
	var req createSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	req.PriceID = strings.TrimSpace(req.PriceID)
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "priceId is required", nil)
		return
	}
	ref, err := h.Gateway.CreateCheckoutSession(r.Context(), req.PriceID)
	if err != nil {
		countSession(obs.CheckoutSessionTotal, "error")
		writeError(w, err)
		return
	}
	countSession(obs.CheckoutSessionTotal, "ok")
	common.JSON(w, http.StatusOK, ref)
}

// GetCheckoutSession implements GET /checkout-session?sessionId=...
func (h *Handler) GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if h.Gateway == nil {
		common.JSONError(w, http.StatusInternalServerError, "BILLING_NOT_CONFIGURED", "session gateway unavailable", nil)
		return
	}
	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sessionId is required", nil)
		return
	}
	session, err := h.Gateway.GetCheckoutSession(r.Context(), sessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, session)
}

// GetSetup implements GET /setup.
func (h *Handler) GetSetup(w http.ResponseWriter, _ *http.Request) {
	common.JSON(w, http.StatusOK, h.Setup)
}

// CustomerPortal implements POST /customer-portal.
func (h *Handler) CustomerPortal(w http.ResponseWriter, r *http.Request) {
	if h.Gateway == nil {
		common.JSONError(w, http.StatusInternalServerError, "BILLING_NOT_CONFIGURED", "session gateway unavailable", nil)
		return
	}
	var req portalReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if err := h.validate(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sessionId is required", nil)
		return
	}
	ref, err := h.Gateway.CreatePortalSession(r.Context(), req.SessionID)
	if err != nil {
		countSession(obs.PortalSessionTotal, "error")
		writeError(w, err)
		return
	}
	countSession(obs.PortalSessionTotal, "ok")
	common.JSON(w, http.StatusOK, ref)
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusBadRequest
		}
		code := appErr.Code
		if code == "" {
			code = "PROVIDER_ERROR"
		}
		common.JSONError(w, status, code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusBadRequest, "PROVIDER_ERROR", err.Error(), nil)
}

func countSession(counter *prometheus.CounterVec, result string) {
	if counter == nil {
		return
	}
	counter.WithLabelValues(result).Inc()
}
