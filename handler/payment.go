package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/commercekit/paybridge/infra/response"
	"github.com/commercekit/paybridge/provider"
)

// PaymentServiceInterface defines the interface for payment operations
type PaymentServiceInterface interface {
	RegisterOrder(ctx context.Context, order *provider.Order) error
	GetOrder(ctx context.Context, orderID string) (*provider.Order, error)
	BuildPaymentForm(ctx context.Context, gatewayName, orderID string, opts provider.FormOptions) (*provider.PaymentForm, error)
	RunOperation(ctx context.Context, gatewayName, orderID, op string) (*provider.APIResult, error)
	GatewayNames() []string
}

// PaymentHandler handles order and payment related HTTP requests
type PaymentHandler struct {
	paymentService PaymentServiceInterface
	validate       *validator.Validate
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService PaymentServiceInterface, validate *validator.Validate) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		validate:       validate,
	}
}

// CreateOrderRequest represents the order registration request structure
type CreateOrderRequest struct {
	ID         string `json:"id,omitempty"`
	CartNumber string `json:"cartNumber" validate:"required,max=64"`
	Amount     string `json:"amount" validate:"required"`
	Currency   string `json:"currency" validate:"required,len=3,alpha"`
}

// PaymentFormRequest represents the payment form request structure
type PaymentFormRequest struct {
	ContinueURL string `json:"continueUrl" validate:"required,url"`
	CancelURL   string `json:"cancelUrl" validate:"required,url"`
	CallbackURL string `json:"callbackUrl" validate:"required,url"`
}

// CreateOrder registers a new order awaiting payment
func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	amount, err := provider.ParseAmount(req.Amount, req.Currency)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	order := &provider.Order{
		ID:         req.ID,
		CartNumber: req.CartNumber,
		Amount:     amount,
	}
	if order.ID == "" {
		order.ID = uuid.New().String()
	}

	if err := h.paymentService.RegisterOrder(ctx, order); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "Failed to register order", err)
		return
	}

	response.Success(w, http.StatusCreated, "Order registered", order)
}

// GetOrder returns an order with its transition history
func (h *PaymentHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		response.Error(w, http.StatusBadRequest, "Missing order ID", nil)
		return
	}

	order, err := h.paymentService.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, provider.ErrOrderNotFound) {
			response.Error(w, http.StatusNotFound, "Order not found", err)
			return
		}
		response.Error(w, http.StatusInternalServerError, "Failed to load order", err)
		return
	}

	response.Success(w, http.StatusOK, "Order retrieved", order)
}

// BuildPaymentForm produces the signed redirect form for an order
func (h *PaymentHandler) BuildPaymentForm(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	gatewayName := chi.URLParam(r, "gateway")
	orderID := chi.URLParam(r, "orderID")

	var req PaymentFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	form, err := h.paymentService.BuildPaymentForm(ctx, gatewayName, orderID, provider.FormOptions{
		ContinueURL: req.ContinueURL,
		CancelURL:   req.CancelURL,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrOrderNotFound):
			response.Error(w, http.StatusNotFound, "Order not found", err)
		case errors.Is(err, provider.ErrUnknownGateway):
			response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		default:
			response.Error(w, http.StatusInternalServerError, "Failed to build payment form", err)
		}
		return
	}

	response.Success(w, http.StatusOK, "Payment form built", form)
}

// RunOperation executes an outbound gateway operation: status, capture,
// refund or cancel
func (h *PaymentHandler) RunOperation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	gatewayName := chi.URLParam(r, "gateway")
	orderID := chi.URLParam(r, "orderID")
	operation := chi.URLParam(r, "operation")

	result, err := h.paymentService.RunOperation(ctx, gatewayName, orderID, operation)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrOrderNotFound):
			response.Error(w, http.StatusNotFound, "Order not found", err)
		case errors.Is(err, provider.ErrUnknownGateway):
			response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		default:
			response.Error(w, http.StatusBadRequest, "Operation failed", err)
		}
		return
	}

	switch result.Outcome {
	case provider.OutcomeSuccess:
		response.Success(w, http.StatusOK, "Operation completed", result)
	case provider.OutcomeNotSupported:
		_ = response.WriteJSON(w, http.StatusNotImplemented, response.Response{
			Code:    http.StatusNotImplemented,
			Message: "Operation not supported by gateway",
			Data:    result,
		})
	default:
		_ = response.WriteJSON(w, http.StatusBadGateway, response.Response{
			Code:    http.StatusBadGateway,
			Message: "Operation rejected by gateway",
			Data:    result,
		})
	}
}

// ListGateways returns the initialized gateway names
func (h *PaymentHandler) ListGateways(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Gateways retrieved", map[string]any{
		"gateways": h.paymentService.GatewayNames(),
	})
}
