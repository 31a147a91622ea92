package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/commercekit/paybridge/infra/logger"
	"github.com/commercekit/paybridge/infra/response"
	"github.com/commercekit/paybridge/provider"
)

// gateways post form bodies well under this
const maxCallbackBody = 1 << 20

// CallbackServiceInterface defines the interface for callback processing
type CallbackServiceInterface interface {
	ProcessCallback(ctx context.Context, gatewayName string, fields provider.FieldSet) (*provider.CallbackResult, error)
}

// CallbackHandler handles inbound gateway notifications
type CallbackHandler struct {
	paymentService CallbackServiceInterface
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(paymentService CallbackServiceInterface) *CallbackHandler {
	return &CallbackHandler{paymentService: paymentService}
}

// HandleCallback verifies and applies one gateway notification. Form and
// query parameters become the field set; JSON webhooks keep their raw body
// under "payload" so the gateway can verify the signature over exact bytes.
func (h *CallbackHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	gatewayName := chi.URLParam(r, "gateway")
	if gatewayName == "" {
		response.Error(w, http.StatusBadRequest, "Gateway parameter is required", nil)
		return
	}

	fields, err := callbackFields(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid callback body", err)
		return
	}

	result, err := h.paymentService.ProcessCallback(ctx, gatewayName, fields)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownGateway) {
			response.Error(w, http.StatusNotFound, "Unknown gateway", err)
			return
		}

		// Untrusted or failing notifications are logged but still
		// acknowledged: a non-2xx would only make the gateway retry a
		// notification we will never accept.
		switch {
		case errors.Is(err, provider.ErrInvalidSignature):
			logger.WithGateway(gatewayName).Warn("Callback signature verification failed")
		case errors.Is(err, provider.ErrOrderNotFound):
			logger.WithGateway(gatewayName).Warn("Callback references an unknown order")
		default:
			logger.WithGateway(gatewayName).Error("Callback processing failed", err)
		}
		response.Success(w, http.StatusOK, "Callback acknowledged", nil)
		return
	}

	// Ignored and Rejected still acknowledge with 200 so the gateway stops
	// retrying a notification we have already accounted for.
	response.Success(w, http.StatusOK, "Callback processed", result)
}

func callbackFields(r *http.Request) (provider.FieldSet, error) {
	fields := make(provider.FieldSet)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
		if err != nil {
			return nil, err
		}
		fields["payload"] = string(body)
		if sig := r.Header.Get("Stripe-Signature"); sig != "" {
			fields["Stripe-Signature"] = sig
		}
		for key, values := range r.URL.Query() {
			if len(values) > 0 {
				fields[key] = values[0]
			}
		}
		return fields, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	// r.Form merges POST body and query string parameters
	for key, values := range r.Form {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}
