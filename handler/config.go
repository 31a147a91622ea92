package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/response"
	"github.com/commercekit/paybridge/provider"
)

// GatewayRegistrar is the slice of the payment service the config handler
// needs to activate a gateway after its credentials change.
type GatewayRegistrar interface {
	AddGateway(name string, config map[string]string) error
	GatewayNames() []string
}

// ConfigHandler handles gateway configuration HTTP requests
type ConfigHandler struct {
	gatewayConfig  *config.GatewayConfig
	paymentService GatewayRegistrar
	validate       *validator.Validate
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(gatewayConfig *config.GatewayConfig, paymentService GatewayRegistrar, validate *validator.Validate) *ConfigHandler {
	return &ConfigHandler{
		gatewayConfig:  gatewayConfig,
		paymentService: paymentService,
		validate:       validate,
	}
}

// SetGatewayConfigRequest represents the gateway configuration request
type SetGatewayConfigRequest struct {
	Gateway string            `json:"gateway" validate:"required"`
	Config  map[string]string `json:"config" validate:"required"`
}

// SetGatewayConfig stores gateway credentials and (re)initializes the
// gateway with them.
func (h *ConfigHandler) SetGatewayConfig(w http.ResponseWriter, r *http.Request) {
	var req SetGatewayConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	if err := h.gatewayConfig.SetConfig(req.Gateway, req.Config); err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to store configuration", err)
		return
	}

	if err := h.paymentService.AddGateway(req.Gateway, req.Config); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "Failed to initialize gateway", err)
		return
	}

	response.Success(w, http.StatusOK, "Gateway configured", map[string]any{
		"gateway":  req.Gateway,
		"gateways": h.paymentService.GatewayNames(),
	})
}

// GetRequiredFields returns the configuration fields a gateway needs
func (h *ConfigHandler) GetRequiredFields(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	gateway, err := provider.CreateGateway(gatewayName)
	if err != nil {
		response.Error(w, http.StatusNotFound, "Unknown gateway", err)
		return
	}

	response.Success(w, http.StatusOK, "Required fields retrieved", map[string]any{
		"gateway": gatewayName,
		"fields":  gateway.RequiredConfig(),
	})
}

// ListRegisteredGateways returns every gateway the registry knows about,
// configured or not.
func (h *ConfigHandler) ListRegisteredGateways(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Gateways retrieved", map[string]any{
		"registered": provider.DefaultRegistry.GatewayNames(),
		"configured": h.gatewayConfig.GetAvailableGateways(),
		"active":     h.paymentService.GatewayNames(),
	})
}
