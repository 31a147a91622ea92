package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/response"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	paymentService PaymentServiceInterface
	eventsEnabled  bool
	startTime      time.Time
}

// HealthStatus represents overall system health
type HealthStatus struct {
	Status        string    `json:"status"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	Uptime        string    `json:"uptime"`
	Environment   string    `json:"environment"`
	Gateways      []string  `json:"gateways"`
	EventsEnabled bool      `json:"events_enabled"`
	GoRoutines    int       `json:"goroutines"`
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(paymentService PaymentServiceInterface, eventsEnabled bool) *HealthHandler {
	return &HealthHandler{
		paymentService: paymentService,
		eventsEnabled:  eventsEnabled,
		startTime:      time.Now(),
	}
}

// CheckHealth reports service health. The service is degraded when no
// gateway is configured, since callbacks could not be verified.
func (h *HealthHandler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	gateways := h.paymentService.GatewayNames()

	health := &HealthStatus{
		Status:        "healthy",
		Version:       "1.0.0",
		Timestamp:     time.Now().UTC(),
		Uptime:        time.Since(h.startTime).String(),
		Environment:   config.GetEnv("ENVIRONMENT", "development"),
		Gateways:      gateways,
		EventsEnabled: h.eventsEnabled,
		GoRoutines:    runtime.NumGoroutine(),
	}
	if len(gateways) == 0 {
		health.Status = "degraded"
	}

	response.Success(w, http.StatusOK, "Service is "+health.Status, health)
}
