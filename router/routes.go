package router

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/commercekit/paybridge/handler"
	"github.com/commercekit/paybridge/infra/auth"
	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/middle"
	"github.com/commercekit/paybridge/infra/opensearch"
	"github.com/commercekit/paybridge/provider"

	// Import for side-effect registration
	_ "github.com/commercekit/paybridge/provider/buckaroo"
	_ "github.com/commercekit/paybridge/provider/mollie"
	_ "github.com/commercekit/paybridge/provider/ogone"
	_ "github.com/commercekit/paybridge/provider/stripe"
	_ "github.com/commercekit/paybridge/provider/twocheckout"
	_ "github.com/commercekit/paybridge/provider/wannafind"
	_ "github.com/commercekit/paybridge/provider/worldpay"
)

// Deps carries the shared services the routes are built from
type Deps struct {
	PaymentService *provider.PaymentService
	GatewayConfig  *config.GatewayConfig
	JWTService     *auth.JWTService
	Events         *opensearch.Logger
}

// Routes registers all API routes
func Routes(r chi.Router, deps Deps) {
	validate := validator.New()

	paymentHandler := handler.NewPaymentHandler(deps.PaymentService, validate)
	callbackHandler := handler.NewCallbackHandler(deps.PaymentService)
	authHandler := handler.NewAuthHandler(deps.JWTService, validate)
	configHandler := handler.NewConfigHandler(deps.GatewayConfig, deps.PaymentService, validate)
	logsHandler := handler.NewLogsHandler(deps.Events)
	healthHandler := handler.NewHealthHandler(deps.PaymentService, deps.Events != nil)

	// Health check endpoint (no auth required)
	r.Get("/health", healthHandler.CheckHealth)

	// Gateway notifications authenticate through their own signatures
	r.Route("/callback", func(r chi.Router) {
		r.HandleFunc("/{gateway}", callbackHandler.HandleCallback)
	})
	r.Post("/webhooks/{gateway}", callbackHandler.HandleCallback)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Operator routes behind JWT authentication
		r.Group(func(r chi.Router) {
			r.Use(middle.AuthMiddleware(deps.JWTService))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", paymentHandler.CreateOrder)
				r.Get("/{orderID}", paymentHandler.GetOrder)
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/gateways", paymentHandler.ListGateways)
				r.Post("/{gateway}/{orderID}/form", paymentHandler.BuildPaymentForm)
				r.Post("/{gateway}/{orderID}/{operation}", paymentHandler.RunOperation)
			})

			r.Route("/config", func(r chi.Router) {
				r.Get("/gateways", configHandler.ListRegisteredGateways)
				r.Post("/gateways", configHandler.SetGatewayConfig)
				r.Get("/gateways/{gateway}/fields", configHandler.GetRequiredFields)
			})

			r.Route("/logs", func(r chi.Router) {
				r.Get("/{gateway}/orders/{orderID}", logsHandler.GetOrderEvents)
				r.Get("/{gateway}/mismatches", logsHandler.GetMismatches)
			})
		})
	})
}
