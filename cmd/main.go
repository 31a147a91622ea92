package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/commercekit/paybridge/infra/auth"
	"github.com/commercekit/paybridge/infra/config"
	"github.com/commercekit/paybridge/infra/logger"
	"github.com/commercekit/paybridge/infra/middle"
	"github.com/commercekit/paybridge/infra/notify"
	"github.com/commercekit/paybridge/infra/opensearch"
	"github.com/commercekit/paybridge/infra/response"
	"github.com/commercekit/paybridge/infra/store"
	"github.com/commercekit/paybridge/provider"
	"github.com/commercekit/paybridge/router"
)

var events *opensearch.Logger

func init() {
	// Load Env
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using process environment")
	}
	// init conf
	_ = config.App()

	cfg := config.GetAppConfig()
	if cfg.EnableLogging {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without event indexing...")
		} else {
			events = opensearch.NewLogger(osClient)
		}
	} else {
		log.Println("OpenSearch event indexing is disabled")
	}

	logger.InitGlobalLogger(events)
}

func main() {
	cfg := config.GetAppConfig()

	orderStore, err := store.NewSQLiteOrderStore(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("Failed to open order store", err)
	}
	defer orderStore.Close()

	var alerts provider.AlertSink
	if mailer := notify.NewMailerFromAppConfig(cfg); mailer != nil {
		alerts = mailer
		logger.Info("Reconciliation alerting enabled")
	} else {
		logger.Warn("SMTP not configured, reconciliation mismatches will only be logged")
	}

	paymentService := provider.NewPaymentService(orderStore, alerts, events)

	// Activate every gateway with credentials in the environment
	gatewayConfig := config.NewGatewayConfig()
	gatewayConfig.LoadFromEnv()
	for _, name := range gatewayConfig.GetAvailableGateways() {
		gatewayCfg, err := gatewayConfig.GetConfig(name)
		if err != nil {
			logger.Error("Failed to read gateway configuration", err, logger.LogContext{Gateway: name})
			continue
		}
		if err := paymentService.AddGateway(name, gatewayCfg); err != nil {
			logger.Error("Failed to initialize gateway", err, logger.LogContext{Gateway: name})
			continue
		}
		logger.Info("Configured payment gateway", logger.LogContext{Gateway: name})
	}
	if len(paymentService.GatewayNames()) == 0 {
		logger.Warn("No payment gateways configured")
	}

	jwtService := auth.NewJWTService()

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.RealIP)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middle.RequestLoggingMiddleware())
	r.Use(middleware.Timeout(60 * time.Second))

	// Security Middleware
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.RateLimitMiddleware(middle.NewRateLimiter()))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Routes(r, router.Deps{
		PaymentService: paymentService,
		GatewayConfig:  gatewayConfig,
		JWTService:     jwtService,
		Events:         events,
	})

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = response.WriteJSON(w, http.StatusNotFound, response.Response{Code: http.StatusNotFound, Message: "Not Found"})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", err)
		}
	}()

	logger.Info("PayBridge API is running on port " + cfg.Port)

	// Block until a signal is received
	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", err)
	}
}
