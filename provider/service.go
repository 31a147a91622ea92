package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/commercekit/paybridge/infra/logger"
	"github.com/commercekit/paybridge/infra/opensearch"
)

// CallbackResult is the full account of one processed gateway notification.
type CallbackResult struct {
	OrderID        string          `json:"orderId"`
	StatusCode     string          `json:"statusCode"`
	TransactionID  string          `json:"transactionId,omitempty"`
	Reconciliation ReconcileResult `json:"-"`
	Flagged        bool            `json:"flagged"`
	Outcome        ApplyOutcome    `json:"outcome"`
	FromState      PaymentState    `json:"fromState"`
	ToState        PaymentState    `json:"toState"`
	Reason         string          `json:"reason,omitempty"`
}

// PaymentService drives payment operations through the configured gateways.
// Every callback runs the same sequence under the order lock: verify the
// signature, reconcile the reported amount, apply the state transition.
type PaymentService struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
	store    OrderStore
	machine  *StateMachine
	alerts   AlertSink
	events   *opensearch.Logger
}

// NewPaymentService creates a payment service persisting through store.
// alerts and events may be nil, which disables alerting and event indexing.
func NewPaymentService(store OrderStore, alerts AlertSink, events *opensearch.Logger) *PaymentService {
	return &PaymentService{
		gateways: make(map[string]Gateway),
		store:    store,
		machine:  NewStateMachine(store),
		alerts:   alerts,
		events:   events,
	}
}

// AddGateway creates, initializes and registers a gateway by name.
func (s *PaymentService) AddGateway(name string, config map[string]string) error {
	gateway, err := CreateGateway(name)
	if err != nil {
		return err
	}

	if err := gateway.Initialize(config); err != nil {
		return fmt.Errorf("failed to initialize gateway %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateways[strings.ToLower(name)] = gateway

	logger.Info("Gateway registered", logger.LogContext{Gateway: name})
	return nil
}

// GetGateway returns an initialized gateway by name.
func (s *PaymentService) GetGateway(name string) (Gateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gateway, ok := s.gateways[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return gateway, nil
}

// GatewayNames returns the names of the initialized gateways.
func (s *PaymentService) GatewayNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.gateways))
	for name := range s.gateways {
		names = append(names, name)
	}
	return names
}

// RegisterOrder stores a new order in the Initialized state.
func (s *PaymentService) RegisterOrder(ctx context.Context, order *Order) error {
	creator, ok := s.store.(OrderCreator)
	if !ok {
		return fmt.Errorf("order store does not support registration")
	}

	if order.State == "" {
		order.State = StateInitialized
	}
	if !ValidCurrency(order.Amount.Currency) {
		return fmt.Errorf("unknown currency %q", order.Amount.Currency)
	}

	return creator.Put(ctx, order)
}

// GetOrder loads an order with its transition history.
func (s *PaymentService) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return s.store.Get(ctx, orderID)
}

// BuildPaymentForm produces the signed redirect form for an order.
func (s *PaymentService) BuildPaymentForm(ctx context.Context, gatewayName string, orderID string, opts FormOptions) (*PaymentForm, error) {
	gateway, err := s.GetGateway(gatewayName)
	if err != nil {
		return nil, err
	}

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return gateway.BuildPaymentForm(ctx, order, opts)
}

// ProcessCallback verifies, reconciles and applies one inbound gateway
// notification. The whole sequence runs under the order's single-writer
// lock. An invalid signature aborts before any state is touched.
func (s *PaymentService) ProcessCallback(ctx context.Context, gatewayName string, fields FieldSet) (*CallbackResult, error) {
	start := time.Now()

	gateway, err := s.GetGateway(gatewayName)
	if err != nil {
		return nil, err
	}

	event, err := gateway.ValidateCallback(ctx, fields)
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			logger.Warn("Callback signature rejected", logger.LogContext{
				Gateway: gatewayName,
				Fields:  map[string]any{"field_count": len(fields)},
			})
			s.indexCallback(gatewayName, opensearch.CallbackLog{
				SignatureValid:   false,
				Error:            err.Error(),
				ProcessingTimeMs: time.Since(start).Milliseconds(),
			})
		}
		return nil, err
	}

	unlock := s.machine.LockOrder(event.OrderID)
	defer unlock()

	order, err := s.store.Get(ctx, event.OrderID)
	if err != nil {
		return nil, err
	}

	result := &CallbackResult{
		OrderID:       event.OrderID,
		StatusCode:    event.StatusCode,
		TransactionID: event.TransactionID,
		FromState:     order.State,
		ToState:       order.State,
	}

	profile := gateway.Profile()

	target, known := profile.Statuses.Map(event.StatusCode)
	if !known {
		result.Outcome = OutcomeIgnored
		result.Reason = fmt.Sprintf("unknown status code %q", event.StatusCode)
		logger.Warn("Callback carried unknown status code", logger.LogContext{
			Gateway: gatewayName,
			OrderID: event.OrderID,
			Fields:  map[string]any{"status_code": event.StatusCode},
		})
		s.indexResult(gatewayName, event, result, time.Since(start).Milliseconds())
		return result, nil
	}
	if target == NoTransition {
		result.Outcome = OutcomeIgnored
		result.Reason = fmt.Sprintf("status code %q requires no transition", event.StatusCode)
		s.indexResult(gatewayName, event, result, time.Since(start).Milliseconds())
		return result, nil
	}

	// Reconcile when the gateway reported an amount. Mismatches are
	// accepted and flagged, never dropped.
	note := ""
	if event.Amount.Currency != "" {
		result.Reconciliation = Reconcile(event.Amount, order.Amount, profile.AmountScale)
		if result.Reconciliation == Mismatch {
			result.Flagged = true
			note = fmt.Sprintf("amount mismatch: gateway reported %s %s, order is %s %s",
				event.Amount.Format(profile.AmountScale), event.Amount.Currency,
				order.Amount.Format(profile.AmountScale), order.Amount.Currency)
			s.alertMismatch(gatewayName, order, event, note)
		}
	}

	applied, err := s.machine.Apply(ctx, order, TransitionRequest{
		Target:        target,
		StatusCode:    event.StatusCode,
		TransactionID: event.TransactionID,
		Flagged:       result.Flagged,
		Note:          note,
	}, profile)
	if err != nil {
		return nil, err
	}

	result.Outcome = applied.Outcome
	result.Reason = applied.Reason
	result.ToState = order.State

	logCtx := logger.LogContext{
		Gateway: gatewayName,
		OrderID: event.OrderID,
		Fields: map[string]any{
			"status_code": event.StatusCode,
			"outcome":     string(applied.Outcome),
			"from_state":  string(result.FromState),
			"to_state":    string(result.ToState),
			"flagged":     result.Flagged,
		},
	}
	switch applied.Outcome {
	case OutcomeRejected:
		logger.Warn("Callback transition rejected", logCtx)
	default:
		logger.Info("Callback processed", logCtx)
	}

	s.indexResult(gatewayName, event, result, time.Since(start).Milliseconds())
	return result, nil
}

// RunOperation executes an outbound gateway operation against an order and
// applies the resulting transition. op is one of status, capture, refund,
// cancel.
func (s *PaymentService) RunOperation(ctx context.Context, gatewayName, orderID, op string) (*APIResult, error) {
	gateway, err := s.GetGateway(gatewayName)
	if err != nil {
		return nil, err
	}

	unlock := s.machine.LockOrder(orderID)
	defer unlock()

	order, err := s.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var result *APIResult
	switch op {
	case "status":
		result, err = gateway.GetStatus(ctx, order)
	case "capture":
		result, err = gateway.Capture(ctx, order)
	case "refund":
		result, err = gateway.Refund(ctx, order)
	case "cancel":
		result, err = gateway.Cancel(ctx, order)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	if err != nil {
		logger.Error("Gateway operation failed", err, logger.LogContext{
			Gateway: gatewayName,
			OrderID: orderID,
			Fields:  map[string]any{"operation": op},
		})
		return nil, err
	}

	if result.Outcome == OutcomeSuccess && result.NewState != NoTransition && result.NewState != order.State {
		applied, err := s.machine.Apply(ctx, order, TransitionRequest{
			Target:        result.NewState,
			StatusCode:    result.StatusCode,
			TransactionID: result.TransactionID,
			Note:          "api:" + op,
		}, gateway.Profile())
		if err != nil {
			return nil, err
		}
		if applied.Outcome == OutcomeRejected {
			return Failure(applied.Reason), nil
		}
	}

	logger.Info("Gateway operation completed", logger.LogContext{
		Gateway: gatewayName,
		OrderID: orderID,
		Fields: map[string]any{
			"operation": op,
			"outcome":   string(result.Outcome),
		},
	})

	return result, nil
}

// alertMismatch escalates a reconciliation mismatch to the operator.
func (s *PaymentService) alertMismatch(gatewayName string, order *Order, event *CallbackEvent, note string) {
	logger.Warn("Reconciliation mismatch", logger.LogContext{
		Gateway: gatewayName,
		OrderID: order.ID,
		Fields:  map[string]any{"note": note},
	})

	if s.alerts == nil {
		return
	}

	subject := fmt.Sprintf("Reconciliation mismatch on order %s (%s)", order.ID, gatewayName)
	body := fmt.Sprintf("Order %s (cart %s)\nGateway: %s\nStatus code: %s\nTransaction: %s\n%s\n\nThe transition was applied and flagged for manual review.",
		order.ID, order.CartNumber, gatewayName, event.StatusCode, event.TransactionID, note)

	if err := s.alerts.Alert(subject, body); err != nil {
		logger.Error("Failed to send mismatch alert", err, logger.LogContext{
			Gateway: gatewayName,
			OrderID: order.ID,
		})
	}
}

func (s *PaymentService) indexResult(gatewayName string, event *CallbackEvent, result *CallbackResult, processingMs int64) {
	entry := opensearch.CallbackLog{
		OrderID:          event.OrderID,
		StatusCode:       event.StatusCode,
		TransactionID:    event.TransactionID,
		SignatureValid:   true,
		Reconciliation:   result.Reconciliation.String(),
		Flagged:          result.Flagged,
		Outcome:          string(result.Outcome),
		FromState:        string(result.FromState),
		ToState:          string(result.ToState),
		ProcessingTimeMs: processingMs,
	}
	if event.Amount.Currency != "" {
		entry.Amount = event.Amount.Value.String()
		entry.Currency = event.Amount.Currency
	}
	s.indexCallback(gatewayName, entry)
}

func (s *PaymentService) indexCallback(gatewayName string, entry opensearch.CallbackLog) {
	if s.events == nil {
		return
	}

	entry.Gateway = gatewayName

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.events.LogCallback(ctx, entry); err != nil {
			logger.Warn("Failed to index callback event", logger.LogContext{
				Gateway: gatewayName,
				OrderID: entry.OrderID,
				Fields:  map[string]any{"error": err.Error()},
			})
		}
	}()
}
