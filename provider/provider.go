package provider

import (
	"context"
	"errors"
	"time"
)

// PaymentState represents the lifecycle state of an order's payment.
type PaymentState string

const (
	StateInitialized PaymentState = "initialized"
	StateAuthorized  PaymentState = "authorized"
	StateCaptured    PaymentState = "captured"
	StateRefunded    PaymentState = "refunded"
	StateCancelled   PaymentState = "cancelled"
	StateError       PaymentState = "error"

	// NoTransition is the sentinel a status table maps benign or pending
	// gateway codes to. It never reaches the state machine.
	NoTransition PaymentState = ""
)

var (
	// ErrInvalidSignature marks a callback or response whose signature did
	// not verify. The event is untrusted and must not reach the state machine.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrDuplicateField marks a field set containing two keys that collide
	// under case-insensitive canonical ordering.
	ErrDuplicateField = errors.New("duplicate field in canonical input")

	ErrUnknownGateway = errors.New("gateway is not registered")
	ErrOrderNotFound  = errors.New("order not found")
)

// FieldSet carries the raw request or response fields of a single gateway
// exchange. Insertion order is irrelevant; canonicalization always re-sorts.
type FieldSet map[string]string

// Clone returns an independent copy of the field set.
func (f FieldSet) Clone() FieldSet {
	out := make(FieldSet, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ConfigField describes one configuration entry a gateway requires.
type ConfigField struct {
	Key         string `json:"key"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // "string", "number", "url", "boolean"
	Description string `json:"description"`
}

// CallbackEvent is one inbound gateway notification after signature
// verification. It lives for a single processing pass and is never stored.
type CallbackEvent struct {
	OrderID       string
	StatusCode    string
	TransactionID string
	Amount        Amount
	Method        string // payment method reported by the gateway, audit only
	Fields        FieldSet
}

// Transition is one audited payment state change on an order.
type Transition struct {
	From          PaymentState `json:"from"`
	To            PaymentState `json:"to"`
	StatusCode    string       `json:"statusCode"`
	TransactionID string       `json:"transactionId"`
	Flagged       bool         `json:"flagged"`
	Note          string       `json:"note,omitempty"`
	At            time.Time    `json:"at"`
}

// TransitionRequest asks the state machine to move an order to a target state.
type TransitionRequest struct {
	Target        PaymentState
	StatusCode    string
	TransactionID string
	Flagged       bool
	Note          string
}

// Order is the authoritative payment record the engine reconciles against.
// The surrounding platform owns everything else about the order.
type Order struct {
	ID            string       `json:"id"`
	CartNumber    string       `json:"cartNumber"`
	Amount        Amount       `json:"amount"`
	State         PaymentState `json:"state"`
	TransactionID string       `json:"transactionId,omitempty"`
	History       []Transition `json:"history,omitempty"`
}

// OrderStore is the persistence collaborator. Save persists the order's
// current state together with the transition that produced it.
type OrderStore interface {
	Get(ctx context.Context, orderID string) (*Order, error)
	Save(ctx context.Context, order *Order, tr *Transition) error
}

// OrderCreator is implemented by stores that can register new orders.
type OrderCreator interface {
	Put(ctx context.Context, order *Order) error
}

// AlertSink escalates reconciliation mismatches and repeated signature
// failures to an operator.
type AlertSink interface {
	Alert(subject, body string) error
}

// FormOptions carries the URLs the web layer wants the gateway to use.
type FormOptions struct {
	ContinueURL string
	CancelURL   string
	CallbackURL string
}

// PaymentForm is the field set plus action URL the web layer renders as an
// auto-submitting form or redirect to the gateway's hosted payment page.
type PaymentForm struct {
	Action string   `json:"action"`
	Method string   `json:"method"`
	Fields FieldSet `json:"fields"`
}

// APIOutcome classifies the result of an outbound gateway operation.
type APIOutcome string

const (
	OutcomeSuccess      APIOutcome = "success"
	OutcomeNotSupported APIOutcome = "not_supported"
	OutcomeFailure      APIOutcome = "failure"
)

// APIResult is the typed result of a status/capture/refund/cancel call.
// Failures carry a reason and never corrupt order state.
type APIResult struct {
	Outcome       APIOutcome   `json:"outcome"`
	NewState      PaymentState `json:"newState,omitempty"`
	TransactionID string       `json:"transactionId,omitempty"`
	StatusCode    string       `json:"statusCode,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// Success builds a successful API result.
func Success(state PaymentState, transactionID, statusCode string) *APIResult {
	return &APIResult{Outcome: OutcomeSuccess, NewState: state, TransactionID: transactionID, StatusCode: statusCode}
}

// NotSupported builds the result for an operation the gateway cannot perform.
func NotSupported(reason string) *APIResult {
	return &APIResult{Outcome: OutcomeNotSupported, Reason: reason}
}

// Failure builds a failed API result.
func Failure(reason string) *APIResult {
	return &APIResult{Outcome: OutcomeFailure, Reason: reason}
}

// Gateway is the interface every payment gateway integration implements.
type Gateway interface {
	// Initialize sets up the gateway with credentials and configuration.
	Initialize(config map[string]string) error

	// RequiredConfig returns the configuration fields this gateway needs.
	RequiredConfig() []ConfigField

	// Profile returns the gateway's immutable signing and endpoint profile.
	Profile() *Profile

	// BuildPaymentForm produces the signed field set and action URL for the
	// redirect to the gateway's hosted payment page.
	BuildPaymentForm(ctx context.Context, order *Order, opts FormOptions) (*PaymentForm, error)

	// ValidateCallback verifies an inbound notification's signature and
	// extracts the callback event. Returns ErrInvalidSignature when the
	// notification is untrusted.
	ValidateCallback(ctx context.Context, fields FieldSet) (*CallbackEvent, error)

	// GetStatus retrieves the current state of a payment from the gateway.
	GetStatus(ctx context.Context, order *Order) (*APIResult, error)

	// Capture settles a previously authorized payment.
	Capture(ctx context.Context, order *Order) (*APIResult, error)

	// Refund returns a captured payment to the customer.
	Refund(ctx context.Context, order *Order) (*APIResult, error)

	// Cancel voids a payment before capture.
	Cancel(ctx context.Context, order *Order) (*APIResult, error)
}

// GatewayFactory creates a new, uninitialized Gateway.
type GatewayFactory func() Gateway
