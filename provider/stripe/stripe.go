package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/commercekit/paybridge/provider"
)

// PaymentIntent statuses we act on
const (
	statusRequiresCapture = "requires_capture"
	statusSucceeded       = "succeeded"
	statusCanceled        = "canceled"
	statusProcessing      = "processing"
	statusRequiresAction  = "requires_action"
	statusRequiresMethod  = "requires_payment_method"
)

// Stripe signs webhooks with an HMAC in the Stripe-Signature header; the
// SDK's webhook package does the verification, so the profile only documents
// the scheme. Amounts travel in minor units.
var profile = &provider.Profile{
	Name:            "stripe",
	Algorithm:       provider.AlgHMACSHA256,
	SecretPlacement: provider.SecretHMACKey,
	Encoding:        provider.EncodingHexLower,
	SignatureField:  "Stripe-Signature",
	AmountScale:     2,
	MinorUnitFactor: 100,
	Statuses: provider.StatusTable{
		statusRequiresCapture: provider.StateAuthorized,
		statusSucceeded:       provider.StateCaptured,
		statusCanceled:        provider.StateCancelled,
		statusProcessing:      provider.NoTransition,
		statusRequiresAction:  provider.NoTransition,
		statusRequiresMethod:  provider.NoTransition,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: "https://api.stripe.com",
		provider.EnvLive: "https://api.stripe.com",
	},
}

// StripeGateway integrates Stripe Checkout plus the PaymentIntents API for
// back-office operations. The webhook payload rides in the "payload" field
// and the signature header in "Stripe-Signature".
type StripeGateway struct {
	webhookSecret string
	manualCapture bool
	client        *client.API
}

// NewGateway creates a new Stripe gateway.
func NewGateway() provider.Gateway {
	return &StripeGateway{}
}

// Initialize sets up the Stripe gateway with credentials
func (g *StripeGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.webhookSecret = conf["webhookSecret"]
	g.manualCapture = conf["manualCapture"] == "true"

	sc := &client.API{}
	sc.Init(conf["secretKey"], nil)
	g.client = sc

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *StripeGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "secretKey", Required: true, Type: "string", Description: "Stripe secret API key"},
		{Key: "webhookSecret", Required: true, Type: "string", Description: "Webhook endpoint signing secret"},
		{Key: "manualCapture", Required: false, Type: "boolean", Description: "Authorize only, capture from the back office"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *StripeGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm creates a Checkout session and returns its hosted URL as
// a GET redirect. The order id rides in the PaymentIntent metadata so
// webhooks can be tied back to the order.
func (g *StripeGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	params := &stripe.CheckoutSessionParams{
		Params:            stripe.Params{Context: ctx},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(opts.ContinueURL),
		CancelURL:         stripe.String(opts.CancelURL),
		ClientReferenceID: stripe.String(order.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(order.Amount.Currency)),
				UnitAmount: stripe.Int64(order.Amount.MinorUnitsInt(profile.MinorUnitFactor)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order " + order.CartNumber),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{"order_id": order.ID},
		},
	}
	if g.manualCapture {
		params.PaymentIntentData.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	return &provider.PaymentForm{
		Action: session.URL,
		Method: "GET",
		Fields: provider.FieldSet{},
	}, nil
}

// ValidateCallback verifies the webhook signature with the endpoint secret
// and extracts the payment intent event.
func (g *StripeGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	event, err := webhook.ConstructEvent([]byte(fields["payload"]), fields["Stripe-Signature"], g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("stripe: %w: %v", provider.ErrInvalidSignature, err)
	}

	if !strings.HasPrefix(string(event.Type), "payment_intent.") {
		return nil, fmt.Errorf("stripe: unhandled event type %q", event.Type)
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent: %w", err)
	}

	callbackEvent := &provider.CallbackEvent{
		OrderID:       pi.Metadata["order_id"],
		StatusCode:    string(pi.Status),
		TransactionID: pi.ID,
		Fields: provider.FieldSet{
			"event_type": string(event.Type),
			"event_id":   event.ID,
		},
	}

	if pi.Amount > 0 && pi.Currency != "" {
		amount, err := provider.ParseGatewayAmount(
			fmt.Sprintf("%d", pi.Amount), strings.ToUpper(string(pi.Currency)), profile)
		if err != nil {
			return nil, fmt.Errorf("stripe: %w", err)
		}
		callbackEvent.Amount = amount
	}

	return callbackEvent, nil
}

// GetStatus retrieves the payment intent and maps its status.
func (g *StripeGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no payment intent on order"), nil
	}

	pi, err := g.client.PaymentIntents.Get(order.TransactionID, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}

	state, ok := profile.Statuses.Map(string(pi.Status))
	if !ok || state == provider.NoTransition {
		return provider.Failure(fmt.Sprintf("payment intent %s is still %s", pi.ID, pi.Status)), nil
	}
	return provider.Success(state, pi.ID, string(pi.Status)), nil
}

// Capture settles a manually captured payment intent.
func (g *StripeGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no payment intent on order"), nil
	}

	pi, err := g.client.PaymentIntents.Capture(order.TransactionID, &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return provider.Failure(fmt.Sprintf("capture left payment intent %s in %s", pi.ID, pi.Status)), nil
	}
	return provider.Success(provider.StateCaptured, pi.ID, string(pi.Status)), nil
}

// Refund refunds the full captured amount.
func (g *StripeGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no payment intent on order"), nil
	}

	refund, err := g.client.Refunds.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(order.TransactionID),
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	if refund.Status == stripe.RefundStatusFailed {
		return provider.Failure(fmt.Sprintf("refund %s failed: %s", refund.ID, refund.FailureReason)), nil
	}
	return provider.Success(provider.StateRefunded, order.TransactionID, string(refund.Status)), nil
}

// Cancel voids an uncaptured payment intent.
func (g *StripeGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no payment intent on order"), nil
	}

	pi, err := g.client.PaymentIntents.Cancel(order.TransactionID, &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	return provider.Success(provider.StateCancelled, pi.ID, string(pi.Status)), nil
}
