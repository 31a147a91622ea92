package buckaroo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/commercekit/paybridge/provider"
)

const (
	liveURL = "https://checkout.buckaroo.nl/"
	testURL = "https://testcheckout.buckaroo.nl/"

	// Gateway operations on the NVP endpoint
	opTransactionStatus  = "TransactionStatus"
	opTransactionRequest = "TransactionRequest"

	// Buckaroo status codes
	statusSuccess          = "190"
	statusFailed           = "490"
	statusValidationFailed = "491"
	statusTechnicalError   = "492"
	statusRejected         = "690"
	statusPendingInput     = "790"
	statusPendingProcess   = "791"
	statusAwaitingConsumer = "792"
	statusAwaitingBalance  = "793"
	statusCancelledByUser  = "890"
	statusCancelledByShop  = "891"

	defaultTimeout = 30 * time.Second
)

// signing and endpoint profile, shared by all instances
var profile = &provider.Profile{
	Name:            "buckaroo",
	Algorithm:       provider.AlgSHA1,
	SecretPlacement: provider.SecretSuffix,
	Encoding:        provider.EncodingHexLower,
	KeyCase:         provider.KeyCaseAsIs,
	Separator:       "",
	IncludePrefixes: []string{"brq", "add", "cust"},
	SignatureField:  "brq_signature",
	AmountScale:     2,
	MinorUnitFactor: 1,
	Statuses: provider.StatusTable{
		statusSuccess:          provider.StateCaptured,
		statusFailed:           provider.StateCancelled,
		statusValidationFailed: provider.StateCancelled,
		statusTechnicalError:   provider.StateError,
		statusRejected:         provider.StateCancelled,
		statusPendingInput:     provider.NoTransition,
		statusPendingProcess:   provider.NoTransition,
		statusAwaitingConsumer: provider.NoTransition,
		statusAwaitingBalance:  provider.NoTransition,
		statusCancelledByUser:  provider.StateCancelled,
		statusCancelledByShop:  provider.StateCancelled,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: testURL,
		provider.EnvLive: liveURL,
	},
}

// BuckarooGateway integrates the Buckaroo Payment Engine HTML/NVP gateway.
// The hosted payment page lets the customer pick a payment method, so the
// redirect form carries no method unless one is pinned in the config.
type BuckarooGateway struct {
	websiteKey    string
	secretKey     string
	paymentMethod string
	environment   provider.Environment
	client        *provider.GatewayHTTPClient
}

// NewGateway creates a new Buckaroo gateway.
func NewGateway() provider.Gateway {
	return &BuckarooGateway{}
}

// Initialize sets up the Buckaroo gateway with credentials
func (g *BuckarooGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.websiteKey = conf["websiteKey"]
	g.secretKey = conf["secretKey"]
	g.paymentMethod = conf["paymentMethod"]
	g.environment = provider.EnvironmentFromConfig(conf)

	g.client = provider.NewGatewayHTTPClient(&provider.HTTPClientConfig{
		BaseURL: profile.Endpoint(g.environment),
		Timeout: defaultTimeout,
	})

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *BuckarooGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "websiteKey", Required: true, Type: "string", Description: "Website key from Payment Plaza"},
		{Key: "secretKey", Required: true, Type: "string", Description: "Secret key from Payment Plaza"},
		{Key: "paymentMethod", Required: false, Type: "string", Description: "Pin a payment method, eg. mastercard or ideal"},
		{Key: "environment", Required: false, Type: "string", Description: "test or live"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *BuckarooGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm produces the signed redirect form for the hosted
// payment page.
func (g *BuckarooGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	if !provider.ValidCurrency(order.Amount.Currency) {
		return nil, fmt.Errorf("buckaroo: unknown ISO 4217 currency %q", order.Amount.Currency)
	}

	fields := provider.FieldSet{
		"brq_websitekey":    g.websiteKey,
		"brq_currency":      order.Amount.Currency,
		"brq_amount":        order.Amount.Format(profile.AmountScale),
		"brq_invoicenumber": order.CartNumber,
		"add_orderid":       order.ID,
		"brq_return":        opts.ContinueURL,
		"brq_returncancel":  opts.CancelURL,
		"brq_returnerror":   opts.CancelURL,
		"brq_returnreject":  opts.CancelURL,
		"brq_push":          opts.CallbackURL,
		"brq_pushfailure":   opts.CallbackURL,
	}
	if g.paymentMethod != "" {
		fields["brq_payment_method"] = g.paymentMethod
	}

	signature, err := provider.Sign(fields, profile, g.secretKey)
	if err != nil {
		return nil, err
	}
	fields["brq_signature"] = signature

	return &provider.PaymentForm{
		Action: profile.Endpoint(g.environment) + "html/",
		Method: "POST",
		Fields: fields,
	}, nil
}

// ValidateCallback verifies a push notification's signature and extracts
// the callback event.
func (g *BuckarooGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	claimed := fields["brq_signature"]
	if claimed == "" {
		return nil, fmt.Errorf("buckaroo: %w: brq_signature missing", provider.ErrInvalidSignature)
	}

	ok, err := provider.Verify(fields, claimed, profile, g.secretKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("buckaroo: %w", provider.ErrInvalidSignature)
	}

	orderID := fields["add_orderid"]
	if orderID == "" {
		orderID = fields["brq_invoicenumber"]
	}

	event := &provider.CallbackEvent{
		OrderID:       orderID,
		StatusCode:    fields["brq_statuscode"],
		TransactionID: fields["brq_transactions"],
		Method:        fields["brq_transaction_method"],
		Fields:        fields.Clone(),
	}

	if raw := fields["brq_amount"]; raw != "" {
		amount, err := provider.ParseGatewayAmount(raw, fields["brq_currency"], profile)
		if err != nil {
			return nil, fmt.Errorf("buckaroo: %w", err)
		}
		event.Amount = amount
	}

	return event, nil
}

// GetStatus polls the NVP gateway for the transaction's current state.
// A 190 on a transaction with a related refund means the money went back.
func (g *BuckarooGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no transaction id on order"), nil
	}

	response, err := g.nvpRequest(ctx, opTransactionStatus, provider.FieldSet{
		"brq_websitekey":  g.websiteKey,
		"brq_transaction": order.TransactionID,
	})
	if err != nil {
		return nil, err
	}

	code, ok := response["BRQ_STATUSCODE"]
	if !ok {
		return provider.Failure("response carried no status code"), nil
	}
	if code != statusSuccess {
		return provider.Failure(fmt.Sprintf("transaction status %s", code)), nil
	}

	if _, refunded := response["BRQ_RELATEDTRANSACTION_REFUND"]; refunded {
		return provider.Success(provider.StateRefunded, order.TransactionID, code), nil
	}
	return provider.Success(provider.StateCaptured, order.TransactionID, code), nil
}

// Capture is not supported; Buckaroo settles on callback.
func (g *BuckarooGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("buckaroo settles transactions itself"), nil
}

// Refund credits the full order amount back through the NVP gateway.
func (g *BuckarooGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no transaction id on order"), nil
	}

	response, err := g.nvpRequest(ctx, opTransactionRequest, provider.FieldSet{
		"brq_websitekey":          g.websiteKey,
		"brq_invoicenumber":       order.CartNumber,
		"brq_currency":            order.Amount.Currency,
		"brq_amount_credit":       order.Amount.Format(profile.AmountScale),
		"brq_originaltransaction": order.TransactionID,
	})
	if err != nil {
		return nil, err
	}

	transactions, ok := response["BRQ_TRANSACTIONS"]
	if !ok || response["BRQ_STATUSCODE"] == "" {
		return provider.Failure("refund response carried no transaction"), nil
	}

	// The refund transaction id replaces the original on the order.
	return provider.Success(provider.StateRefunded, transactions, response["BRQ_STATUSCODE"]), nil
}

// Cancel is not supported on the NVP gateway.
func (g *BuckarooGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("buckaroo cannot void transactions over NVP"), nil
}

// nvpRequest signs the field set, posts it to the NVP endpoint and verifies
// the response signature before trusting any of it.
func (g *BuckarooGateway) nvpRequest(ctx context.Context, operation string, fields provider.FieldSet) (provider.FieldSet, error) {
	signature, err := provider.Sign(fields, profile, g.secretKey)
	if err != nil {
		return nil, err
	}
	fields["brq_signature"] = signature

	resp, err := g.client.SendForm(ctx, &provider.HTTPRequest{
		Endpoint:    "nvp/",
		FormData:    fields,
		QueryParams: map[string]string{"op": operation},
	})
	if err != nil {
		return nil, fmt.Errorf("buckaroo: %s request: %w", operation, err)
	}

	body := string(resp.Body)
	if strings.Contains(body, "BRQ_APIRESULT") && strings.Contains(body, "Fail") {
		return nil, fmt.Errorf("buckaroo: %s request rejected: %s", operation, body)
	}

	response, err := provider.ParseNVP(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("buckaroo: %s response: %w", operation, err)
	}

	claimed := response["BRQ_SIGNATURE"]
	delete(response, "BRQ_SIGNATURE")

	ok, err := provider.Verify(response, claimed, profile, g.secretKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("buckaroo: %s response: %w", operation, provider.ErrInvalidSignature)
	}

	return response, nil
}
