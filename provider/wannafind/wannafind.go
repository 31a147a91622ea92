package wannafind

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/commercekit/paybridge/provider"
)

const (
	paymentWindowURL = "https://betaling.wannafind.dk/paymentwindow.php"
	apiURL           = "https://betaling.wannafind.dk/pgwapi.php"

	// API functions
	fnCheckTransaction   = "checkTransaction"
	fnCaptureTransaction = "captureTransaction"
	fnCreditTransaction  = "creditTransaction"
	fnCancelTransaction  = "cancelTransaction"

	// returncode from checkTransaction
	statusAuthorized = "5"
	statusCaptured   = "6"
	statusCancelled  = "7"
	statusRefunded   = "8"

	defaultTimeout = 30 * time.Second
)

// Wannafind hashes a fixed concatenation per direction: the payment window
// hash and the callback hash use separate secrets and different field
// orders. Amounts travel in minor units and currencies numerically.
var profile = &provider.Profile{
	Name:            "wannafind",
	Algorithm:       provider.AlgMD5,
	SecretPlacement: provider.SecretSuffix,
	Encoding:        provider.EncodingHexLower,
	SignatureField:  "checkmd5callback",
	AmountScale:     2,
	MinorUnitFactor: 100,
	Statuses: provider.StatusTable{
		statusAuthorized: provider.StateAuthorized,
		statusCaptured:   provider.StateCaptured,
		statusCancelled:  provider.StateCancelled,
		statusRefunded:   provider.StateRefunded,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: paymentWindowURL,
		provider.EnvLive: paymentWindowURL,
	},
}

// WannafindGateway integrates the Wannafind payment window and its
// basic-auth transaction API.
type WannafindGateway struct {
	shopID            string
	md5AuthSecret     string
	md5CallbackSecret string
	cardType          string
	language          string
	client            *provider.GatewayHTTPClient
}

// NewGateway creates a new Wannafind gateway.
func NewGateway() provider.Gateway {
	return &WannafindGateway{}
}

// Initialize sets up the Wannafind gateway with credentials
func (g *WannafindGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.shopID = conf["shopID"]
	g.md5AuthSecret = conf["md5AuthSecret"]
	g.md5CallbackSecret = conf["md5CallbackSecret"]
	g.cardType = conf["cardType"]
	g.language = conf["language"]
	if g.language == "" {
		g.language = "en"
	}

	g.client = provider.NewGatewayHTTPClient(&provider.HTTPClientConfig{
		BaseURL:  apiURL,
		Timeout:  defaultTimeout,
		Username: conf["apiUser"],
		Password: conf["apiPassword"],
	})

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *WannafindGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "shopID", Required: true, Type: "string", Description: "Wannafind shop ID"},
		{Key: "md5AuthSecret", Required: true, Type: "string", Description: "MD5 secret for the payment window hash"},
		{Key: "md5CallbackSecret", Required: true, Type: "string", Description: "MD5 secret for the callback hash"},
		{Key: "apiUser", Required: true, Type: "string", Description: "API username"},
		{Key: "apiPassword", Required: true, Type: "string", Description: "API password"},
		{Key: "cardType", Required: false, Type: "string", Description: "Accepted card types, e.g. VISA,MC"},
		{Key: "language", Required: false, Type: "string", Description: "Payment window language"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *WannafindGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm produces the payment window form. The checkmd5 field
// covers currency, order id, amount and card type with the auth secret.
func (g *WannafindGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	currency, ok := provider.NumericCurrency(order.Amount.Currency)
	if !ok {
		return nil, fmt.Errorf("wannafind: currency %q has no numeric ISO 4217 code", order.Amount.Currency)
	}
	amount := order.Amount.MinorUnits(profile.MinorUnitFactor)

	fields := provider.FieldSet{
		"shopid":        g.shopID,
		"orderid":       order.ID,
		"currency":      currency,
		"amount":        amount,
		"accepturl":     opts.ContinueURL,
		"declineurl":    opts.CancelURL,
		"callbackurl":   opts.CallbackURL,
		"authtype":      "auth",
		"paytype":       "creditcard",
		"uniqueorderid": "true",
		"cardnomask":    "true",
		"lang":          g.language,
	}
	if g.cardType != "" {
		fields["cardtype"] = g.cardType
	}

	checkmd5, err := provider.Digest(profile.Algorithm, profile.Encoding, "",
		strings.Join([]string{currency, order.ID, amount, g.cardType, g.md5AuthSecret}, ""))
	if err != nil {
		return nil, err
	}
	fields["checkmd5"] = checkmd5

	return &provider.PaymentForm{
		Action: profile.Endpoints[provider.EnvLive],
		Method: "POST",
		Fields: fields,
	}, nil
}

// ValidateCallback checks the callback hash and extracts the callback
// event. Wannafind only ever reports authorizations on this channel.
func (g *WannafindGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	orderID := fields["orderid"]
	currency := fields["currency"]
	amount := fields["amount"]

	expected, err := provider.Digest(profile.Algorithm, profile.Encoding, "",
		strings.Join([]string{orderID, currency, g.cardType, amount, g.md5CallbackSecret}, ""))
	if err != nil {
		return nil, err
	}
	if !provider.EqualDigests(expected, fields["checkmd5callback"], profile.Encoding) {
		return nil, fmt.Errorf("wannafind: %w", provider.ErrInvalidSignature)
	}

	event := &provider.CallbackEvent{
		OrderID:       orderID,
		StatusCode:    statusAuthorized,
		TransactionID: fields["transacknum"],
		Method:        fields["cardtype"],
		Fields:        fields.Clone(),
	}

	if amount != "" {
		alpha, ok := provider.AlphaCurrency(currency)
		if !ok {
			return nil, fmt.Errorf("wannafind: unknown numeric currency %q", currency)
		}
		parsed, err := provider.ParseGatewayAmount(amount, alpha, profile)
		if err != nil {
			return nil, fmt.Errorf("wannafind: %w", err)
		}
		event.Amount = parsed
	}

	return event, nil
}

// GetStatus queries the transaction state through checkTransaction.
func (g *WannafindGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fnCheckTransaction, provider.FieldSet{
		"transacknum": order.TransactionID,
		"orderid":     order.CartNumber,
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}

	state, ok := profile.Statuses.Map(resp["returncode"])
	if !ok || state == provider.NoTransition {
		return provider.Failure(fmt.Sprintf("unexpected returncode %q", resp["returncode"])), nil
	}
	return provider.Success(state, order.TransactionID, resp["returncode"]), nil
}

// Capture captures the full authorized amount. Amount 0 means the complete
// authorization.
func (g *WannafindGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fnCaptureTransaction, provider.FieldSet{
		"transacknum": order.TransactionID,
		"amount":      "0",
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	if resp["returncode"] != "0" {
		return provider.Failure(fmt.Sprintf("capture refused with code %q", resp["returncode"])), nil
	}
	return provider.Success(provider.StateCaptured, order.TransactionID, resp["returncode"]), nil
}

// Refund credits the full captured amount back to the card.
func (g *WannafindGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fnCreditTransaction, provider.FieldSet{
		"transacknum": order.TransactionID,
		"amount":      order.Amount.MinorUnits(profile.MinorUnitFactor),
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	if resp["returncode"] != "0" {
		return provider.Failure(fmt.Sprintf("refund refused with code %q", resp["returncode"])), nil
	}
	return provider.Success(provider.StateRefunded, order.TransactionID, resp["returncode"]), nil
}

// Cancel releases the authorization.
func (g *WannafindGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fnCancelTransaction, provider.FieldSet{
		"transacknum": order.TransactionID,
	})
	if err != nil {
		return provider.Failure(err.Error()), nil
	}
	if resp["returncode"] != "0" {
		return provider.Failure(fmt.Sprintf("cancel refused with code %q", resp["returncode"])), nil
	}
	return provider.Success(provider.StateCancelled, order.TransactionID, resp["returncode"]), nil
}

// apiRequest posts a function call to the transaction API. Credentials ride
// on basic auth; a 401 usually means the caller IP is not whitelisted.
func (g *WannafindGateway) apiRequest(ctx context.Context, fn string, params provider.FieldSet) (provider.FieldSet, error) {
	if params["transacknum"] == "" {
		return nil, fmt.Errorf("no transaction number on order")
	}

	resp, err := g.client.SendForm(ctx, &provider.HTTPRequest{
		FormData:    params,
		QueryParams: map[string]string{"func": fn},
	})
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w", fn, err)
	}

	fields, err := provider.ParseNVP(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s response: %w", fn, err)
	}
	return fields, nil
}
