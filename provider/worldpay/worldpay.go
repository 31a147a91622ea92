package worldpay

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/commercekit/paybridge/provider"
)

const (
	liveURL = "https://secure.worldpay.com/wcc/purchase"
	testURL = "https://secure-test.worldpay.com/wcc/purchase"

	// signatureFields pins the order of the MD5 input on the purchase form
	signatureFields = "amount:currency:instId:cartId"
)

// WorldPay only authenticates its callbacks with an installation-wide
// response password, so the status table keys are composite transStatus and
// authMode values built during validation.
var profile = &provider.Profile{
	Name:            "worldpay",
	Algorithm:       provider.AlgMD5,
	Encoding:        provider.EncodingHexLower,
	SignatureField:  "signature",
	AmountScale:     2,
	MinorUnitFactor: 1,
	Statuses: provider.StatusTable{
		"Y/E": provider.StateAuthorized,
		"Y/A": provider.StateCaptured,
		"C":   provider.StateCancelled,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: testURL,
		provider.EnvLive: liveURL,
	},
}

// WorldPayGateway integrates the WorldPay Select Junior hosted purchase
// flow. Capture happens on WorldPay's side; the API surface is callbacks
// only.
type WorldPayGateway struct {
	instID           string
	md5Secret        string
	responsePassword string
	authMode         string
	environment      provider.Environment
}

// NewGateway creates a new WorldPay gateway.
func NewGateway() provider.Gateway {
	return &WorldPayGateway{}
}

// Initialize sets up the WorldPay gateway with credentials
func (g *WorldPayGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.instID = conf["instId"]
	g.md5Secret = conf["md5Secret"]
	g.responsePassword = conf["responsePassword"]
	g.authMode = conf["authMode"]
	if g.authMode == "" {
		g.authMode = "A"
	}
	g.environment = provider.EnvironmentFromConfig(conf)

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *WorldPayGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "instId", Required: true, Type: "string", Description: "WorldPay installation id"},
		{Key: "md5Secret", Required: true, Type: "string", Description: "MD5 secret for the purchase form signature"},
		{Key: "responsePassword", Required: true, Type: "string", Description: "Payment response password for callback authentication"},
		{Key: "authMode", Required: false, Type: "string", Description: "A = automatic capture, E = authorize only"},
		{Key: "environment", Required: false, Type: "string", Description: "test or live"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *WorldPayGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm produces the signed purchase form. The signature covers
// exactly the fields named in signatureFields, joined with colons after the
// secret.
func (g *WorldPayGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	if !provider.ValidCurrency(order.Amount.Currency) {
		return nil, fmt.Errorf("worldpay: unknown ISO 4217 currency %q", order.Amount.Currency)
	}

	amount := order.Amount.Format(profile.AmountScale)

	fields := provider.FieldSet{
		"instId":          g.instID,
		"cartId":          order.ID,
		"currency":        order.Amount.Currency,
		"amount":          amount,
		"authMode":        g.authMode,
		"successURL":      opts.ContinueURL,
		"cancelURL":       opts.CancelURL,
		"MC_callback":     opts.CallbackURL,
		"noLanguageMenu":  "",
		"hideCurrency":    "",
		"signatureFields": signatureFields,
	}

	signature, err := provider.Digest(profile.Algorithm, profile.Encoding, "",
		strings.Join([]string{g.md5Secret, amount, order.Amount.Currency, g.instID, order.ID}, ":"))
	if err != nil {
		return nil, err
	}
	fields["signature"] = signature

	return &provider.PaymentForm{
		Action: profile.Endpoint(g.environment),
		Method: "POST",
		Fields: fields,
	}, nil
}

// ValidateCallback authenticates the payment response by its password and
// folds transStatus and authMode into a composite status code.
func (g *WorldPayGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	callbackPW := fields["callbackPW"]
	if subtle.ConstantTimeCompare([]byte(callbackPW), []byte(g.responsePassword)) != 1 {
		return nil, fmt.Errorf("worldpay: %w: response password check failed", provider.ErrInvalidSignature)
	}

	statusCode := "C"
	if fields["transStatus"] == "Y" {
		mode := fields["authMode"]
		if mode != "E" {
			mode = "A"
		}
		statusCode = "Y/" + mode
	}

	event := &provider.CallbackEvent{
		OrderID:       fields["cartId"],
		StatusCode:    statusCode,
		TransactionID: fields["transId"],
		Method:        fields["cardType"],
		Fields:        fields.Clone(),
	}

	if raw := fields["authAmount"]; raw != "" {
		currency := fields["authCurrency"]
		if currency == "" {
			currency = fields["currency"]
		}
		amount, err := provider.ParseGatewayAmount(raw, currency, profile)
		if err != nil {
			return nil, fmt.Errorf("worldpay: %w", err)
		}
		event.Amount = amount
	}

	return event, nil
}

// GetStatus is not supported; WorldPay Select Junior has no query API.
func (g *WorldPayGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("worldpay select junior has no status API"), nil
}

// Capture is not supported from the back office.
func (g *WorldPayGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("capture worldpay payments from the merchant interface"), nil
}

// Refund is not supported from the back office.
func (g *WorldPayGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("refund worldpay payments from the merchant interface"), nil
}

// Cancel is not supported from the back office.
func (g *WorldPayGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("cancel worldpay payments from the merchant interface"), nil
}
