package twocheckout

import (
	"context"
	"fmt"
	"strings"

	"github.com/commercekit/paybridge/provider"
)

const purchaseURL = "https://www.2checkout.com/checkout/spurchase"

// 2Checkout validates its return with an uppercase MD5 over a fixed
// concatenation, not a sorted field set. In demo mode the hash replaces the
// order number with the literal "1".
var profile = &provider.Profile{
	Name:            "twocheckout",
	Algorithm:       provider.AlgMD5,
	Encoding:        provider.EncodingHexUpper,
	SignatureField:  "key",
	AmountScale:     2,
	MinorUnitFactor: 1,
	Statuses: provider.StatusTable{
		// credit_card_processed: Y = approved, K = pending review
		"Y": provider.StateAuthorized,
		"K": provider.NoTransition,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: purchaseURL,
		provider.EnvLive: purchaseURL,
	},
}

// TwoCheckOutGateway integrates the 2Checkout hosted purchase flow. All
// money movement after authorization happens in the 2Checkout admin, so the
// API surface is callbacks only.
type TwoCheckOutGateway struct {
	sid        string
	secretWord string
	demo       bool
}

// NewGateway creates a new 2Checkout gateway.
func NewGateway() provider.Gateway {
	return &TwoCheckOutGateway{}
}

// Initialize sets up the 2Checkout gateway with credentials
func (g *TwoCheckOutGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.sid = conf["sid"]
	g.secretWord = conf["secretWord"]
	g.demo = conf["demo"] == "true"

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *TwoCheckOutGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "sid", Required: true, Type: "string", Description: "2Checkout account number"},
		{Key: "secretWord", Required: true, Type: "string", Description: "Secret word for the return hash"},
		{Key: "demo", Required: false, Type: "boolean", Description: "Demo mode"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *TwoCheckOutGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm produces the purchase form. 2Checkout does not sign the
// outbound form; only the return is hashed.
func (g *TwoCheckOutGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	fields := provider.FieldSet{
		"sid":                g.sid,
		"cart_order_id":      order.ID,
		"total":              order.Amount.Format(profile.AmountScale),
		"x_receipt_link_url": opts.ContinueURL,
		"fixed":              "Y",
		"skip_landing":       "1",
		"id_type":            "1",
	}
	if g.demo {
		fields["demo"] = "Y"
	}

	return &provider.PaymentForm{
		Action: purchaseURL,
		Method: "POST",
		Fields: fields,
	}, nil
}

// ValidateCallback checks the return hash and extracts the callback event.
func (g *TwoCheckOutGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	claimed := fields["key"]
	if claimed == "" {
		return nil, fmt.Errorf("twocheckout: %w: key missing", provider.ErrInvalidSignature)
	}

	orderNumber := fields["order_number"]
	hashedOrderNumber := orderNumber
	if g.demo {
		hashedOrderNumber = "1"
	}

	expected, err := provider.Digest(profile.Algorithm, profile.Encoding, "",
		strings.Join([]string{g.secretWord, fields["sid"], hashedOrderNumber, fields["total"]}, ""))
	if err != nil {
		return nil, err
	}
	if !provider.EqualDigests(expected, claimed, profile.Encoding) {
		return nil, fmt.Errorf("twocheckout: %w", provider.ErrInvalidSignature)
	}

	statusCode := fields["credit_card_processed"]
	if statusCode == "" {
		statusCode = "Y"
	}

	event := &provider.CallbackEvent{
		OrderID:       fields["cart_order_id"],
		StatusCode:    statusCode,
		TransactionID: orderNumber,
		Fields:        fields.Clone(),
	}

	if raw := fields["total"]; raw != "" {
		amount, err := provider.ParseGatewayAmount(raw, fields["currency_code"], profile)
		if err != nil {
			return nil, fmt.Errorf("twocheckout: %w", err)
		}
		event.Amount = amount
	}

	return event, nil
}

// GetStatus is not supported; 2Checkout has no query API in this flow.
func (g *TwoCheckOutGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("check 2checkout payments in the seller admin"), nil
}

// Capture is not supported from the back office.
func (g *TwoCheckOutGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("capture 2checkout payments in the seller admin"), nil
}

// Refund is not supported from the back office.
func (g *TwoCheckOutGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("refund 2checkout payments in the seller admin"), nil
}

// Cancel is not supported from the back office.
func (g *TwoCheckOutGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("cancel 2checkout payments in the seller admin"), nil
}
