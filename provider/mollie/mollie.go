package mollie

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/commercekit/paybridge/provider"
)

const (
	idealURL = "https://secure.mollie.nl/xml/ideal"

	// XML API actions
	actionFetch = "fetch"
	actionCheck = "check"

	statusPayed     = "payed"
	statusOpen      = "open"
	statusCancelled = "cancelled"
	statusExpired   = "expired"
	statusFailure   = "failure"

	defaultTimeout = 30 * time.Second
)

// Mollie does not sign its XML responses; the report URL instead carries an
// HMAC over partner id, profile key and order id so the callback can be tied
// back to the order. Amounts travel in cents.
var profile = &provider.Profile{
	Name:            "mollie",
	Algorithm:       provider.AlgHMACSHA256,
	SecretPlacement: provider.SecretHMACKey,
	Encoding:        provider.EncodingBase64,
	SignatureField:  "hash",
	AmountScale:     2,
	MinorUnitFactor: 100,
	Statuses: provider.StatusTable{
		statusPayed:     provider.StateCaptured,
		statusOpen:      provider.NoTransition,
		statusCancelled: provider.StateCancelled,
		statusExpired:   provider.StateCancelled,
		statusFailure:   provider.StateCancelled,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: idealURL,
		provider.EnvLive: idealURL,
	},
}

// fetch and check share the same response document
type idealResponse struct {
	XMLName xml.Name   `xml:"response"`
	Order   idealOrder `xml:"order"`
	Item    *idealItem `xml:"item"`
}

type idealOrder struct {
	TransactionID string `xml:"transaction_id"`
	Amount        string `xml:"amount"`
	Currency      string `xml:"currency"`
	URL           string `xml:"URL"`
	Payed         bool   `xml:"payed"`
	Status        string `xml:"status"`
}

type idealItem struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message"`
}

// MollieGateway integrates the Mollie iDEAL XML API. The shopper is
// redirected to their bank, so there is no signed form; the transaction is
// created server side and the resulting URL returned as a GET redirect.
type MollieGateway struct {
	partnerID   string
	profileKey  string
	secretKey   string
	bankID      string
	description string
	testMode    bool
	client      *provider.GatewayHTTPClient
}

// NewGateway creates a new Mollie iDEAL gateway.
func NewGateway() provider.Gateway {
	return &MollieGateway{}
}

// Initialize sets up the Mollie gateway with credentials
func (g *MollieGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.partnerID = conf["partnerID"]
	g.profileKey = conf["profileKey"]
	g.secretKey = conf["secretKey"]
	g.bankID = conf["bankID"]
	g.description = conf["description"]
	if g.description == "" {
		g.description = "Order:"
	}
	g.testMode = provider.EnvironmentFromConfig(conf) != provider.EnvLive

	g.client = provider.NewGatewayHTTPClient(&provider.HTTPClientConfig{
		BaseURL: idealURL,
		Timeout: defaultTimeout,
	})

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *MollieGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "partnerID", Required: true, Type: "string", Description: "Mollie partner ID"},
		{Key: "profileKey", Required: true, Type: "string", Description: "Mollie profile key"},
		{Key: "secretKey", Required: true, Type: "string", Description: "Secret key for the report URL hash"},
		{Key: "bankID", Required: false, Type: "string", Description: "Preselected iDEAL bank ID"},
		{Key: "description", Required: false, Type: "string", Description: "Order description prefix"},
		{Key: "environment", Required: false, Type: "string", Description: "test or live"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *MollieGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm creates the transaction through the fetch action and
// returns the bank URL as a GET redirect. Mollie does not accept POSTs.
func (g *MollieGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	hash, err := g.orderHash(order.ID)
	if err != nil {
		return nil, err
	}

	params := provider.FieldSet{
		"a":           actionFetch,
		"partnerid":   g.partnerID,
		"profile_key": g.profileKey,
		"amount":      order.Amount.MinorUnits(profile.MinorUnitFactor),
		"description": strings.TrimSpace(g.description + " " + order.CartNumber),
		"reporturl":   appendQuery(opts.CallbackURL, fmt.Sprintf("orderId=%s&hash=%s", order.ID, hash)),
		"returnurl":   appendQuery(opts.ContinueURL, "orderId="+order.ID),
	}
	if g.bankID != "" {
		params["bank_id"] = g.bankID
	}
	if g.testMode {
		params["testmode"] = "true"
	}

	resp, err := g.idealRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("mollie: create transaction: %w", err)
	}
	if resp.Order.URL == "" {
		return nil, fmt.Errorf("mollie: fetch returned no payment URL")
	}

	order.TransactionID = resp.Order.TransactionID

	return &provider.PaymentForm{
		Action: resp.Order.URL,
		Method: "GET",
		Fields: provider.FieldSet{},
	}, nil
}

// ValidateCallback verifies the report URL hash, then asks the check action
// for the authoritative payment status. Plus signs in the hash are restored
// because they decode to spaces in the query string.
func (g *MollieGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	orderID := fields["orderId"]
	claimed := strings.ReplaceAll(fields["hash"], " ", "+")

	expected, err := g.orderHash(orderID)
	if err != nil {
		return nil, err
	}
	if !provider.EqualDigests(expected, claimed, profile.Encoding) {
		return nil, fmt.Errorf("mollie: %w", provider.ErrInvalidSignature)
	}

	transactionID := fields["transaction_id"]
	params := provider.FieldSet{
		"a":              actionCheck,
		"partnerid":      g.partnerID,
		"transaction_id": transactionID,
	}
	if g.testMode {
		params["testmode"] = "true"
	}

	resp, err := g.idealRequest(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("mollie: check transaction: %w", err)
	}

	event := &provider.CallbackEvent{
		OrderID:       orderID,
		StatusCode:    statusCode(resp.Order),
		TransactionID: transactionID,
		Fields:        fields.Clone(),
	}

	if resp.Order.Amount != "" {
		amount, err := provider.ParseGatewayAmount(resp.Order.Amount, resp.Order.Currency, profile)
		if err != nil {
			return nil, fmt.Errorf("mollie: %w", err)
		}
		event.Amount = amount
	}

	return event, nil
}

// GetStatus re-runs the check action for the stored transaction.
func (g *MollieGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	if order.TransactionID == "" {
		return provider.Failure("no transaction number on order"), nil
	}

	params := provider.FieldSet{
		"a":              actionCheck,
		"partnerid":      g.partnerID,
		"transaction_id": order.TransactionID,
	}
	if g.testMode {
		params["testmode"] = "true"
	}

	resp, err := g.idealRequest(ctx, params)
	if err != nil {
		return provider.Failure(err.Error()), nil
	}

	state, ok := profile.Statuses.Map(statusCode(resp.Order))
	if !ok || state == provider.NoTransition {
		return provider.Failure(fmt.Sprintf("payment still open for transaction %s", order.TransactionID)), nil
	}
	return provider.Success(state, order.TransactionID, statusCode(resp.Order)), nil
}

// Capture is not supported; iDEAL settles immediately.
func (g *MollieGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("ideal payments settle immediately"), nil
}

// Refund is not supported on the XML API.
func (g *MollieGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("refund ideal payments in the mollie dashboard"), nil
}

// Cancel is not supported; unfinished transactions expire on their own.
func (g *MollieGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	return provider.NotSupported("unfinished ideal transactions expire automatically"), nil
}

func (g *MollieGateway) orderHash(orderID string) (string, error) {
	return provider.Digest(profile.Algorithm, profile.Encoding, g.secretKey,
		g.partnerID+g.profileKey+orderID)
}

func (g *MollieGateway) idealRequest(ctx context.Context, params provider.FieldSet) (*idealResponse, error) {
	query := make(map[string]string, len(params))
	for key, value := range params {
		query[key] = value
	}

	resp, err := g.client.SendForm(ctx, &provider.HTTPRequest{
		Method:      "GET",
		QueryParams: query,
	})
	if err != nil {
		return nil, err
	}

	var parsed idealResponse
	if err := xml.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("decode ideal response: %w", err)
	}
	if parsed.Item != nil && parsed.Item.Type == "error" {
		return nil, fmt.Errorf("ideal API error: %s", parsed.Item.Message)
	}
	return &parsed, nil
}

// statusCode normalizes the check response to a status table key. Older API
// versions only set the payed flag.
func statusCode(order idealOrder) string {
	if order.Payed {
		return statusPayed
	}
	if order.Status != "" {
		return strings.ToLower(order.Status)
	}
	return statusOpen
}

func appendQuery(rawURL, query string) string {
	if strings.Contains(rawURL, "?") {
		return rawURL + "&" + query
	}
	return rawURL + "?" + query
}
