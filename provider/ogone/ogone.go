package ogone

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/commercekit/paybridge/provider"
)

const (
	formURLTemplate        = "https://secure.ogone.com/ncol/%s/orderstandard_utf8.asp"
	statusURLTemplate      = "https://secure.ogone.com/ncol/%s/querydirect.asp"
	maintenanceURLTemplate = "https://secure.ogone.com/ncol/%s/maintenancedirect.asp"

	// Maintenance operations on DirectLink
	opCaptureFull = "SAS"
	opRefundFull  = "RFS"
	opDeleteAuth  = "DES"

	defaultTimeout = 30 * time.Second
)

// Ogone reports amounts in integer cents and signs with the passphrase
// repeated after every field.
var profile = &provider.Profile{
	Name:            "ogone",
	Algorithm:       provider.AlgSHA512,
	SecretPlacement: provider.SecretPerField,
	Encoding:        provider.EncodingHexUpper,
	KeyCase:         provider.KeyCaseUpper,
	Separator:       "",
	SignatureField:  "SHASIGN",
	AmountScale:     2,
	MinorUnitFactor: 100,
	Statuses: provider.StatusTable{
		"5":  provider.StateAuthorized,
		"51": provider.StateAuthorized,
		"9":  provider.StateCaptured,
		"91": provider.StateCaptured,
		"6":  provider.StateCancelled,
		"61": provider.StateCancelled,
		"7":  provider.StateRefunded,
		"71": provider.StateRefunded,
		"8":  provider.StateRefunded,
		"81": provider.StateRefunded,
	},
	Endpoints: map[provider.Environment]string{
		provider.EnvTest: "test",
		provider.EnvLive: "prod",
	},
}

// ncresponse is the DirectLink XML answer.
type ncresponse struct {
	XMLName     xml.Name `xml:"ncresponse"`
	PayID       string   `xml:"PAYID,attr"`
	Status      string   `xml:"STATUS,attr"`
	NCError     string   `xml:"NCERROR,attr"`
	NCErrorPlus string   `xml:"NCERRORPLUS,attr"`
}

// OgoneGateway integrates the Ogone (Ingenico) e-Commerce hosted page and
// DirectLink maintenance API. Inbound and outbound exchanges use separate
// passphrases.
type OgoneGateway struct {
	pspID            string
	shaInPassphrase  string
	shaOutPassphrase string
	apiUserID        string
	apiPassword      string
	language         string
	pmList           string
	environment      provider.Environment
	client           *provider.GatewayHTTPClient
}

// NewGateway creates a new Ogone gateway.
func NewGateway() provider.Gateway {
	return &OgoneGateway{}
}

// Initialize sets up the Ogone gateway with credentials
func (g *OgoneGateway) Initialize(conf map[string]string) error {
	if err := provider.ValidateConfigFields(profile.Name, conf, g.RequiredConfig()); err != nil {
		return err
	}

	g.pspID = conf["pspId"]
	g.shaInPassphrase = conf["shaInPassphrase"]
	g.shaOutPassphrase = conf["shaOutPassphrase"]
	g.apiUserID = conf["apiUserId"]
	g.apiPassword = conf["apiPassword"]
	g.language = conf["language"]
	if g.language == "" {
		g.language = "en_US"
	}
	g.pmList = conf["pmList"]
	g.environment = provider.EnvironmentFromConfig(conf)

	g.client = provider.NewGatewayHTTPClient(&provider.HTTPClientConfig{
		Timeout: defaultTimeout,
	})

	return nil
}

// RequiredConfig returns the configuration fields this gateway needs
func (g *OgoneGateway) RequiredConfig() []provider.ConfigField {
	return []provider.ConfigField{
		{Key: "pspId", Required: true, Type: "string", Description: "PSPID of the Ogone account"},
		{Key: "shaInPassphrase", Required: true, Type: "string", Description: "SHA-IN passphrase for outbound signing"},
		{Key: "shaOutPassphrase", Required: true, Type: "string", Description: "SHA-OUT passphrase for callback verification"},
		{Key: "apiUserId", Required: false, Type: "string", Description: "DirectLink API user"},
		{Key: "apiPassword", Required: false, Type: "string", Description: "DirectLink API password"},
		{Key: "language", Required: false, Type: "string", Description: "Payment page language, eg. en_US"},
		{Key: "pmList", Required: false, Type: "string", Description: "Payment method list, eg. VISA,MasterCard"},
		{Key: "environment", Required: false, Type: "string", Description: "test or live"},
	}
}

// Profile returns the gateway's signing and endpoint profile
func (g *OgoneGateway) Profile() *provider.Profile {
	return profile
}

// BuildPaymentForm produces the signed redirect form for the hosted page.
// Amounts go out in integer cents.
func (g *OgoneGateway) BuildPaymentForm(ctx context.Context, order *provider.Order, opts provider.FormOptions) (*provider.PaymentForm, error) {
	if !provider.ValidCurrency(order.Amount.Currency) {
		return nil, fmt.Errorf("ogone: unknown ISO 4217 currency %q", order.Amount.Currency)
	}

	fields := provider.FieldSet{
		"PSPID":        g.pspID,
		"ORDERID":      order.ID,
		"AMOUNT":       order.Amount.MinorUnits(profile.MinorUnitFactor),
		"CURRENCY":     order.Amount.Currency,
		"LANGUAGE":     g.language,
		"ACCEPTURL":    opts.ContinueURL,
		"DECLINEURL":   opts.CancelURL,
		"EXCEPTIONURL": opts.CancelURL,
		"CANCELURL":    opts.CancelURL,
	}
	if g.pmList != "" {
		fields["PMLIST"] = g.pmList
	}

	signature, err := provider.Sign(fields, profile, g.shaInPassphrase)
	if err != nil {
		return nil, err
	}
	fields["SHASIGN"] = signature

	return &provider.PaymentForm{
		Action: fmt.Sprintf(formURLTemplate, profile.Endpoint(g.environment)),
		Method: "POST",
		Fields: fields,
	}, nil
}

// ValidateCallback verifies the SHA-OUT signature over the redirect or push
// parameters and extracts the callback event.
func (g *OgoneGateway) ValidateCallback(ctx context.Context, fields provider.FieldSet) (*provider.CallbackEvent, error) {
	claimed := fields["SHASIGN"]
	if claimed == "" {
		return nil, fmt.Errorf("ogone: %w: SHASIGN missing", provider.ErrInvalidSignature)
	}

	ok, err := provider.Verify(fields, claimed, profile, g.shaOutPassphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("ogone: %w", provider.ErrInvalidSignature)
	}

	event := &provider.CallbackEvent{
		OrderID:       fields["ORDERID"],
		StatusCode:    fields["STATUS"],
		TransactionID: fields["PAYID"],
		Method:        fields["BRAND"],
		Fields:        fields.Clone(),
	}

	if raw := fields["AMOUNT"]; raw != "" {
		amount, err := provider.ParseGatewayAmount(raw, fields["CURRENCY"], profile)
		if err != nil {
			return nil, fmt.Errorf("ogone: %w", err)
		}
		event.Amount = amount
	}

	return event, nil
}

// GetStatus queries DirectLink for the payment's current status.
func (g *OgoneGateway) GetStatus(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fmt.Sprintf(statusURLTemplate, profile.Endpoint(g.environment)), "", order)
	if err != nil {
		return nil, err
	}
	return g.resultFromResponse(resp)
}

// Capture settles the full authorized amount (operation SAS).
func (g *OgoneGateway) Capture(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fmt.Sprintf(maintenanceURLTemplate, profile.Endpoint(g.environment)), opCaptureFull, order)
	if err != nil {
		return nil, err
	}
	if resp.Status != "9" && resp.Status != "91" {
		return provider.Failure(fmt.Sprintf("capture refused: %s %s", resp.NCError, resp.NCErrorPlus)), nil
	}
	return provider.Success(provider.StateCaptured, resp.PayID, resp.Status), nil
}

// Refund returns the full amount (operation RFS). A payment still in
// status 91 is being settled and cannot be refunded yet.
func (g *OgoneGateway) Refund(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	statusResp, err := g.apiRequest(ctx, fmt.Sprintf(statusURLTemplate, profile.Endpoint(g.environment)), "", order)
	if err != nil {
		return nil, err
	}
	if statusResp.Status == "91" {
		return provider.Failure("payment capture is still processing, retry in a few minutes"), nil
	}

	resp, err := g.apiRequest(ctx, fmt.Sprintf(maintenanceURLTemplate, profile.Endpoint(g.environment)), opRefundFull, order)
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case "7", "71", "8", "81":
		return provider.Success(provider.StateRefunded, resp.PayID, resp.Status), nil
	}
	return provider.Failure(fmt.Sprintf("refund refused: %s %s", resp.NCError, resp.NCErrorPlus)), nil
}

// Cancel deletes the authorization (operation DES).
func (g *OgoneGateway) Cancel(ctx context.Context, order *provider.Order) (*provider.APIResult, error) {
	resp, err := g.apiRequest(ctx, fmt.Sprintf(maintenanceURLTemplate, profile.Endpoint(g.environment)), opDeleteAuth, order)
	if err != nil {
		return nil, err
	}
	if resp.Status != "6" && resp.Status != "61" {
		return provider.Failure(fmt.Sprintf("cancel refused: %s %s", resp.NCError, resp.NCErrorPlus)), nil
	}
	return provider.Success(provider.StateCancelled, resp.PayID, resp.Status), nil
}

// resultFromResponse maps a status query answer through the status table.
func (g *OgoneGateway) resultFromResponse(resp *ncresponse) (*provider.APIResult, error) {
	state, known := profile.Statuses.Map(resp.Status)
	if !known || state == provider.NoTransition {
		return provider.Failure(fmt.Sprintf("status %s: %s %s", resp.Status, resp.NCError, resp.NCErrorPlus)), nil
	}
	return provider.Success(state, resp.PayID, resp.Status), nil
}

// apiRequest posts a signed DirectLink request and parses the ncresponse.
// operation is empty for status queries.
func (g *OgoneGateway) apiRequest(ctx context.Context, endpoint, operation string, order *provider.Order) (*ncresponse, error) {
	if order.TransactionID == "" {
		return nil, fmt.Errorf("ogone: order %s has no transaction id", order.ID)
	}
	if g.apiUserID == "" || g.apiPassword == "" {
		return nil, fmt.Errorf("ogone: DirectLink credentials are not configured")
	}

	fields := provider.FieldSet{
		"PSPID":  g.pspID,
		"USERID": g.apiUserID,
		"PSWD":   g.apiPassword,
		"PAYID":  order.TransactionID,
	}
	if operation != "" {
		fields["AMOUNT"] = order.Amount.MinorUnits(profile.MinorUnitFactor)
		fields["OPERATION"] = operation
	}

	signature, err := provider.Sign(fields, profile, g.shaInPassphrase)
	if err != nil {
		return nil, err
	}
	fields["SHASIGN"] = signature

	resp, err := g.client.SendForm(ctx, &provider.HTTPRequest{
		Endpoint: endpoint,
		FormData: fields,
	})
	if err != nil {
		return nil, fmt.Errorf("ogone: DirectLink request: %w", err)
	}

	var parsed ncresponse
	if err := xml.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("ogone: parse ncresponse: %w", err)
	}

	return &parsed, nil
}
