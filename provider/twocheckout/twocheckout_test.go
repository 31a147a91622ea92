package twocheckout

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/paybridge/provider"
)

func testConfig() map[string]string {
	return map[string]string{
		"sid":        "1303908",
		"secretWord": "tango",
	}
}

func testGateway(t *testing.T) *TwoCheckOutGateway {
	t.Helper()
	g := NewGateway().(*TwoCheckOutGateway)
	require.NoError(t, g.Initialize(testConfig()))
	return g
}

func testOrder() *provider.Order {
	amount, _ := provider.ParseAmount("49.99", "USD")
	return &provider.Order{
		ID:         "order-1",
		CartNumber: "CART-1001",
		Amount:     amount,
		State:      provider.StateInitialized,
	}
}

func returnHash(secretWord, sid, orderNumber, total string) string {
	sum := md5.Sum([]byte(secretWord + sid + orderNumber + total))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]string
		wantErr bool
	}{
		{
			name:   "valid config",
			config: testConfig(),
		},
		{
			name:   "demo mode",
			config: map[string]string{"sid": "1", "secretWord": "s", "demo": "true"},
		},
		{
			name:    "missing secret word",
			config:  map[string]string{"sid": "1"},
			wantErr: true,
		},
		{
			name:    "bad demo flag",
			config:  map[string]string{"sid": "1", "secretWord": "s", "demo": "yes"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway().(*TwoCheckOutGateway)
			err := g.Initialize(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config["demo"] == "true", g.demo)
		})
	}
}

func TestBuildPaymentForm(t *testing.T) {
	g := testGateway(t)

	form, err := g.BuildPaymentForm(context.Background(), testOrder(), provider.FormOptions{
		ContinueURL: "https://shop.example/continue",
	})
	require.NoError(t, err)

	assert.Equal(t, purchaseURL, form.Action)
	assert.Equal(t, "POST", form.Method)
	assert.Equal(t, "1303908", form.Fields["sid"])
	assert.Equal(t, "order-1", form.Fields["cart_order_id"])
	assert.Equal(t, "49.99", form.Fields["total"])
	assert.Equal(t, "https://shop.example/continue", form.Fields["x_receipt_link_url"])
	assert.NotContains(t, form.Fields, "demo")
}

func TestBuildPaymentFormDemoMode(t *testing.T) {
	g := NewGateway().(*TwoCheckOutGateway)
	config := testConfig()
	config["demo"] = "true"
	require.NoError(t, g.Initialize(config))

	form, err := g.BuildPaymentForm(context.Background(), testOrder(), provider.FormOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Y", form.Fields["demo"])
}

func TestValidateCallback(t *testing.T) {
	g := testGateway(t)

	fields := provider.FieldSet{
		"sid":                   "1303908",
		"cart_order_id":         "order-1",
		"order_number":          "4774388415",
		"total":                 "49.99",
		"currency_code":         "USD",
		"credit_card_processed": "Y",
		"key":                   returnHash("tango", "1303908", "4774388415", "49.99"),
	}

	event, err := g.ValidateCallback(context.Background(), fields)
	require.NoError(t, err)

	assert.Equal(t, "order-1", event.OrderID)
	assert.Equal(t, "Y", event.StatusCode)
	assert.Equal(t, "4774388415", event.TransactionID)
	assert.Equal(t, "49.99", event.Amount.Format(2))
	assert.Equal(t, "USD", event.Amount.Currency)
}

func TestValidateCallbackDemoHashesOrderNumberAsOne(t *testing.T) {
	g := NewGateway().(*TwoCheckOutGateway)
	config := testConfig()
	config["demo"] = "true"
	require.NoError(t, g.Initialize(config))

	fields := provider.FieldSet{
		"sid":           "1303908",
		"cart_order_id": "order-1",
		"order_number":  "4774388415",
		"total":         "49.99",
		"key":           returnHash("tango", "1303908", "1", "49.99"),
	}

	event, err := g.ValidateCallback(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, "4774388415", event.TransactionID)
}

func TestValidateCallbackDefaultsStatusCode(t *testing.T) {
	g := testGateway(t)

	fields := provider.FieldSet{
		"sid":           "1303908",
		"cart_order_id": "order-1",
		"order_number":  "4774388415",
		"total":         "49.99",
		"key":           returnHash("tango", "1303908", "4774388415", "49.99"),
	}

	event, err := g.ValidateCallback(context.Background(), fields)
	require.NoError(t, err)
	assert.Equal(t, "Y", event.StatusCode)
}

func TestValidateCallbackRejectsTamperedTotal(t *testing.T) {
	g := testGateway(t)

	fields := provider.FieldSet{
		"sid":           "1303908",
		"cart_order_id": "order-1",
		"order_number":  "4774388415",
		"total":         "0.01",
		"key":           returnHash("tango", "1303908", "4774388415", "49.99"),
	}

	_, err := g.ValidateCallback(context.Background(), fields)
	assert.ErrorIs(t, err, provider.ErrInvalidSignature)
}

func TestValidateCallbackRejectsMissingKey(t *testing.T) {
	g := testGateway(t)

	_, err := g.ValidateCallback(context.Background(), provider.FieldSet{"cart_order_id": "order-1"})
	assert.ErrorIs(t, err, provider.ErrInvalidSignature)
}

func TestOperationsNotSupported(t *testing.T) {
	g := testGateway(t)
	order := testOrder()

	for _, op := range []func(context.Context, *provider.Order) (*provider.APIResult, error){
		g.GetStatus, g.Capture, g.Refund, g.Cancel,
	} {
		result, err := op(context.Background(), order)
		require.NoError(t, err)
		assert.Equal(t, provider.OutcomeNotSupported, result.Outcome)
	}
}
