package provider

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAmount(t *testing.T, raw, currency string) Amount {
	t.Helper()
	amount, err := ParseAmount(raw, currency)
	require.NoError(t, err)
	return amount
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 100.50 ", "eur")
	require.NoError(t, err)
	assert.Equal(t, "EUR", amount.Currency)
	assert.True(t, amount.Value.Equal(decimal.RequireFromString("100.50")))

	_, err = ParseAmount("100,50", "EUR")
	assert.Error(t, err)

	_, err = ParseAmount("", "EUR")
	assert.Error(t, err)
}

func TestParseGatewayAmountMinorUnits(t *testing.T) {
	cents := &Profile{AmountScale: 2, MinorUnitFactor: 100}
	amount, err := ParseGatewayAmount("4999", "EUR", cents)
	require.NoError(t, err)
	assert.Equal(t, "49.99", amount.Format(2))

	major := &Profile{AmountScale: 2, MinorUnitFactor: 1}
	amount, err = ParseGatewayAmount("49.99", "EUR", major)
	require.NoError(t, err)
	assert.Equal(t, "49.99", amount.Format(2))
}

func TestMinorUnitsRounding(t *testing.T) {
	assert.Equal(t, "4999", mustAmount(t, "49.99", "EUR").MinorUnits(100))
	assert.Equal(t, "49.99", mustAmount(t, "49.99", "EUR").MinorUnits(1))

	// half away from zero
	assert.Equal(t, "10001", mustAmount(t, "100.005", "EUR").MinorUnits(100))
	assert.Equal(t, int64(10001), mustAmount(t, "100.005", "EUR").MinorUnitsInt(100))
}

func TestFormatInvariant(t *testing.T) {
	assert.Equal(t, "100.00", mustAmount(t, "100", "EUR").Format(2))
	assert.Equal(t, "100.5", mustAmount(t, "100.50", "EUR").Format(1))
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name          string
		reported      Amount
		authoritative Amount
		scale         int32
		want          ReconcileResult
	}{
		{
			name:          "exact match",
			reported:      mustAmount(t, "100.00", "EUR"),
			authoritative: mustAmount(t, "100.00", "EUR"),
			scale:         2,
			want:          Match,
		},
		{
			name:          "match after rounding half away from zero",
			reported:      mustAmount(t, "100.005", "EUR"),
			authoritative: mustAmount(t, "100.01", "EUR"),
			scale:         2,
			want:          Match,
		},
		{
			name:          "one cent short",
			reported:      mustAmount(t, "99.99", "EUR"),
			authoritative: mustAmount(t, "100.00", "EUR"),
			scale:         2,
			want:          Mismatch,
		},
		{
			name:          "currency difference beats equal value",
			reported:      mustAmount(t, "100.00", "USD"),
			authoritative: mustAmount(t, "100.00", "EUR"),
			scale:         2,
			want:          Mismatch,
		},
		{
			name:          "currency compare is case-insensitive",
			reported:      Amount{Value: decimal.RequireFromString("100.00"), Currency: "eur"},
			authoritative: mustAmount(t, "100.00", "EUR"),
			scale:         2,
			want:          Match,
		},
		{
			name:          "zero-decimal scale",
			reported:      mustAmount(t, "100.4", "JPY"),
			authoritative: mustAmount(t, "100", "JPY"),
			scale:         0,
			want:          Match,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reconcile(tt.reported, tt.authoritative, tt.scale))
		})
	}
}

func TestReconcileResultString(t *testing.T) {
	assert.Equal(t, "match", Match.String())
	assert.Equal(t, "mismatch", Mismatch.String())
}
