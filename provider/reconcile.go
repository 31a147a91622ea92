package provider

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value tagged with its ISO-4217 currency code. The
// authoritative order amount is always decimal major units, VAT included;
// gateway-reported amounts are normalized to the same representation before
// comparison.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// NewAmount builds an amount from a decimal value and currency code.
func NewAmount(value decimal.Decimal, currency string) Amount {
	return Amount{Value: value, Currency: strings.ToUpper(currency)}
}

// ParseAmount parses a major-unit decimal string using the invariant '.'
// separator.
func ParseAmount(raw, currency string) (Amount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return NewAmount(value, currency), nil
}

// ParseGatewayAmount parses a gateway-reported amount under the profile's
// declared unit convention: when the profile sets a minor-unit factor the raw
// value is an integer count of minor units and is divided back to major
// units; otherwise it is a major-unit decimal.
func ParseGatewayAmount(raw, currency string, profile *Profile) (Amount, error) {
	amount, err := ParseAmount(raw, currency)
	if err != nil {
		return Amount{}, err
	}
	if profile.MinorUnitFactor > 1 {
		amount.Value = amount.Value.Div(decimal.NewFromInt(profile.MinorUnitFactor))
	}
	return amount, nil
}

// MinorUnits renders the amount as an integer minor-unit string using the
// profile factor, rounding half away from zero.
func (a Amount) MinorUnits(factor int64) string {
	return a.Value.Mul(decimal.NewFromInt(factor)).Round(0).String()
}

// MinorUnitsInt is MinorUnits as an int64, for SDKs with typed amounts.
func (a Amount) MinorUnitsInt(factor int64) int64 {
	return a.Value.Mul(decimal.NewFromInt(factor)).Round(0).IntPart()
}

// Format renders the amount as a fixed-point major-unit string at the given
// scale, invariant of locale.
func (a Amount) Format(scale int32) string {
	return a.Value.StringFixed(scale)
}

// ReconcileResult classifies an amount comparison.
type ReconcileResult int

const (
	Match ReconcileResult = iota
	Mismatch
)

func (r ReconcileResult) String() string {
	if r == Match {
		return "match"
	}
	return "mismatch"
}

// Reconcile compares a gateway-reported amount against the authoritative
// order amount. Both are rounded half away from zero to the given scale
// first. Any discrepancy, including a currency difference, is a Mismatch.
// Callers must still record mismatched events and escalate them for manual
// review; Mismatch never silently drops a transaction.
func Reconcile(reported, authoritative Amount, scale int32) ReconcileResult {
	if !strings.EqualFold(reported.Currency, authoritative.Currency) {
		return Mismatch
	}
	if reported.Value.Round(scale).Equal(authoritative.Value.Round(scale)) {
		return Match
	}
	return Mismatch
}
