package provider

import "strings"

// iso4217 maps alphabetic currency codes to their numeric ISO-4217 codes.
// Covers the currencies the supported gateways accept; extend as needed.
var iso4217 = map[string]string{
	"AUD": "036",
	"CAD": "124",
	"CHF": "756",
	"CZK": "203",
	"DKK": "208",
	"EUR": "978",
	"GBP": "826",
	"HUF": "348",
	"ISK": "352",
	"JPY": "392",
	"NOK": "578",
	"NZD": "554",
	"PLN": "985",
	"SEK": "752",
	"TRY": "949",
	"USD": "840",
}

// ValidCurrency reports whether code is a recognized ISO-4217 alphabetic
// currency code.
func ValidCurrency(code string) bool {
	_, ok := iso4217[strings.ToUpper(code)]
	return ok
}

// NumericCurrency returns the numeric ISO-4217 code for an alphabetic code.
// Some gateways identify currencies numerically on the wire.
func NumericCurrency(code string) (string, bool) {
	numeric, ok := iso4217[strings.ToUpper(code)]
	return numeric, ok
}

// AlphaCurrency returns the alphabetic ISO-4217 code for a numeric code.
func AlphaCurrency(numeric string) (string, bool) {
	for alpha, num := range iso4217 {
		if num == numeric {
			return alpha, true
		}
	}
	return "", false
}
