package mollie

import "github.com/commercekit/paybridge/provider"

// Register Mollie iDEAL gateway with the registry
func init() {
	provider.Register("mollie", NewGateway)
}
