package twocheckout

import "github.com/commercekit/paybridge/provider"

// Register 2Checkout gateway with the registry
func init() {
	provider.Register("twocheckout", NewGateway)
}
