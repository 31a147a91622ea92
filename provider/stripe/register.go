package stripe

import "github.com/commercekit/paybridge/provider"

// Register Stripe gateway with the registry
func init() {
	provider.Register("stripe", NewGateway)
}
