package ogone

import "github.com/commercekit/paybridge/provider"

// Register Ogone gateway with the registry
func init() {
	provider.Register("ogone", NewGateway)
}
