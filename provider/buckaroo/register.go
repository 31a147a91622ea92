package buckaroo

import "github.com/commercekit/paybridge/provider"

// Register Buckaroo gateway with the registry
func init() {
	provider.Register("buckaroo", NewGateway)
}
