package wannafind

import "github.com/commercekit/paybridge/provider"

// Register Wannafind gateway with the registry
func init() {
	provider.Register("wannafind", NewGateway)
}
