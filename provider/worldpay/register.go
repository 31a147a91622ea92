package worldpay

import "github.com/commercekit/paybridge/provider"

// Register WorldPay gateway with the registry
func init() {
	provider.Register("worldpay", NewGateway)
}
