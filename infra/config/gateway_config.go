package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// envPrefix is the prefix for gateway credentials in the environment,
// e.g. PAYBRIDGE_BUCKAROO_SECRETKEY becomes buckaroo -> secretKey.
const envPrefix = "PAYBRIDGE_"

// GatewayConfig manages payment gateway configurations
type GatewayConfig struct {
	configs map[string]map[string]string
	mu      sync.RWMutex
}

// NewGatewayConfig creates a new gateway configuration store
func NewGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		configs: make(map[string]map[string]string),
	}
}

// LoadFromEnv loads gateway configurations from environment variables.
// Keys are lowercased with the first letter of each underscore segment
// after the first capitalized: PAYBRIDGE_OGONE_SHA_IN_PASSPHRASE maps
// to gateway "ogone", key "shaInPassphrase".
func (c *GatewayConfig) LoadFromEnv() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, envPrefix) {
			continue
		}

		rest := strings.TrimPrefix(name, envPrefix)
		gateway, key, ok := strings.Cut(rest, "_")
		if !ok || gateway == "" || key == "" {
			continue
		}

		gatewayName := strings.ToLower(gateway)
		if c.configs[gatewayName] == nil {
			c.configs[gatewayName] = make(map[string]string)
		}
		c.configs[gatewayName][camelKey(key)] = value
	}
}

// camelKey converts SHA_IN_PASSPHRASE to shaInPassphrase
func camelKey(key string) string {
	parts := strings.Split(strings.ToLower(key), "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

// SetConfig sets configuration for a specific gateway
func (c *GatewayConfig) SetConfig(gatewayName string, config map[string]string) error {
	if gatewayName == "" {
		return fmt.Errorf("gateway name cannot be empty")
	}
	if len(config) == 0 {
		return fmt.Errorf("config cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.configs[strings.ToLower(gatewayName)] = config
	return nil
}

// GetConfig returns configuration for a specific gateway
func (c *GatewayConfig) GetConfig(gatewayName string) (map[string]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	config, exists := c.configs[strings.ToLower(gatewayName)]
	if !exists {
		return nil, fmt.Errorf("no configuration found for gateway: %s", gatewayName)
	}

	// Return a copy to prevent external modification
	configCopy := make(map[string]string, len(config))
	for k, v := range config {
		configCopy[k] = v
	}
	return configCopy, nil
}

// GetAvailableGateways returns all gateways that have configurations
func (c *GatewayConfig) GetAvailableGateways() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gateways := make([]string, 0, len(c.configs))
	for gateway := range c.configs {
		gateways = append(gateways, gateway)
	}
	return gateways
}
