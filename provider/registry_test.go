package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndCreate(t *testing.T) {
	registry := NewGatewayRegistry()
	registry.Register("stub", func() Gateway { return newStubGateway() })

	gateway, err := registry.CreateGateway("stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", gateway.Profile().Name)

	// Each create returns a fresh instance.
	other, err := registry.CreateGateway("stub")
	require.NoError(t, err)
	assert.NotSame(t, gateway, other)
}

func TestRegistryUnknownGateway(t *testing.T) {
	registry := NewGatewayRegistry()

	_, err := registry.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownGateway)

	_, err = registry.CreateGateway("missing")
	assert.ErrorIs(t, err, ErrUnknownGateway)
}

func TestRegistryGatewayNames(t *testing.T) {
	registry := NewGatewayRegistry()
	registry.Register("alpha", func() Gateway { return newStubGateway() })
	registry.Register("beta", func() Gateway { return newStubGateway() })

	assert.ElementsMatch(t, []string{"alpha", "beta"}, registry.GatewayNames())
}

func TestDefaultRegistryHasBuiltinGateways(t *testing.T) {
	// Gateways self-register via blank imports in the router; the default
	// registry only carries what this test package imports, so just exercise
	// the global helpers.
	Register("registrytest", func() Gateway { return newStubGateway() })

	factory, err := Get("registrytest")
	require.NoError(t, err)
	assert.NotNil(t, factory())

	gateway, err := CreateGateway("registrytest")
	require.NoError(t, err)
	assert.Equal(t, "stub", gateway.Profile().Name)
}
