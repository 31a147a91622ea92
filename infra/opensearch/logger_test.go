package opensearch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commercekit/paybridge/infra/config"
)

func TestGetEventIndexName(t *testing.T) {
	c := &Client{config: &config.AppConfig{}}
	assert.Equal(t, "paybridge-buckaroo-events", c.GetEventIndexName("buckaroo"))
	assert.Equal(t, "paybridge-stripe-events", c.GetEventIndexName("stripe"))
}

func TestIsEnabled(t *testing.T) {
	assert.True(t, (&Client{config: &config.AppConfig{EnableLogging: true}}).IsEnabled())
	assert.False(t, (&Client{config: &config.AppConfig{}}).IsEnabled())
}

func TestLogCallbackDisabledIsNoop(t *testing.T) {
	l := NewLogger(&Client{config: &config.AppConfig{EnableLogging: false}})

	err := l.LogCallback(context.Background(), CallbackLog{
		Gateway: "buckaroo",
		OrderID: "o-1",
	})
	assert.NoError(t, err)
}

func TestSearchCallbacksDisabled(t *testing.T) {
	l := NewLogger(&Client{config: &config.AppConfig{EnableLogging: false}})

	_, err := l.SearchCallbacks(context.Background(), "buckaroo", map[string]any{
		"match_all": map[string]any{},
	})
	assert.ErrorContains(t, err, "disabled")
}
