package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateConfigFields(t *testing.T) {
	fields := []ConfigField{
		{Key: "merchantId", Required: true, Type: "string"},
		{Key: "secretKey", Required: true, Type: "string"},
		{Key: "notifyUrl", Required: false, Type: "url"},
		{Key: "testMode", Required: false, Type: "boolean"},
	}

	tests := []struct {
		name    string
		config  map[string]string
		wantErr string
	}{
		{
			name:   "valid minimal",
			config: map[string]string{"merchantId": "m-1", "secretKey": "k"},
		},
		{
			name:    "missing required",
			config:  map[string]string{"merchantId": "m-1"},
			wantErr: `required field "secretKey" is missing`,
		},
		{
			name:    "blank required",
			config:  map[string]string{"merchantId": "m-1", "secretKey": "   "},
			wantErr: `required field "secretKey" cannot be empty`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfigFields("testgw", tt.config, fields)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateConfigFieldTypes(t *testing.T) {
	boolField := []ConfigField{{Key: "demo", Required: true, Type: "boolean"}}
	urlField := []ConfigField{{Key: "callback", Required: true, Type: "url"}}

	assert.NoError(t, ValidateConfigFields("gw", map[string]string{"demo": "true"}, boolField))
	assert.NoError(t, ValidateConfigFields("gw", map[string]string{"demo": "false"}, boolField))
	assert.ErrorContains(t, ValidateConfigFields("gw", map[string]string{"demo": "yes"}, boolField), "'true' or 'false'")

	assert.NoError(t, ValidateConfigFields("gw", map[string]string{"callback": "https://shop.example/cb"}, urlField))
	assert.ErrorContains(t, ValidateConfigFields("gw", map[string]string{"callback": "shop.example/cb"}, urlField), "absolute URL")
}

func TestEnvironmentFromConfig(t *testing.T) {
	assert.Equal(t, EnvLive, EnvironmentFromConfig(map[string]string{"environment": "live"}))
	assert.Equal(t, EnvTest, EnvironmentFromConfig(map[string]string{"environment": "test"}))
	assert.Equal(t, EnvTest, EnvironmentFromConfig(map[string]string{"environment": "production"}))
	assert.Equal(t, EnvTest, EnvironmentFromConfig(map[string]string{}))
}
