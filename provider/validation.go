package provider

import (
	"fmt"
	"strings"
)

// ValidateConfigFields validates a gateway configuration against the field
// definitions the gateway declares.
func ValidateConfigFields(gatewayName string, config map[string]string, requiredFields []ConfigField) error {
	for _, field := range requiredFields {
		if !field.Required {
			continue
		}

		value, exists := config[field.Key]
		if !exists {
			return fmt.Errorf("%s: required field %q is missing", gatewayName, field.Key)
		}

		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: required field %q cannot be empty", gatewayName, field.Key)
		}

		if err := validateFieldType(gatewayName, field, value); err != nil {
			return err
		}
	}

	return nil
}

// validateFieldType validates a field value based on its declared type.
func validateFieldType(gatewayName string, field ConfigField, value string) error {
	switch field.Type {
	case "boolean":
		if value != "true" && value != "false" {
			return fmt.Errorf("%s: field %q must be 'true' or 'false'", gatewayName, field.Key)
		}
	case "url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("%s: field %q must be an absolute URL", gatewayName, field.Key)
		}
	}
	return nil
}

// EnvironmentFromConfig resolves the environment setting of a gateway
// configuration. Only "live" selects production endpoints; anything else,
// including absence, stays on test.
func EnvironmentFromConfig(config map[string]string) Environment {
	if config["environment"] == string(EnvLive) {
		return EnvLive
	}
	return EnvTest
}
