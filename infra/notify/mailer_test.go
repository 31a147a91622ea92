package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commercekit/paybridge/infra/config"
)

func TestNewMailerFromAppConfigDisabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.AppConfig
	}{
		{name: "no smtp host", cfg: config.AppConfig{AlertTo: "ops@example.com"}},
		{name: "no recipients", cfg: config.AppConfig{SMTPHost: "smtp.example.com"}},
		{name: "nothing configured", cfg: config.AppConfig{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, NewMailerFromAppConfig(&tt.cfg))
		})
	}
}

func TestNewMailerFromAppConfigSplitsRecipients(t *testing.T) {
	cfg := config.AppConfig{
		SMTPHost:  "smtp.example.com",
		SMTPPort:  587,
		SMTPUser:  "mailer",
		SMTPPass:  "s3cret",
		AlertFrom: "paybridge@example.com",
		AlertTo:   "ops@example.com,finance@example.com",
	}

	m := NewMailerFromAppConfig(&cfg)
	require.NotNil(t, m)
	assert.Equal(t, "paybridge@example.com", m.config.FromAddress)
	assert.Equal(t, []string{"ops@example.com", "finance@example.com"}, m.config.ToAddresses)
	assert.NotNil(t, m.dialer)
}
