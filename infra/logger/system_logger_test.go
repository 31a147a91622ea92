package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldLog(t *testing.T) {
	sl := NewSystemLogger(nil, SystemLoggerConfig{MinLevel: LevelWarn})

	assert.False(t, sl.shouldLog(LevelDebug))
	assert.False(t, sl.shouldLog(LevelInfo))
	assert.True(t, sl.shouldLog(LevelWarn))
	assert.True(t, sl.shouldLog(LevelError))
	assert.True(t, sl.shouldLog(LevelFatal))
}

func TestExtractComponent(t *testing.T) {
	sl := NewSystemLogger(nil, SystemLoggerConfig{})

	tests := []struct {
		file string
		want string
	}{
		{file: "/home/dev/paybridge/provider/ogone/ogone.go", want: "provider/ogone"},
		{file: "/home/dev/paybridge/handler/callback.go", want: "handler/callback.go"},
		{file: "/tmp/elsewhere/store/sqlite.go", want: "store"},
		{file: "main.go", want: "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sl.extractComponent(tt.file), tt.file)
	}
}

func TestNewSystemLoggerDisablesOpenSearchWithoutClient(t *testing.T) {
	sl := NewSystemLogger(nil, SystemLoggerConfig{EnableOpenSearch: true, EnableConsole: true})
	assert.False(t, sl.enableOpenSearch)
	assert.True(t, sl.enableConsole)
}

func TestGetGlobalLoggerFallback(t *testing.T) {
	assert.NotNil(t, GetGlobalLogger())
}

func TestWithGateway(t *testing.T) {
	assert.NotNil(t, WithGateway("buckaroo"))
	assert.NotNil(t, WithOrder("buckaroo", "order-1"))
}
