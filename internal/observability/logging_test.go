package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/spec-kit/helpdesk-escalation/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LoggerConfig
		debugOn  bool
		warnOnly bool
	}{
		{name: "debug", cfg: config.LoggerConfig{Level: "DEBUG"}, debugOn: true},
		{name: "unknown level falls back to info", cfg: config.LoggerConfig{Level: "chatty"}},
		{name: "warn console", cfg: config.LoggerConfig{Level: "warn", Format: "console", Service: "helpdesk"}, warnOnly: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewLogger(tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.debugOn, logger.Core().Enabled(zapcore.DebugLevel))
			assert.Equal(t, !tc.warnOnly, logger.Core().Enabled(zapcore.InfoLevel))
			assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
		})
	}
}
