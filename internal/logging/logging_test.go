package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestConfigure(t *testing.T) {
	logger, err := Configure(zapcore.WarnLevel)
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.Same(t, logger, zap.L())
	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	require.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	require.Error(t, err)
}
