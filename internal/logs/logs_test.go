package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("warn")
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	restore := zap.ReplaceGlobals(logger)
	defer restore()
	assert.True(t, zap.L().Named(Stack).Core().Enabled(zapcore.ErrorLevel))
	assert.False(t, zap.L().Named(Stack).Core().Enabled(zapcore.DebugLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("chatty")
	assert.Error(t, err)
}
