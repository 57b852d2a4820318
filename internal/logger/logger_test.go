package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	l, err := New("debug", "console", "controlplane")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("bogus", "json", "")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}
