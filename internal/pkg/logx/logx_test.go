package logx

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)

	lvl, err = ParseLevel("", false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)

	lvl, err = ParseLevel(" WARN ", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, lvl)

	lvl, err = ParseLevel("chatty", false)
	assert.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, lvl)
}

func TestInitGlobalLoggerAppliesLevel(t *testing.T) {
	prev := *Logger()
	t.Cleanup(func() { *Logger() = prev })

	InitGlobalLogger(false, "error")
	assert.Equal(t, zerolog.ErrorLevel, Logger().GetLevel())

	InitGlobalLogger(false, "")
	assert.Equal(t, zerolog.InfoLevel, Logger().GetLevel())
}
