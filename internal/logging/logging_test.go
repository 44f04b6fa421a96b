package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewInvalidLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Level = "verbose"
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestNewInvalidFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	_, err := New(cfg)
	require.Error(t, err)
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "short", Trim("short", 50))
	assert.Equal(t, "abc...", Trim("abcdefgh", 3))
	assert.Equal(t, "a b...", Trim("a\nbcdefg", 3))
}

func TestTestLoggerObservation(t *testing.T) {
	tl := NewTestLogger()
	tl.Warn("something odd happened")
	tl.AssertLogged(t, zapcore.WarnLevel, "odd")
	assert.Len(t, tl.All(), 1)
}
