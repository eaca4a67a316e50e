package log

import (
	"testing"

	"github.com/marosg42/virtual-cluster/flags"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	viper.Set(flags.LogFormat, "text")
	viper.Set(flags.LogLevel, "ERROR")

	require.NoError(t, Init())
	require.NotNil(t, Base)

	// The proxies must be usable right after Init.
	Debug("debug message", "key", "value")
	Info("info message", "key", "value")
}

func TestInit_JSONFormat(t *testing.T) {
	viper.Set(flags.LogFormat, "json")
	viper.Set(flags.LogLevel, "ERROR")

	require.NoError(t, Init())
	require.NotNil(t, Base)
}

func TestInit_UnknownFormat(t *testing.T) {
	viper.Set(flags.LogFormat, "xml")
	viper.Set(flags.LogLevel, "INFO")

	err := Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestInit_InvalidLevel(t *testing.T) {
	viper.Set(flags.LogFormat, "text")
	viper.Set(flags.LogLevel, "LOUD")

	err := Init()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse log level")
}
