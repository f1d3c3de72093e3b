package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwell/notify/pkg/config"
)

type testConfig struct {
	ServiceName string        `env:"TEST_SERVICE_NAME,required"`
	Timeout     time.Duration `env:"TEST_TIMEOUT" envDefault:"5s"`
	Debug       bool          `env:"TEST_DEBUG" envDefault:"false"`
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_SERVICE_NAME", "notify")
	t.Setenv("TEST_TIMEOUT", "30s")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "notify", cfg.ServiceName)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.Debug)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEST_SERVICE_NAME", "notify")

	var cfg testConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("TEST_SERVICE_NAME", "")
	require.NoError(t, os.Unsetenv("TEST_SERVICE_NAME"))

	var cfg testConfig
	err := config.Load(&cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_NilPointer(t *testing.T) {
	t.Parallel()

	err := config.Load[testConfig](nil)
	assert.ErrorIs(t, err, config.ErrNilPointer)
}

func TestMustLoad_PanicsOnError(t *testing.T) {
	t.Setenv("TEST_SERVICE_NAME", "")
	require.NoError(t, os.Unsetenv("TEST_SERVICE_NAME"))

	assert.Panics(t, func() {
		var cfg testConfig
		config.MustLoad(&cfg)
	})
}
