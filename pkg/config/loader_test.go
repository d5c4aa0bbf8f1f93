package config_test

import (
	"testing"

	"github.com/plantops/trustkit/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string `env:"CONFIG_TEST_NAME" envDefault:"fallback"`
	Count int    `env:"CONFIG_TEST_COUNT" envDefault:"3"`
}

type requiredConfig struct {
	Secret string `env:"CONFIG_TEST_REQUIRED_SECRET,required"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults apply", func(t *testing.T) {
		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 3, cfg.Count)
	})

	t.Run("cached on second load", func(t *testing.T) {
		var first testConfig
		require.NoError(t, config.Load(&first))

		// A changed environment is not re-read for an already-loaded type.
		t.Setenv("CONFIG_TEST_NAME", "changed")
		var second testConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, first, second)
	})

	t.Run("missing required variable", func(t *testing.T) {
		var cfg requiredConfig
		err := config.Load(&cfg)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		assert.ErrorIs(t, config.Load[testConfig](nil), config.ErrNilPointer)
	})
}
