package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, int64(100), cfg.ClockResolutionMS)
	assert.Equal(t, 6.0, cfg.HitRadius)
	assert.Equal(t, 10000, cfg.MaxTicks)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CLOCK_RESOLUTION_MS", "10")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, int64(10), cfg.ClockResolutionMS)
}

func TestLoadRejectsBadResolution(t *testing.T) {
	t.Setenv("CLOCK_RESOLUTION_MS", "0")
	_, err := Load()
	assert.Error(t, err)
}
