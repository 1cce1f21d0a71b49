package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4005, cfg.Port)
	assert.Equal(t, "memory", cfg.CacheBackend)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10, cfg.NearbyPropertyLimit)
	assert.Equal(t, 50, cfg.NearbyVehicleLimit)
	assert.Equal(t, 10.0, cfg.NearbyDefaultRadiusKm)
	assert.Equal(t, 5000, cfg.MaxCandidates)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DISCOVERY_PORT", "9090")
	t.Setenv("DISCOVERY_CACHE_TTL", "90s")
	t.Setenv("DISCOVERY_NEARBY_VEHICLE_LIMIT", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 25, cfg.NearbyVehicleLimit)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DISCOVERY_CACHE_BACKEND", "memcached")
	_, err := Load()
	assert.Error(t, err)
}
