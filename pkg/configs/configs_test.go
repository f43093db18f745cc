package configs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsk3232/DevelopProject/pkg/configs"
)

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, configs.InitConfig(t.TempDir()))
	require.NoError(t, configs.Validate())

	cfg := configs.GetConfig()
	assert.Equal(t, 10*time.Second, cfg.Server.GetReadHeaderTimeout())
	assert.Equal(t, 30*time.Second, cfg.Server.GetShutdownTimeout())
	assert.Equal(t, "user", cfg.RateLimit.Key)
	assert.Equal(t, configs.MQTypeMemory, cfg.MQ.Type)
}

func TestCircuitBreakerShouldTrip(t *testing.T) {
	cb := configs.CircuitBreakerConfig{FailureRate: 0.5, MinRequests: 4}

	assert.False(t, cb.ShouldTrip(0, 0))
	assert.False(t, cb.ShouldTrip(3, 3))
	assert.False(t, cb.ShouldTrip(4, 1))
	assert.True(t, cb.ShouldTrip(4, 2))
	assert.Equal(t, time.Duration(0), cb.GetInterval())
}
