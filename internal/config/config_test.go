package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-sensor-dashboard/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	for _, v := range []string{"SENSORDASH_API_URL", "REQUEST_TIMEOUT", "POLL_INTERVAL", "STORE_BACKEND", "PORT", "ENV"} {
		t.Setenv(v, "")
	}
	c := config.New()

	require.Equal(t, "http://localhost:8000", c.GetAPIURL())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Second, c.GetPollInterval())
	require.Equal(t, config.StoreBackendFile, c.GetStoreBackend())
	require.Equal(t, ":8000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
}

func TestOverrides(t *testing.T) {
	t.Setenv("SENSORDASH_API_URL", "https://sensors.example.com/")
	t.Setenv("POLL_INTERVAL", "750ms")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("STORE_BACKEND", "REDIS")
	t.Setenv("PORT", ":9000")
	c := config.New()

	require.Equal(t, "https://sensors.example.com", c.GetAPIURL())
	require.Equal(t, 750*time.Millisecond, c.GetPollInterval())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, config.StoreBackendRedis, c.GetStoreBackend())
	require.Equal(t, ":9000", c.GetPort())

	t.Setenv("STORE_BACKEND", "etcd")
	require.Equal(t, config.StoreBackendFile, c.GetStoreBackend())
}
