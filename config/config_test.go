package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, cnf Configuration) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vidforge-*.json")
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode(cnf))
	require.NoError(t, f.Close())
	return f.Name()
}

func TestInitConfig_Defaults(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/vidforge"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Provider:   ProviderConfig{BaseUrl: "https://provider.example.com"},
	})

	require.NoError(t, InitConfig(file))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Vidforge Server", cnf.ProjectName)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, 30, cnf.Provider.TimeoutSec)
	assert.Equal(t, 3, cnf.Provider.MaxRetries)
	assert.Equal(t, 3, cnf.Provider.BreakerFailures)
	assert.Equal(t, 30, cnf.Provider.BreakerCooldownSec)
	assert.Equal(t, 300, cnf.Storage.DownloadTimeoutSec)
	assert.Equal(t, "10m", cnf.Sweeper.Interval)
	assert.Equal(t, 60, cnf.Sweeper.StaleAfterMin)
	assert.NotEmpty(t, cnf.Storage.StagingDir)
}

func TestInitConfig_NegativeRetrySettingsClamped(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/vidforge"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Provider: ProviderConfig{
			BaseUrl:            "https://provider.example.com",
			TimeoutSec:         -1,
			MaxRetries:         -5,
			BreakerFailures:    -1,
			BreakerCooldownSec: -10,
		},
	})

	require.NoError(t, InitConfig(file))

	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, 30, cnf.Provider.TimeoutSec)
	assert.Equal(t, 3, cnf.Provider.MaxRetries)
	assert.Equal(t, 3, cnf.Provider.BreakerFailures)
	assert.Equal(t, 30, cnf.Provider.BreakerCooldownSec)
}

func TestInitConfig_MissingDataSource(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		Redis:    RedisConfig{Dns: "localhost:6379"},
		Provider: ProviderConfig{BaseUrl: "https://provider.example.com"},
	})
	assert.Error(t, InitConfig(file))
}

func TestInitConfig_MissingProvider(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/vidforge"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	})
	assert.Error(t, InitConfig(file))
}

func TestInitConfig_EnvOverride(t *testing.T) {
	t.Setenv("VIDFORGE_SERVER_PORT", "9090")
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/vidforge"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Provider:   ProviderConfig{BaseUrl: "https://provider.example.com"},
	})

	require.NoError(t, InitConfig(file))
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "9090", cnf.Server.Port)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/vidforge"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Provider:   ProviderConfig{BaseUrl: "https://provider.example.com"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	})

	require.NoError(t, InitConfig(file))
	cnf, err := Fetch()
	require.NoError(t, err)
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
	require.NotNil(t, cnf.RateLimit.CleanupIntervalSec)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
}
