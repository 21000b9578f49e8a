package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	require.NoError(t, Load())

	require.Equal(t, ":8080", APIAddr())
	require.Contains(t, DSN(), "postgres://")
	require.Contains(t, DSN(), "energy_grid")
	require.Zero(t, ConnectRetries(), "connectivity errors are fatal unless retries are configured")
	require.Equal(t, "tcp://localhost:1883", MQTTBroker())
	require.False(t, UseCloudServices())
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("CONNECT_RETRIES", "4")
	t.Setenv("DB_DSN", "postgres://bench:bench@db:5432/bench")
	require.NoError(t, Load())

	require.EqualValues(t, 4, ConnectRetries())
	require.Equal(t, "postgres://bench:bench@db:5432/bench", viper.GetString("DB_DSN"))
}
