package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vanitydag/vanityd/internal/config"
)

func TestInitConfigDefaults(t *testing.T) {
	datadir := t.TempDir()
	t.Setenv("VANITY_DATADIR", datadir)

	err := config.InitConfig()
	require.NoError(t, err)

	require.Equal(t, datadir, config.GetDatadir())
	require.Equal(t, "auto", config.GetString(config.BroadcastMethodKey))
	require.Equal(t, 8, config.GetInt(config.TargetBitsKey))
	require.Equal(t, uint64(10000000), config.GetUint64(config.MaxIterationsKey))
	require.Equal(t, 2*time.Second, config.GetDuration(config.RetryDelayKey))
	require.DirExists(t, filepath.Join(datadir, config.DbLocation))
}

func TestInitConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid method", "VANITY_BROADCAST_METHOD", "telegraph"},
		{"target bits too high", "VANITY_TARGET_BITS", "65"},
		{"target bits too low", "VANITY_TARGET_BITS", "0"},
		{"zero workers", "VANITY_WORKERS", "0"},
		{"negative retries", "VANITY_RETRY_ATTEMPTS", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VANITY_DATADIR", t.TempDir())
			t.Setenv(tt.key, tt.value)
			require.Error(t, config.InitConfig())
		})
	}
}
