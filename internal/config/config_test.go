package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.EqualValues(t, 5<<30, cfg.CapBytes)
	assert.Equal(t, 30*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, 22, cfg.SSH.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Watch)
}

func TestNewViperReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "workers: 4\nrefresh_interval: 1m\nlog:\n  level: debug\nssh:\n  port: 2222\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("DIRPIE_CAP_BYTES", "1000")
	t.Setenv("DIRPIE_LOG_FORMAT", "json")

	v, err := NewViper(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2222, cfg.SSH.Port)
	assert.EqualValues(t, 1000, cfg.CapBytes)
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value any
		want  string
	}{
		{KeyWorkers, 0, "workers"},
		{KeyCapBytes, -1, "cap_bytes"},
		{KeyRefreshInterval, time.Duration(0), "refresh_interval"},
		{KeySSHPort, 70000, "ssh.port"},
		{KeyLogFormat, "xml", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
