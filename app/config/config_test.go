package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadE()
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Log.RingSize)
	assert.Equal(t, 2, cfg.Settings.WorkersMax)
	assert.True(t, cfg.Settings.Private)
	assert.Equal(t, []string{"*.part", "*.!qB", "Thumbs.db"}, cfg.Settings.Exclude)
}

func TestLoadFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8080"
settings:
  movies_root: " /data/films "
  workers_max: 4
  exclude: ["*.nfo", " "]
`), 0o644))
	viper.SetConfigFile(path)

	cfg, err := LoadE()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "/data/films", cfg.Settings.MoviesRoot)
	assert.Equal(t, "/media/series", cfg.Settings.SeriesRoot)
	assert.Equal(t, 4, cfg.Settings.WorkersMax)
	assert.Equal(t, []string{"*.nfo"}, cfg.Settings.Exclude)
}

func TestLoadRejectsBadRingSize(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("log.ring_size", 0)

	_, err := LoadE()
	assert.Error(t, err)
}
