package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Strava.ClientID = "12345"
	cfg.Strava.ClientSecret = "topsecret"
	cfg.Server.Addr = "127.0.0.1:9999"
	cfg.Database.Path = filepath.Join(dir, "app.db")

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "12345", loaded.Strava.ClientID)
	assert.Equal(t, "topsecret", loaded.Strava.ClientSecret)
	assert.Equal(t, "127.0.0.1:9999", loaded.Server.Addr)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("STRAVA_CLIENT_ID", "env-id")
	t.Setenv("STRAVA_CLIENT_SECRET", "env-secret")
	t.Setenv("STRAVA_ACCESS_TOKEN", "env-access")
	t.Setenv("STRAVA_REFRESH_TOKEN", "env-refresh")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "env-id", cfg.Strava.ClientID)
	assert.Equal(t, "env-secret", cfg.Strava.ClientSecret)
	assert.Equal(t, "env-access", cfg.Strava.AccessToken)
	assert.Equal(t, "env-refresh", cfg.Strava.RefreshToken)
}

func TestApplyEnvKeepsConfigWhenUnset(t *testing.T) {
	os.Unsetenv("STRAVA_CLIENT_ID")
	os.Unsetenv("STRAVA_CLIENT_SECRET")

	cfg := Default()
	cfg.Strava.ClientID = "file-id"
	cfg.ApplyEnv()

	assert.Equal(t, "file-id", cfg.Strava.ClientID)
}
