package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Strava   StravaConfig   `toml:"strava"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`

	filePath string
}

type StravaConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`

	// Process-wide fallback token pair, used by the sync CLI when no
	// per-user profile is selected. Normally supplied via environment.
	AccessToken  string `toml:"access_token,omitempty"`
	RefreshToken string `toml:"refresh_token,omitempty"`
}

type ServerConfig struct {
	Addr  string `toml:"addr"`
	Debug bool   `toml:"debug"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

func Default() Config {
	return Config{
		Strava: StravaConfig{
			ClientID:     "your_client_id",
			ClientSecret: "your_client_secret",
			RedirectURI:  "http://localhost:8081/auth/strava/callback",
		},
		Server: ServerConfig{
			Addr:  "0.0.0.0:8081",
			Debug: false,
		},
		Database: DatabaseConfig{
			Path: "strava.db",
		},
	}
}

func Load(path string) (Config, error) {
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path of config file: %w", err)
		}
		path = absPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	cfg.filePath = path
	cfg.ApplyEnv()

	return cfg, nil
}

func Save(cfg Config, path string) error {
	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.SetIndentTables(false)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ApplyEnv lets deployment environments supply Strava credentials without
// writing them into the config file.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("STRAVA_CLIENT_ID"); v != "" {
		c.Strava.ClientID = v
	}
	if v := os.Getenv("STRAVA_CLIENT_SECRET"); v != "" {
		c.Strava.ClientSecret = v
	}
	if v := os.Getenv("STRAVA_ACCESS_TOKEN"); v != "" {
		c.Strava.AccessToken = v
	}
	if v := os.Getenv("STRAVA_REFRESH_TOKEN"); v != "" {
		c.Strava.RefreshToken = v
	}
}
