package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "strava-analytics",
	Short: "Strava activity sync and analytics dashboard",
	Long: `A web application that connects Strava accounts, syncs activity
history into a local database, and serves aggregate statistics on a
dashboard and JSON API.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to TOML config file")
}

func loadConfig() (config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := config.Default()
		cfg.ApplyEnv()
		return cfg, nil
	}
	return config.Load(configPath)
}
