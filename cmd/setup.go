package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Write a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists at %s", configPath)
		}

		if err := config.Save(config.Default(), configPath); err != nil {
			return err
		}
		fmt.Printf("Generated default configuration at: %s\n", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
