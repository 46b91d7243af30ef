package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
	"github.com/Phil-Jim/strava-analytics/pkg/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the web server",
	Long:  `Start the dashboard web server with the JSON API and Strava OAuth flow.`,
	Run:   runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("error loading config from %s: %v", configPath, err)
	}

	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("error connecting to database: %v", err)
	}

	srv := server.New(cfg, database)
	if err := srv.Run(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
