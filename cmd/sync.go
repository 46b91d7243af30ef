package cmd

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/Phil-Jim/strava-analytics/pkg/config"
	"github.com/Phil-Jim/strava-analytics/pkg/db"
	"github.com/Phil-Jim/strava-analytics/pkg/strava"
	syncpkg "github.com/Phil-Jim/strava-analytics/pkg/sync"
)

var (
	syncUser      string
	syncLimit     int
	syncRecent    int
	syncSummaries bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync activities from Strava",
	Long: `Pull a user's activity history from the Strava API into the local
database. Uses the user's connected Strava profile, or the process-wide
token pair from config/environment when no profile exists.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringVar(&syncUser, "user", "", "Username to sync (required)")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "Limit number of activities to sync")
	syncCmd.Flags().IntVar(&syncRecent, "recent", 0, "Sync activities from last N days only")
	syncCmd.Flags().BoolVar(&syncSummaries, "rebuild-summaries", false, "Recompute the materialized period summaries afterwards")
	syncCmd.MarkFlagRequired("user")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config from %s: %w", configPath, err)
	}

	database, err := db.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}

	var user db.User
	if err := database.Where("username = ?", syncUser).First(&user).Error; err != nil {
		return fmt.Errorf("unknown user %q: %w", syncUser, err)
	}

	source, err := credentialSource(database, cfg, user.ID)
	if err != nil {
		return err
	}
	client := strava.NewClient(source)

	athlete, err := client.FetchAthlete()
	if err != nil {
		return fmt.Errorf("failed to connect to Strava: %w", err)
	}
	log.Infof("Connected to Strava as %s %s", athlete.Firstname, athlete.Lastname)

	syncer := syncpkg.NewSyncer(database, client, user.ID)

	var res syncpkg.Result
	if syncRecent > 0 {
		res, err = syncer.SyncRecent(syncRecent)
	} else {
		res, err = syncer.SyncAll(syncLimit)
	}
	if err != nil {
		return err
	}

	if res.Err != nil {
		log.Warnf("Sync stopped early: %v", res.Err)
	}
	fmt.Printf("Synced %d activities (%d new)\n", res.Processed, res.New)

	if syncSummaries {
		if err := syncpkg.RebuildSummaries(database, user.ID); err != nil {
			return fmt.Errorf("failed to rebuild summaries: %w", err)
		}
	}

	return nil
}

// credentialSource prefers the user's connected profile and falls back to the
// process-wide token pair from config/environment.
func credentialSource(database *gorm.DB, cfg config.Config, userID uint) (strava.CredentialSource, error) {
	var profile db.StravaProfile
	err := database.Where("user_id = ?", userID).First(&profile).Error
	if err == nil {
		return strava.NewProfileCredentials(database, cfg.Strava, userID), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load strava profile: %w", err)
	}

	if cfg.Strava.AccessToken == "" || cfg.Strava.RefreshToken == "" {
		return nil, errors.New("no Strava profile for this user and no fallback tokens configured")
	}
	log.Warn("No Strava profile found, using process-wide tokens from config/environment")
	return strava.NewStaticCredentials(cfg.Strava), nil
}
