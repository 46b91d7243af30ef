package sync

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

// RebuildSummaries recomputes the materialized month and year summaries for a
// user from the current activity rows. Nothing keeps these in step with
// syncs automatically; this is the explicit trigger.
func RebuildSummaries(database *gorm.DB, userID uint) error {
	var activities []db.Activity
	if err := database.Where("user_id = ?", userID).Find(&activities).Error; err != nil {
		return fmt.Errorf("failed to load activities: %w", err)
	}

	summaries := make(map[string]*db.ActivitySummary)

	for _, a := range activities {
		start := a.StartDate.UTC()

		monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthEnd := monthStart.AddDate(0, 1, -1)
		accumulate(summaries, userID, "month", monthStart, monthEnd, a)

		yearStart := time.Date(start.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		yearEnd := yearStart.AddDate(1, 0, -1)
		accumulate(summaries, userID, "year", yearStart, yearEnd, a)
	}

	for _, summary := range summaries {
		err := database.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "period_type"},
				{Name: "period_start"}, {Name: "period_end"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_activities", "run_count", "ride_count", "swim_count", "other_count",
				"total_distance", "run_distance", "ride_distance", "swim_distance",
				"total_moving_time", "total_elapsed_time",
				"total_elevation_gain", "total_calories",
				"updated_at",
			}),
		}).Create(summary).Error
		if err != nil {
			return fmt.Errorf("failed to upsert %s summary starting %s: %w",
				summary.PeriodType, summary.PeriodStart.Format("2006-01-02"), err)
		}
	}

	log.Infof("Rebuilt %d summaries for user %d from %d activities", len(summaries), userID, len(activities))
	return nil
}

func accumulate(summaries map[string]*db.ActivitySummary, userID uint, periodType string, start, end time.Time, a db.Activity) {
	key := fmt.Sprintf("%s:%s", periodType, start.Format("2006-01-02"))
	summary, ok := summaries[key]
	if !ok {
		summary = &db.ActivitySummary{
			UserID:      userID,
			PeriodType:  periodType,
			PeriodStart: start,
			PeriodEnd:   end,
		}
		summaries[key] = summary
	}

	summary.TotalActivities++
	summary.TotalDistance += a.Distance
	summary.TotalMovingTime += a.MovingTime
	summary.TotalElapsedTime += a.ElapsedTime
	if a.TotalElevationGain != nil {
		summary.TotalElevationGain += *a.TotalElevationGain
	}
	if a.Calories != nil {
		summary.TotalCalories += *a.Calories
	}

	switch a.ActivityType {
	case "Run":
		summary.RunCount++
		summary.RunDistance += a.Distance
	case "Ride":
		summary.RideCount++
		summary.RideDistance += a.Distance
	case "Swim":
		summary.SwimCount++
		summary.SwimDistance += a.Distance
	default:
		summary.OtherCount++
	}
}
