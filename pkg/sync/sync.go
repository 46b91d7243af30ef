// Package sync pulls a user's activity history from Strava into local
// storage: repeated paged fetches, payload mapping, and atomic upserts keyed
// on (user, strava activity id).
package sync

import (
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
	"github.com/Phil-Jim/strava-analytics/pkg/strava"
)

// pageDelay is the fixed pause between page fetches. Strava allows 100
// requests per 15 minutes.
const pageDelay = 200 * time.Millisecond

// ActivityFetcher is the slice of the Strava client the pipeline needs.
type ActivityFetcher interface {
	FetchActivitiesPage(page, perPage int, after, before int64) ([]strava.RawActivity, error)
}

// Result carries the partial counts of a sync run. Err is the terminal fetch
// error, if any; the counts accumulated before it are still valid.
type Result struct {
	Processed int   `json:"processed"`
	New       int   `json:"new"`
	Err       error `json:"-"`
}

type Syncer struct {
	database *gorm.DB
	fetcher  ActivityFetcher
	userID   uint

	delay time.Duration
	now   func() time.Time
}

func NewSyncer(database *gorm.DB, fetcher ActivityFetcher, userID uint) *Syncer {
	return &Syncer{
		database: database,
		fetcher:  fetcher,
		userID:   userID,
		delay:    pageDelay,
		now:      time.Now,
	}
}

// SyncAll pages through the user's full activity history. limit > 0 stops
// the run once that many records have been processed, even mid-page.
func (s *Syncer) SyncAll(limit int) (Result, error) {
	if !syncLocks.tryAcquire(s.userID) {
		return Result{}, ErrSyncInProgress
	}
	defer syncLocks.release(s.userID)

	log.Infof("Starting activity sync for user %d", s.userID)
	res := s.run(limit, 0)
	log.Infof("Sync complete for user %d: processed %d, new %d", s.userID, res.Processed, res.New)
	return res, nil
}

// SyncRecent pages through activities started within the last daysBack days.
func (s *Syncer) SyncRecent(daysBack int) (Result, error) {
	if !syncLocks.tryAcquire(s.userID) {
		return Result{}, ErrSyncInProgress
	}
	defer syncLocks.release(s.userID)

	after := s.now().AddDate(0, 0, -daysBack).Unix()
	log.Infof("Syncing activities from last %d days for user %d", daysBack, s.userID)
	res := s.run(0, after)
	log.Infof("Recent sync complete for user %d: processed %d, new %d", s.userID, res.Processed, res.New)
	return res, nil
}

// run is the shared page loop. It terminates on an empty page, a short page,
// the processed limit, or the first fetch/storage error. Errors end up in
// Result.Err alongside the counts accumulated so far.
func (s *Syncer) run(limit int, after int64) Result {
	var res Result
	page := 1

	for {
		activities, err := s.fetcher.FetchActivitiesPage(page, strava.MaxPageSize, after, 0)
		if err != nil {
			log.Errorf("Error fetching activities page %d: %v", page, err)
			res.Err = err
			return res
		}

		if len(activities) == 0 {
			return res
		}

		for _, raw := range activities {
			if limit > 0 && res.Processed >= limit {
				return res
			}

			created, err := s.mapAndUpsert(raw)
			if err != nil {
				var malformed *MalformedPayloadError
				if errors.As(err, &malformed) {
					log.Warnf("Skipping activity %d: %v", raw.ID, err)
					continue
				}
				res.Err = err
				return res
			}

			res.Processed++
			if created {
				res.New++
			}
		}
		log.Debugf("Processed %d activities from page %d", len(activities), page)

		if len(activities) < strava.MaxPageSize {
			return res
		}

		page++
		time.Sleep(s.delay)
	}
}

// mapAndUpsert maps one provider payload and writes it. Reports whether the
// record was newly created.
func (s *Syncer) mapAndUpsert(raw strava.RawActivity) (bool, error) {
	activity, err := s.mapActivity(raw)
	if err != nil {
		return false, err
	}

	// Existence probe only decides the created/updated flag; the write
	// itself is a single atomic insert-or-update on (user_id, strava_id).
	var existing db.Activity
	err = s.database.Select("id").
		Where("user_id = ? AND strava_id = ?", s.userID, raw.ID).
		First(&existing).Error
	created := errors.Is(err, gorm.ErrRecordNotFound)
	if err != nil && !created {
		return false, fmt.Errorf("failed to look up activity %d: %w", raw.ID, err)
	}

	err = s.database.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "strava_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "activity_type", "start_date",
			"distance", "moving_time", "elapsed_time",
			"average_speed", "max_speed", "total_elevation_gain",
			"average_heartrate", "max_heartrate",
			"average_watts", "max_watts", "calories",
			"start_latitude", "start_longitude", "end_latitude", "end_longitude",
			"updated_at",
		}),
	}).Create(&activity).Error
	if err != nil {
		return false, fmt.Errorf("failed to upsert activity %d: %w", raw.ID, err)
	}

	return created, nil
}

func (s *Syncer) mapActivity(raw strava.RawActivity) (db.Activity, error) {
	// Strava emits RFC 3339 with a literal trailing Z, which parses as UTC.
	startDate, err := time.Parse(time.RFC3339, raw.StartDate)
	if err != nil {
		return db.Activity{}, &MalformedPayloadError{StravaID: raw.ID, Field: "start_date", Cause: err}
	}

	activityType := raw.Type
	if activityType == "" {
		activityType = "Other"
	}

	activity := db.Activity{
		UserID:       s.userID,
		StravaID:     raw.ID,
		Name:         raw.Name,
		ActivityType: activityType,
		StartDate:    startDate.UTC(),

		AverageSpeed:       raw.AverageSpeed,
		MaxSpeed:           raw.MaxSpeed,
		TotalElevationGain: raw.TotalElevationGain,
		AverageHeartrate:   raw.AverageHeartrate,
		MaxHeartrate:       raw.MaxHeartrate,
		AverageWatts:       raw.AverageWatts,
		MaxWatts:           raw.MaxWatts,
		Calories:           raw.Calories,
	}

	if raw.Distance != nil {
		activity.Distance = *raw.Distance
	}
	if raw.MovingTime != nil {
		activity.MovingTime = *raw.MovingTime
	}
	if raw.ElapsedTime != nil {
		activity.ElapsedTime = *raw.ElapsedTime
	}

	if len(raw.StartLatLng) >= 2 {
		activity.StartLatitude = &raw.StartLatLng[0]
		activity.StartLongitude = &raw.StartLatLng[1]
	}
	if len(raw.EndLatLng) >= 2 {
		activity.EndLatitude = &raw.EndLatLng[0]
		activity.EndLongitude = &raw.EndLatLng[1]
	}

	return activity, nil
}
