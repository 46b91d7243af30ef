// Package analytics runs read-only aggregate queries over a user's synced
// activities: summary stats, type breakdowns, monthly and weekly trends,
// personal records, and day-of-week profiles.
package analytics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

type Analytics struct {
	database *gorm.DB
	userID   uint

	now func() time.Time
}

func New(database *gorm.DB, userID uint) *Analytics {
	return &Analytics{database: database, userID: userID, now: time.Now}
}

// SummaryStats is the aggregate row for a period, with unit-converted
// variants. Aggregates over an empty set are zero, not null.
type SummaryStats struct {
	TotalActivities int64   `json:"total_activities"`
	TotalDistance   float64 `json:"total_distance"`
	TotalTime       int64   `json:"total_time"`
	TotalElevation  float64 `json:"total_elevation"`
	TotalCalories   float64 `json:"total_calories"`
	AvgDistance     float64 `json:"avg_distance"`
	AvgSpeed        float64 `json:"avg_speed"`
	AvgHeartrate    float64 `json:"avg_heartrate"`

	TotalDistanceKm    float64 `json:"total_distance_km"`
	TotalDistanceMiles float64 `json:"total_distance_miles"`
	TotalTimeHours     float64 `json:"total_time_hours"`
	AvgDistanceKm      float64 `json:"avg_distance_km"`
	AvgSpeedKmh        float64 `json:"avg_speed_kmh"`
	AvgSpeedMph        float64 `json:"avg_speed_mph"`
}

// periodStart maps a relative period name to its cutoff. Zero time means no
// cutoff. Periods are lookback windows from now, not calendar-aligned.
func (a *Analytics) periodStart(period string) time.Time {
	now := a.now()
	switch period {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, 0, -30)
	case "year":
		return now.AddDate(0, 0, -365)
	}
	return time.Time{}
}

// scope builds the base query: this user's activities, optionally narrowed by
// period and activity type.
func (a *Analytics) scope(period, activityType string) *gorm.DB {
	query := a.database.Model(&db.Activity{}).Where("user_id = ?", a.userID)
	if activityType != "" {
		query = query.Where("activity_type = ?", activityType)
	}
	if start := a.periodStart(period); !start.IsZero() {
		query = query.Where("start_date >= ?", start)
	}
	return query
}

func (a *Analytics) SummaryStats(period, activityType string) (*SummaryStats, error) {
	var stats SummaryStats
	err := a.scope(period, activityType).
		Select(`COUNT(id) AS total_activities,
			COALESCE(SUM(distance), 0) AS total_distance,
			COALESCE(SUM(moving_time), 0) AS total_time,
			COALESCE(SUM(total_elevation_gain), 0) AS total_elevation,
			COALESCE(SUM(calories), 0) AS total_calories,
			COALESCE(AVG(distance), 0) AS avg_distance,
			COALESCE(AVG(average_speed), 0) AS avg_speed,
			COALESCE(AVG(average_heartrate), 0) AS avg_heartrate`).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate summary stats: %w", err)
	}

	stats.TotalDistanceKm = stats.TotalDistance / 1000
	stats.TotalDistanceMiles = stats.TotalDistance / db.MetersPerMile
	stats.TotalTimeHours = float64(stats.TotalTime) / 3600
	stats.AvgDistanceKm = stats.AvgDistance / 1000
	stats.AvgSpeedKmh = stats.AvgSpeed * db.MpsToKmh
	stats.AvgSpeedMph = stats.AvgSpeed * db.MpsToMph

	return &stats, nil
}

// TypeStats is one row of the per-type breakdown.
type TypeStats struct {
	ActivityType  string  `json:"activity_type"`
	Count         int64   `json:"count"`
	TotalDistance float64 `json:"total_distance"`
	TotalTime     int64   `json:"total_time"`
	AvgDistance   float64 `json:"avg_distance"`
	AvgSpeed      float64 `json:"avg_speed"`

	TotalDistanceKm    float64 `json:"total_distance_km"`
	TotalDistanceMiles float64 `json:"total_distance_miles"`
	TotalTimeHours     float64 `json:"total_time_hours"`
	AvgDistanceKm      float64 `json:"avg_distance_km"`
	AvgDistanceMiles   float64 `json:"avg_distance_miles"`
	AvgSpeedKmh        float64 `json:"avg_speed_kmh"`
	AvgSpeedMph        float64 `json:"avg_speed_mph"`
}

func (a *Analytics) TypeBreakdown(period string) ([]TypeStats, error) {
	var breakdown []TypeStats
	err := a.scope(period, "").
		Select(`activity_type,
			COUNT(id) AS count,
			COALESCE(SUM(distance), 0) AS total_distance,
			COALESCE(SUM(moving_time), 0) AS total_time,
			COALESCE(AVG(distance), 0) AS avg_distance,
			COALESCE(AVG(average_speed), 0) AS avg_speed`).
		Group("activity_type").
		Order("COUNT(id) DESC").
		Scan(&breakdown).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate type breakdown: %w", err)
	}

	for i := range breakdown {
		item := &breakdown[i]
		item.TotalDistanceKm = item.TotalDistance / 1000
		item.TotalDistanceMiles = item.TotalDistance / db.MetersPerMile
		item.TotalTimeHours = float64(item.TotalTime) / 3600
		item.AvgDistanceKm = item.AvgDistance / 1000
		item.AvgDistanceMiles = item.AvgDistance / db.MetersPerMile
		item.AvgSpeedKmh = item.AvgSpeed * db.MpsToKmh
		item.AvgSpeedMph = item.AvgSpeed * db.MpsToMph
	}

	return breakdown, nil
}

type MonthlyTrend struct {
	Month         string  `json:"month"`
	Activities    int     `json:"activities"`
	DistanceKm    float64 `json:"distance_km"`
	DistanceMiles float64 `json:"distance_miles"`
	TimeHours     float64 `json:"time_hours"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
	AvgSpeedMph   float64 `json:"avg_speed_mph"`
	Calories      float64 `json:"calories"`
}

// MonthlyTrends buckets the full history by calendar month.
func (a *Analytics) MonthlyTrends(activityType string) ([]MonthlyTrend, error) {
	activities, err := a.loadActivities("", activityType, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return []MonthlyTrend{}, nil
	}

	buckets := make(map[string]*MonthlyTrend)
	speedSums := make(map[string]float64)

	for _, act := range activities {
		key := act.StartDate.UTC().Format("2006-01")
		trend, ok := buckets[key]
		if !ok {
			trend = &MonthlyTrend{Month: key}
			buckets[key] = trend
		}

		trend.Activities++
		trend.DistanceKm += act.DistanceKm()
		trend.DistanceMiles += act.DistanceMiles()
		trend.TimeHours += float64(act.MovingTime) / 3600
		speedSums[key] += act.AverageSpeedKmh()
		if act.Calories != nil {
			trend.Calories += *act.Calories
		}
	}

	trends := make([]MonthlyTrend, 0, len(buckets))
	for key, trend := range buckets {
		trend.AvgSpeedKmh = speedSums[key] / float64(trend.Activities)
		trend.AvgSpeedMph = trend.AvgSpeedKmh / db.MpsToKmh * db.MpsToMph
		trends = append(trends, *trend)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Month < trends[j].Month })

	return trends, nil
}

type WeeklyTrend struct {
	Week          string  `json:"week"`
	Activities    int     `json:"activities"`
	DistanceKm    float64 `json:"distance_km"`
	DistanceMiles float64 `json:"distance_miles"`
	TimeHours     float64 `json:"time_hours"`
	Calories      float64 `json:"calories"`
}

// WeeklyTrends buckets the trailing weeksBack weeks by ISO week.
func (a *Analytics) WeeklyTrends(weeksBack int, activityType string) ([]WeeklyTrend, error) {
	if weeksBack <= 0 {
		weeksBack = 12
	}
	since := a.now().AddDate(0, 0, -7*weeksBack)

	activities, err := a.loadActivities("", activityType, since)
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return []WeeklyTrend{}, nil
	}

	buckets := make(map[string]*WeeklyTrend)
	for _, act := range activities {
		year, week := act.StartDate.UTC().ISOWeek()
		key := fmt.Sprintf("%d-W%02d", year, week)
		trend, ok := buckets[key]
		if !ok {
			trend = &WeeklyTrend{Week: key}
			buckets[key] = trend
		}

		trend.Activities++
		trend.DistanceKm += act.DistanceKm()
		trend.DistanceMiles += act.DistanceMiles()
		trend.TimeHours += float64(act.MovingTime) / 3600
		if act.Calories != nil {
			trend.Calories += *act.Calories
		}
	}

	trends := make([]WeeklyTrend, 0, len(buckets))
	for _, trend := range buckets {
		trends = append(trends, *trend)
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Week < trends[j].Week })

	return trends, nil
}

// Record is one personal best: the full activity plus the display value for
// the metric it won.
type Record struct {
	Activity   db.Activity `json:"activity"`
	DistanceKm float64     `json:"distance_km,omitempty"`
	Time       string      `json:"time,omitempty"`
	SpeedKmh   float64     `json:"speed_kmh,omitempty"`
	ElevationM float64     `json:"elevation_m,omitempty"`
	Date       string      `json:"date"`
}

// PersonalRecords returns the four independent bests. Ties are left to
// whichever row the database returns first. An empty history yields an empty
// map, not an error.
func (a *Analytics) PersonalRecords(activityType string) (map[string]Record, error) {
	records := make(map[string]Record)

	lookups := []struct {
		key   string
		where string
		order string
		fill  func(*Record)
	}{
		{
			key:   "longest_distance",
			order: "distance DESC",
			fill:  func(r *Record) { r.DistanceKm = r.Activity.DistanceKm() },
		},
		{
			key:   "longest_time",
			order: "moving_time DESC",
			fill:  func(r *Record) { r.Time = r.Activity.MovingTimeFormatted() },
		},
		{
			key:   "fastest_speed",
			where: "average_speed IS NOT NULL",
			order: "average_speed DESC",
			fill:  func(r *Record) { r.SpeedKmh = r.Activity.AverageSpeedKmh() },
		},
		{
			key:   "most_elevation",
			where: "total_elevation_gain IS NOT NULL",
			order: "total_elevation_gain DESC",
			fill:  func(r *Record) { r.ElevationM = *r.Activity.TotalElevationGain },
		},
	}

	for _, lookup := range lookups {
		query := a.scope("", activityType)
		if lookup.where != "" {
			query = query.Where(lookup.where)
		}

		var activity db.Activity
		err := query.Order(lookup.order).First(&activity).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s record: %w", lookup.key, err)
		}

		record := Record{
			Activity: activity,
			Date:     activity.StartDate.UTC().Format("2006-01-02"),
		}
		lookup.fill(&record)
		records[lookup.key] = record
	}

	return records, nil
}

type DayStats struct {
	Day           string  `json:"day"`
	Count         int     `json:"count"`
	AvgDistanceKm float64 `json:"avg_distance_km"`
	AvgDistanceMi float64 `json:"avg_distance_miles"`
	AvgTimeHours  float64 `json:"avg_time_hours"`
	AvgSpeedKmh   float64 `json:"avg_speed_kmh"`
	AvgSpeedMph   float64 `json:"avg_speed_mph"`
}

// dayOrder fixes Monday-first output ordering.
var dayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// DayOfWeekStats profiles the full history by weekday. It intentionally takes
// only a type filter, no period, matching the dashboard it feeds.
func (a *Analytics) DayOfWeekStats(activityType string) ([]DayStats, error) {
	activities, err := a.loadActivities("", activityType, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return []DayStats{}, nil
	}

	type accum struct {
		count    int
		distKm   float64
		distMi   float64
		hours    float64
		speedKmh float64
		speedMph float64
	}
	byDay := make(map[time.Weekday]*accum)

	for _, act := range activities {
		day := act.StartDate.UTC().Weekday()
		acc, ok := byDay[day]
		if !ok {
			acc = &accum{}
			byDay[day] = acc
		}
		acc.count++
		acc.distKm += act.DistanceKm()
		acc.distMi += act.DistanceMiles()
		acc.hours += float64(act.MovingTime) / 3600
		acc.speedKmh += act.AverageSpeedKmh()
		acc.speedMph += act.AverageSpeedMph()
	}

	stats := make([]DayStats, 0, len(byDay))
	for _, day := range dayOrder {
		acc, ok := byDay[day]
		if !ok {
			continue
		}
		n := float64(acc.count)
		stats = append(stats, DayStats{
			Day:           day.String(),
			Count:         acc.count,
			AvgDistanceKm: acc.distKm / n,
			AvgDistanceMi: acc.distMi / n,
			AvgTimeHours:  acc.hours / n,
			AvgSpeedKmh:   acc.speedKmh / n,
			AvgSpeedMph:   acc.speedMph / n,
		})
	}

	return stats, nil
}

// RecentActivities returns the newest activities for the list endpoint.
func (a *Analytics) RecentActivities(activityType string, limit int) ([]db.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	var activities []db.Activity
	err := a.scope("", activityType).
		Order("start_date DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return activities, nil
}

func (a *Analytics) loadActivities(period, activityType string, since time.Time) ([]db.Activity, error) {
	query := a.scope(period, activityType)
	if !since.IsZero() {
		query = query.Where("start_date >= ?", since)
	}

	var activities []db.Activity
	if err := query.Order("start_date").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to load activities: %w", err)
	}
	return activities, nil
}
