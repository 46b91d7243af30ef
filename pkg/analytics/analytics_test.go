package analytics

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Phil-Jim/strava-analytics/pkg/db"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	return database
}

func testAnalytics(t *testing.T) (*Analytics, *gorm.DB) {
	t.Helper()
	database := openTestDB(t)
	a := New(database, 1)
	a.now = func() time.Time { return testNow }
	return a, database
}

type seedOpts struct {
	activityType string
	start        time.Time
	distance     float64
	movingTime   int
	avgSpeed     *float64
	elevation    *float64
	calories     *float64
	heartrate    *float64
}

var nextStravaID int64

func seed(t *testing.T, database *gorm.DB, opts seedOpts) {
	t.Helper()
	nextStravaID++
	if opts.activityType == "" {
		opts.activityType = "Run"
	}
	require.NoError(t, database.Create(&db.Activity{
		UserID:             1,
		StravaID:           nextStravaID,
		Name:               "Seeded",
		ActivityType:       opts.activityType,
		StartDate:          opts.start,
		Distance:           opts.distance,
		MovingTime:         opts.movingTime,
		AverageSpeed:       opts.avgSpeed,
		TotalElevationGain: opts.elevation,
		Calories:           opts.calories,
		AverageHeartrate:   opts.heartrate,
	}).Error)
}

func ptr(v float64) *float64 { return &v }

func TestSummaryStatsWeekWindow(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -3), distance: 10000, movingTime: 3600})
	// Eight days old: outside the 7-day lookback.
	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -8), distance: 99000, movingTime: 7200})

	stats, err := a.SummaryStats("week", "")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalActivities)
	assert.Equal(t, 10000.0, stats.TotalDistance)
	assert.InDelta(t, 10.0, stats.TotalDistanceKm, 1e-9)
	assert.InDelta(t, 10000.0/1609.34, stats.TotalDistanceMiles, 1e-9)
	assert.InDelta(t, 1.0, stats.TotalTimeHours, 1e-9)
}

func TestSummaryStatsEmptySetIsAllZero(t *testing.T) {
	a, _ := testAnalytics(t)

	stats, err := a.SummaryStats("all", "")
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.TotalActivities)
	assert.Zero(t, stats.TotalDistance)
	assert.Zero(t, stats.AvgSpeed)
	assert.Zero(t, stats.AvgHeartrate)
	assert.Zero(t, stats.TotalDistanceKm)
}

func TestSummaryStatsTypeFilter(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{activityType: "Run", start: testNow.AddDate(0, 0, -1), distance: 5000})
	seed(t, database, seedOpts{activityType: "Ride", start: testNow.AddDate(0, 0, -1), distance: 40000})

	stats, err := a.SummaryStats("all", "Ride")
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalActivities)
	assert.Equal(t, 40000.0, stats.TotalDistance)
}

func TestTypeBreakdownOrderedByCount(t *testing.T) {
	a, database := testAnalytics(t)

	for i := 0; i < 3; i++ {
		seed(t, database, seedOpts{activityType: "Ride", start: testNow.AddDate(0, 0, -i), distance: 20000})
	}
	seed(t, database, seedOpts{activityType: "Run", start: testNow, distance: 5000})

	breakdown, err := a.TypeBreakdown("all")
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "Ride", breakdown[0].ActivityType)
	assert.EqualValues(t, 3, breakdown[0].Count)
	assert.Equal(t, "Run", breakdown[1].ActivityType)
	assert.InDelta(t, 60.0, breakdown[0].TotalDistanceKm, 1e-9)
}

func TestTypeBreakdownEmpty(t *testing.T) {
	a, _ := testAnalytics(t)

	breakdown, err := a.TypeBreakdown("all")
	require.NoError(t, err)
	assert.Empty(t, breakdown)
}

func TestMonthlyTrendsBucketsByCalendarMonth(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{start: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), distance: 10000, movingTime: 3600})
	seed(t, database, seedOpts{start: time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC), distance: 5000, movingTime: 1800})
	seed(t, database, seedOpts{start: time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC), distance: 8000, movingTime: 2400})

	trends, err := a.MonthlyTrends("")
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "2024-03", trends[0].Month)
	assert.Equal(t, 2, trends[0].Activities)
	assert.InDelta(t, 15.0, trends[0].DistanceKm, 1e-9)
	assert.InDelta(t, 1.5, trends[0].TimeHours, 1e-9)
	assert.Equal(t, "2024-04", trends[1].Month)
}

func TestWeeklyTrendsTrailingWindow(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -2), distance: 10000})
	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -9), distance: 7000})
	// Far outside the default 12-week window.
	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -120), distance: 50000})

	trends, err := a.WeeklyTrends(0, "")
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Less(t, trends[0].Week, trends[1].Week)

	var totalKm float64
	for _, trend := range trends {
		totalKm += trend.DistanceKm
	}
	assert.InDelta(t, 17.0, totalKm, 1e-9)
}

func TestPersonalRecords(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{
		start: testNow.AddDate(0, 0, -10), distance: 42195, movingTime: 14400,
		avgSpeed: ptr(2.93), elevation: ptr(120),
	})
	seed(t, database, seedOpts{
		start: testNow.AddDate(0, 0, -5), distance: 10000, movingTime: 2400,
		avgSpeed: ptr(4.17), elevation: ptr(800),
	})

	records, err := a.PersonalRecords("")
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.InDelta(t, 42.195, records["longest_distance"].DistanceKm, 1e-9)
	assert.Equal(t, "04:00:00", records["longest_time"].Time)
	assert.InDelta(t, 4.17*3.6, records["fastest_speed"].SpeedKmh, 1e-9)
	assert.InDelta(t, 800.0, records["most_elevation"].ElevationM, 1e-9)
}

func TestPersonalRecordsEmptyHistory(t *testing.T) {
	a, _ := testAnalytics(t)

	records, err := a.PersonalRecords("")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDayOfWeekStatsFixedOrder(t *testing.T) {
	a, database := testAnalytics(t)

	// 2024-06-10 is a Monday, 2024-06-12 a Wednesday, 2024-06-09 a Sunday.
	seed(t, database, seedOpts{start: time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC), distance: 10000, movingTime: 3600})
	seed(t, database, seedOpts{start: time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC), distance: 6000, movingTime: 1800})
	seed(t, database, seedOpts{start: time.Date(2024, 6, 12, 7, 0, 0, 0, time.UTC), distance: 8000, movingTime: 2400})
	seed(t, database, seedOpts{start: time.Date(2024, 6, 9, 7, 0, 0, 0, time.UTC), distance: 21097, movingTime: 7200})

	stats, err := a.DayOfWeekStats("")
	require.NoError(t, err)
	require.Len(t, stats, 3)

	assert.Equal(t, "Monday", stats[0].Day)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 8.0, stats[0].AvgDistanceKm, 1e-9)
	assert.Equal(t, "Wednesday", stats[1].Day)
	assert.Equal(t, "Sunday", stats[2].Day)
}

func TestRecentActivitiesNewestFirst(t *testing.T) {
	a, database := testAnalytics(t)

	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -3), distance: 3000})
	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -1), distance: 1000})
	seed(t, database, seedOpts{start: testNow.AddDate(0, 0, -2), distance: 2000})

	activities, err := a.RecentActivities("", 2)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, 1000.0, activities[0].Distance)
	assert.Equal(t, 2000.0, activities[1].Distance)
}
