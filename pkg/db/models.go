package db

import (
	"fmt"
	"time"
)

type User struct {
	ID           uint   `gorm:"primarykey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StravaProfile holds the per-user Strava OAuth credentials. One per user.
type StravaProfile struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	StravaUserID int64     `gorm:"uniqueIndex;not null" json:"strava_user_id"`
	AccessToken  string    `gorm:"not null" json:"-"`
	RefreshToken string    `gorm:"not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Activity is one synced Strava activity. The (user_id, strava_id) pair is
// the natural key; repeated syncs of the same id overwrite every field.
type Activity struct {
	ID       uint  `gorm:"primarykey" json:"id"`
	UserID   uint  `gorm:"not null;uniqueIndex:idx_user_strava;index" json:"user_id"`
	StravaID int64 `gorm:"not null;uniqueIndex:idx_user_strava" json:"strava_id"`

	Name         string    `json:"name"`
	ActivityType string    `gorm:"index;default:Other" json:"activity_type"`
	StartDate    time.Time `gorm:"index;not null" json:"start_date"`

	// Distance in meters, times in seconds.
	Distance    float64 `json:"distance"`
	MovingTime  int     `json:"moving_time"`
	ElapsedTime int     `json:"elapsed_time"`

	// Speeds in m/s.
	AverageSpeed *float64 `json:"average_speed"`
	MaxSpeed     *float64 `json:"max_speed"`

	// Elevation gain in meters.
	TotalElevationGain *float64 `json:"total_elevation_gain"`

	AverageHeartrate *float64 `json:"average_heartrate"`
	MaxHeartrate     *float64 `json:"max_heartrate"`

	AverageWatts *float64 `json:"average_watts"`
	MaxWatts     *float64 `json:"max_watts"`

	Calories *float64 `json:"calories"`

	StartLatitude  *float64 `json:"start_latitude"`
	StartLongitude *float64 `json:"start_longitude"`
	EndLatitude    *float64 `json:"end_latitude"`
	EndLongitude   *float64 `json:"end_longitude"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

const (
	MetersPerMile = 1609.34
	MpsToKmh      = 3.6
	MpsToMph      = 2.237
)

func (a Activity) DistanceKm() float64 {
	return a.Distance / 1000
}

func (a Activity) DistanceMiles() float64 {
	return a.Distance / MetersPerMile
}

// MovingTimeFormatted renders the moving time as HH:MM:SS.
func (a Activity) MovingTimeFormatted() string {
	hours := a.MovingTime / 3600
	minutes := (a.MovingTime % 3600) / 60
	seconds := a.MovingTime % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// AveragePacePerKm renders pace as MM:SS per kilometer, or "N/A" when either
// distance or moving time is missing.
func (a Activity) AveragePacePerKm() string {
	if a.Distance <= 0 || a.MovingTime <= 0 {
		return "N/A"
	}
	paceSeconds := float64(a.MovingTime) / a.DistanceKm()
	minutes := int(paceSeconds) / 60
	seconds := int(paceSeconds) % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func (a Activity) AverageSpeedKmh() float64 {
	if a.AverageSpeed == nil {
		return 0
	}
	return *a.AverageSpeed * MpsToKmh
}

func (a Activity) AverageSpeedMph() float64 {
	if a.AverageSpeed == nil {
		return 0
	}
	return *a.AverageSpeed * MpsToMph
}

// ActivitySummary is a materialized per-period aggregate. The sync and
// analytics paths never read it; rows are written only by the explicit
// rebuild operation.
type ActivitySummary struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_period" json:"user_id"`
	PeriodType  string    `gorm:"not null;uniqueIndex:idx_user_period" json:"period_type"`
	PeriodStart time.Time `gorm:"not null;uniqueIndex:idx_user_period" json:"period_start"`
	PeriodEnd   time.Time `gorm:"not null;uniqueIndex:idx_user_period" json:"period_end"`

	TotalActivities int `json:"total_activities"`
	RunCount        int `json:"run_count"`
	RideCount       int `json:"ride_count"`
	SwimCount       int `json:"swim_count"`
	OtherCount      int `json:"other_count"`

	TotalDistance float64 `json:"total_distance"`
	RunDistance   float64 `json:"run_distance"`
	RideDistance  float64 `json:"ride_distance"`
	SwimDistance  float64 `json:"swim_distance"`

	TotalMovingTime  int `json:"total_moving_time"`
	TotalElapsedTime int `json:"total_elapsed_time"`

	TotalElevationGain float64 `json:"total_elevation_gain"`
	TotalCalories      float64 `json:"total_calories"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

type UserSession struct {
	ID        uint      `gorm:"primarykey"`
	UserID    uint      `gorm:"index;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`

	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
