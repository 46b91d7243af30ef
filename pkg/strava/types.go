package strava

// Athlete is the authenticated athlete as returned by GET /athlete.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}

// RawActivity is one entry of GET /athlete/activities. StartDate stays a raw
// string here; the sync pipeline owns timestamp parsing so a malformed value
// can be isolated to that one record.
type RawActivity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`

	StartDate string `json:"start_date"`

	Distance    *float64 `json:"distance"`
	MovingTime  *int     `json:"moving_time"`
	ElapsedTime *int     `json:"elapsed_time"`

	AverageSpeed *float64 `json:"average_speed"`
	MaxSpeed     *float64 `json:"max_speed"`

	TotalElevationGain *float64 `json:"total_elevation_gain"`

	AverageHeartrate *float64 `json:"average_heartrate"`
	MaxHeartrate     *float64 `json:"max_heartrate"`

	AverageWatts *float64 `json:"average_watts"`
	MaxWatts     *float64 `json:"max_watts"`

	Calories *float64 `json:"calories"`

	StartLatLng []float64 `json:"start_latlng"`
	EndLatLng   []float64 `json:"end_latlng"`
}

// TokenResponse is the Strava OAuth token endpoint payload, shared by the
// authorization_code and refresh_token grants.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Athlete      struct {
		ID int64 `json:"id"`
	} `json:"athlete,omitempty"`
}
