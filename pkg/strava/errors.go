package strava

import (
	"errors"
	"fmt"
)

// ErrAuthExpired means the access token was rejected and the refresh attempt
// failed too. The user has to reconnect their Strava account.
var ErrAuthExpired = errors.New("strava authorization expired")

// APIError is any non-2xx, non-auth response from the Strava API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava API error: status %d: %s", e.Status, e.Body)
}
