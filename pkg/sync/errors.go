package sync

import (
	"errors"
	"fmt"
)

// ErrSyncInProgress is returned when a sync is triggered for a user whose
// previous sync has not finished yet.
var ErrSyncInProgress = errors.New("sync already in progress for this user")

// MalformedPayloadError marks a provider record that cannot be mapped into an
// Activity. The offending record is skipped; the sync continues.
type MalformedPayloadError struct {
	StravaID int64
	Field    string
	Cause    error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed activity %d: bad %s: %v", e.StravaID, e.Field, e.Cause)
}

func (e *MalformedPayloadError) Unwrap() error {
	return e.Cause
}
