package domain

import "time"

// UTCTime returns the time normalized to UTC.
func UTCTime(t time.Time) time.Time {
	return t.UTC()
}
