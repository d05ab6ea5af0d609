// Package clock computes the UTC day boundaries a synchronizer run
// validates DEPTH records against.
package clock

import (
	"time"

	"scsync/internal/timeutil"
)

// Source gives the [day, day+1) platform-microsecond bounds for a date.
type Source interface {
	DayBounds(date time.Time) (startUS, endUS uint64)
}

// UTCDay implements Source by truncating to the UTC midnight boundary.
type UTCDay struct{}

func (UTCDay) DayBounds(date time.Time) (uint64, uint64) {
	day := date.UTC().Truncate(24 * time.Hour)
	startNs := day.UnixNano()
	endNs := day.Add(24 * time.Hour).UnixNano()
	return timeutil.ToPlatformUS(startNs), timeutil.ToPlatformUS(endNs)
}
