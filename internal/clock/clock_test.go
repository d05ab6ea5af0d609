package clock

import (
	"testing"
	"time"

	"scsync/internal/timeutil"
)

func TestUTCDayBoundsSpanExactlyOneDay(t *testing.T) {
	start, end := UTCDay{}.DayBounds(time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC))
	if end <= start {
		t.Fatalf("want end > start, got start=%d end=%d", start, end)
	}
	gotMs := timeutil.MsOf(timeutil.FromPlatformUS(end)) - timeutil.MsOf(timeutil.FromPlatformUS(start))
	if gotMs != 24*60*60*1000 {
		t.Fatalf("want exactly one day of milliseconds, got %d", gotMs)
	}
}

func TestUTCDayBoundsIgnoreTimeOfDay(t *testing.T) {
	s1, e1 := UTCDay{}.DayBounds(time.Date(2026, 3, 5, 0, 0, 1, 0, time.UTC))
	s2, e2 := UTCDay{}.DayBounds(time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC))
	if s1 != s2 || e1 != e2 {
		t.Fatalf("want identical bounds regardless of time-of-day, got (%d,%d) vs (%d,%d)", s1, e1, s2, e2)
	}
}
