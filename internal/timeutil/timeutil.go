// Package timeutil converts between the platform's epoch-of-1899
// microsecond timestamps used on disk and the internal nanosecond
// timeline the synchronizer orders events on.
package timeutil

// platformEpochOffsetSeconds is the number of seconds between
// 1899-12-30 00:00:00 UTC (the platform epoch) and 1970-01-01 00:00:00 UTC
// (the Unix epoch). Sierra Chart's SCID/depth formats both use this base.
const platformEpochOffsetSeconds int64 = 2209161600

// Nanoseconds is a signed count of nanoseconds since the Unix epoch —
// the single timeline every emitted event is ordered on.
type Nanoseconds = int64

// MillisecondIndex is the millisecond grid depth batches align to.
type MillisecondIndex = int64

// FromPlatformUS converts a platform-microsecond timestamp to internal
// nanoseconds. Pure and total: every uint64 input maps to exactly one
// int64 nanosecond value for the timestamp ranges this format uses.
func FromPlatformUS(platformUS uint64) Nanoseconds {
	unixUS := int64(platformUS) - platformEpochOffsetSeconds*1_000_000
	return unixUS * 1_000
}

// ToPlatformUS converts internal nanoseconds back to a platform-microsecond
// timestamp. Round-trips FromPlatformUS at microsecond resolution.
func ToPlatformUS(ns Nanoseconds) uint64 {
	unixUS := ns / 1_000
	return uint64(unixUS + platformEpochOffsetSeconds*1_000_000)
}

// MsOf returns the millisecond-grid index containing ns.
func MsOf(ns Nanoseconds) MillisecondIndex {
	if ns >= 0 {
		return ns / 1_000_000
	}
	// Round toward negative infinity so pre-epoch timestamps (none expected
	// in practice, but the function must remain total) still bucket sanely.
	q := ns / 1_000_000
	if ns%1_000_000 != 0 {
		q--
	}
	return q
}

// NsOfMs returns the nanosecond timestamp at the start of millisecond ms.
func NsOfMs(ms MillisecondIndex) Nanoseconds {
	return ms * 1_000_000
}

// Compose builds a nanosecond timestamp from a millisecond-grid index and
// a sub-millisecond tick in [0, 999], the resolution the platform's
// microsecond field carries within one millisecond once the synchronizer
// has reassigned it.
func Compose(ms MillisecondIndex, subMsTicks int) Nanoseconds {
	return NsOfMs(ms) + int64(subMsTicks)*1_000
}
