package crypto

import "time"

// DefaultTimestampMaxAge is the window within which a signed claim's
// timestamp is accepted.
const DefaultTimestampMaxAge = 5 * time.Minute

// TimestampValid reports whether a Unix-seconds timestamp is within maxAge of
// now, in either direction. Stale claims and claims from a clock skewed into
// the future are rejected symmetrically.
func TimestampValid(ts int64, maxAge time.Duration, now time.Time) bool {
	diff := now.Unix() - ts
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(maxAge.Seconds())
}
