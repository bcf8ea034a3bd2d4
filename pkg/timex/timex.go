// Package timex holds the shared time conventions of the code engine: all
// windows are computed from Unix epoch milliseconds, human-readable expiry
// strings are rendered in UTC+8, and a caller-supplied offset in seconds can
// shift the effective clock before any windowing happens.
package timex

import "time"

// Layout is the timestamp layout used for every human-facing expiry string.
const Layout = "2006-01-02 15:04:05"

// Zone is the fixed UTC+8 zone all human-facing timestamps are rendered in.
var Zone = time.FixedZone("UTC+8", 8*60*60)

// Millis returns t as Unix epoch milliseconds with the offset (in seconds)
// applied. Generation and verification must use the same offset to agree on a
// window.
func Millis(t time.Time, offsetSeconds int64) int64 {
	return t.UnixMilli() + offsetSeconds*1000
}

// FormatMillis renders an epoch-milliseconds instant in UTC+8.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).In(Zone).Format(Layout)
}

// FormatUnix renders an epoch-seconds instant in UTC+8.
func FormatUnix(sec int64) string {
	return time.Unix(sec, 0).In(Zone).Format(Layout)
}
