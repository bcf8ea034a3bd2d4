package passcode

import (
	"fmt"
	"time"

	"github.com/nekohouse/doorcode/pkg/keeloq"
	"github.com/nekohouse/doorcode/pkg/timex"
)

// Duration-limited codes encode their lifetime in half-hour units (hours*2 +
// minutes/30, 0..255) alongside a 30-minute window of the clock. The window
// is shifted into the high bits (input = window*256 + tag + units) so the
// units occupy the low byte.
const (
	durationWindowMillis = 1_800_000

	durationMaxHours = 127
)

func durationWindow(ms int64) uint32 { return uint32(ms / durationWindowMillis) }

func durationExpiryMillis(window uint32, halfHours int) int64 {
	return (int64(window) + int64(halfHours)) * durationWindowMillis
}

// halfHourUnits validates and folds an (hours, minutes) pair into the
// half-hour encoding.
func halfHourUnits(hours, minutes int) (int, error) {
	if hours < 0 || hours > durationMaxHours {
		return 0, ErrHoursOutOfRange
	}
	if minutes != 0 && minutes != 30 {
		return 0, ErrInvalidMinutes
	}
	return hours*2 + minutes/30, nil
}

func describeDuration(hours, minutes int) string {
	switch {
	case hours == 0:
		return fmt.Sprintf("%d minutes", minutes)
	case minutes == 0:
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	case hours == 1:
		return fmt.Sprintf("1 hour %d minutes", minutes)
	default:
		return fmt.Sprintf("%d hours %d minutes", hours, minutes)
	}
}

func (e *Engine) generateDuration(secret string, hours, minutes int, offsetSeconds int64) (Credential, error) {
	if !validSecret(secret) {
		return Credential{}, ErrSecretTooShort
	}
	units, err := halfHourUnits(hours, minutes)
	if err != nil {
		return Credential{}, err
	}

	window := durationWindow(timex.Millis(e.now(), offsetSeconds))
	input := window*256 + tagDuration + uint32(units)
	expiresAt := timex.FormatMillis(durationExpiryMillis(window, units))

	return Credential{
		Code:      formatCode(keeloq.Encode(input, secret)),
		ExpiresAt: expiresAt,
		Message: fmt.Sprintf("duration-limited code, %s, valid until %s",
			describeDuration(hours, minutes), expiresAt),
		Scheme: DurationLimited{Hours: hours, Minutes: minutes},
	}, nil
}

// VerifyDuration searches the current 30-minute window and up to tolerance
// windows either side of it, trying every (hours, minutes) combination, and
// accepts the first reproduction whose computed expiry is still ahead. The
// original duration parameters are recovered from the matching combination.
func (e *Engine) VerifyDuration(code, secret string, offsetSeconds int64, tolerance int) (Match, bool) {
	if !validSecret(secret) {
		return Match{}, false
	}
	word, ok := parseCode(code)
	if !ok {
		return Match{}, false
	}

	ms := timex.Millis(e.now(), offsetSeconds)
	current := durationWindow(ms)

	for _, window := range candidateWindows(current, tolerance) {
		for hours := 0; hours <= durationMaxHours; hours++ {
			for _, minutes := range [2]int{0, 30} {
				units := hours*2 + minutes/30
				input := window*256 + tagDuration + uint32(units)
				if keeloq.Encode(input, secret) != word {
					continue
				}
				expiry := durationExpiryMillis(window, units)
				if ms > expiry {
					continue
				}
				return Match{
					Scheme:    DurationLimited{Hours: hours, Minutes: minutes},
					ExpiresAt: time.UnixMilli(expiry),
				}, true
			}
		}
	}
	return Match{}, false
}

// candidateWindows lists current, current±1, ... current±tolerance, nearest
// first.
func candidateWindows(current uint32, tolerance int) []uint32 {
	windows := make([]uint32, 0, 2*tolerance+1)
	windows = append(windows, current)
	for k := 1; k <= tolerance; k++ {
		windows = append(windows, current+uint32(k), current-uint32(k))
	}
	return windows
}
