package passcode

import (
	"fmt"
	"time"

	"github.com/nekohouse/doorcode/pkg/keeloq"
	"github.com/nekohouse/doorcode/pkg/timex"
)

// Period codes are valid until an absolute calendar instant at hour
// resolution. The cipher input combines a UTC+8-normalised day count with the
// end instant's hour offset from that day's start:
//
//	input = days*32768 + tag + hourOffset
//
// where hourOffset = (endUnix - days*86400)/3600 + 8. The +8 bias and the
// 28800-second shift applied to the day count encode the UTC+8 normalisation
// and are part of the wire contract.
const (
	utc8ShiftSeconds = 28_800
	daySeconds       = 86_400
	hourSeconds      = 3_600

	periodDayStride     = 32_768
	periodHourBias      = 8
	periodMaxHourOffset = 32_768
)

// periodDays is the UTC+8-normalised day count for the given offset-adjusted
// epoch milliseconds.
func periodDays(ms int64) uint32 {
	return uint32((ms/1000 + utc8ShiftSeconds) / daySeconds)
}

func (e *Engine) generatePeriod(secret string, s AbsolutePeriod, offsetSeconds int64) (Credential, error) {
	if !validSecret(secret) {
		return Credential{}, ErrSecretTooShort
	}
	if s.Month < time.January || s.Month > time.December ||
		s.Day < 1 || s.Day > 31 || s.Hour < 0 || s.Hour > 23 {
		return Credential{}, ErrInvalidDate
	}

	end := time.Date(s.Year, s.Month, s.Day, s.Hour, 0, 0, 0, timex.Zone)
	if end.Day() != s.Day || end.Month() != s.Month {
		// time.Date normalises impossible dates (Feb 30 -> Mar 1); reject them.
		return Credential{}, ErrInvalidDate
	}

	ms := timex.Millis(e.now(), offsetSeconds)
	if end.Unix() <= ms/1000 {
		return Credential{}, ErrEndNotInFuture
	}

	days := periodDays(ms)
	hourOffset := (end.Unix()-int64(days)*daySeconds)/hourSeconds + periodHourBias
	if hourOffset > periodMaxHourOffset {
		return Credential{}, ErrEndOutOfRange
	}

	input := days*periodDayStride + tagPeriod + uint32(hourOffset)
	expiresAt := end.Format(timex.Layout)

	return Credential{
		Code:      formatCode(keeloq.Encode(input, secret)),
		ExpiresAt: expiresAt,
		Message:   fmt.Sprintf("period code, valid until %s", expiresAt),
		Scheme:    s,
	}, nil
}

// VerifyPeriod searches tolerance day windows back from the current one and,
// within each, the full plausible hour-offset range. On a match the absolute
// end instant is reconstructed from the (days, hourOffset) pair; the match is
// accepted only while that instant is still ahead of the offset-adjusted now.
func (e *Engine) VerifyPeriod(code, secret string, offsetSeconds int64, toleranceDays int) (Match, bool) {
	if !validSecret(secret) {
		return Match{}, false
	}
	word, ok := parseCode(code)
	if !ok {
		return Match{}, false
	}

	ms := timex.Millis(e.now(), offsetSeconds)
	nowSec := ms / 1000
	current := periodDays(ms)

	for k := 0; k <= toleranceDays; k++ {
		days := current - uint32(k)
		for h := int64(periodHourBias); h <= periodMaxHourOffset+periodHourBias; h++ {
			input := days*periodDayStride + tagPeriod + uint32(h)
			if keeloq.Encode(input, secret) != word {
				continue
			}
			endSec := (h-periodHourBias)*hourSeconds + int64(days)*daySeconds
			if nowSec > endSec {
				continue
			}
			end := time.Unix(endSec, 0).In(timex.Zone)
			return Match{
				Scheme: AbsolutePeriod{
					Year:  end.Year(),
					Month: end.Month(),
					Day:   end.Day(),
					Hour:  end.Hour(),
				},
				ExpiresAt: time.Unix(endSec, 0),
			}, true
		}
	}
	return Match{}, false
}
