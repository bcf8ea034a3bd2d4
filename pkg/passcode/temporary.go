package passcode

import (
	"fmt"
	"time"

	"github.com/nekohouse/doorcode/pkg/keeloq"
	"github.com/nekohouse/doorcode/pkg/timex"
)

// Temporary codes are derived straight from a four-second tick of the
// (offset-adjusted) clock and stay valid for ten minutes from the start of
// that tick. The window itself is the whole cipher input: no tag, no
// parameters.
const (
	tempWindowMillis   = 4_000
	tempValidityMillis = 600_000
)

func tempWindow(ms int64) uint32 { return uint32(ms / tempWindowMillis) }

func tempExpiryMillis(window uint32) int64 {
	return int64(window)*tempWindowMillis + tempValidityMillis
}

func (e *Engine) generateTemporary(secret string, offsetSeconds int64) (Credential, error) {
	if !validSecret(secret) {
		return Credential{}, ErrSecretTooShort
	}

	window := tempWindow(timex.Millis(e.now(), offsetSeconds))
	expiresAt := timex.FormatMillis(tempExpiryMillis(window))

	return Credential{
		Code:      formatCode(keeloq.Encode(window, secret)),
		ExpiresAt: expiresAt,
		Message:   fmt.Sprintf("temporary code, valid until %s", expiresAt),
		Scheme:    Temporary{},
	}, nil
}

// VerifyTemporary re-derives temporary codes for the current window and up to
// tolerance windows back, and accepts a reproduction whose ten-minute expiry
// has not yet passed.
func (e *Engine) VerifyTemporary(code, secret string, offsetSeconds int64, tolerance int) (Match, bool) {
	if !validSecret(secret) {
		return Match{}, false
	}
	word, ok := parseCode(code)
	if !ok {
		return Match{}, false
	}

	ms := timex.Millis(e.now(), offsetSeconds)
	current := tempWindow(ms)

	for k := 0; k <= tolerance; k++ {
		window := current - uint32(k)
		if keeloq.Encode(window, secret) != word {
			continue
		}
		expiry := tempExpiryMillis(window)
		if ms > expiry {
			continue
		}
		return Match{Scheme: Temporary{}, ExpiresAt: time.UnixMilli(expiry)}, true
	}
	return Match{}, false
}
