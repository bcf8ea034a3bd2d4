package passcode

import (
	"fmt"
	"time"

	"github.com/nekohouse/doorcode/pkg/keeloq"
	"github.com/nekohouse/doorcode/pkg/timex"
)

// Use-count codes quantise the four-second tick down to a 32-tick (~128 s)
// boundary, which keeps the verify-time search space small, and fold the use
// count plus the scheme tag into the cipher input. Validity is a flat twenty
// hours from the aligned window start; the count itself is recovered at
// verification and enforced by the caller's bookkeeping, not by the code.
const (
	useCountAlignTicks     = 32
	useCountValidityMillis = 72_000_000

	useCountMin = 1
	useCountMax = 31
)

func useCountWindow(ms int64) uint32 {
	return uint32(ms/tempWindowMillis) &^ (useCountAlignTicks - 1)
}

func useCountExpiryMillis(window uint32) int64 {
	return int64(window)*tempWindowMillis + useCountValidityMillis
}

func (e *Engine) generateUseCount(secret string, count int, offsetSeconds int64) (Credential, error) {
	if !validSecret(secret) {
		return Credential{}, ErrSecretTooShort
	}
	if count < useCountMin || count > useCountMax {
		return Credential{}, ErrCountOutOfRange
	}

	window := useCountWindow(timex.Millis(e.now(), offsetSeconds))
	input := window + uint32(count) + tagUseCount
	expiresAt := timex.FormatMillis(useCountExpiryMillis(window))

	return Credential{
		Code:      formatCode(keeloq.Encode(input, secret)),
		ExpiresAt: expiresAt,
		Message:   fmt.Sprintf("use-limited code, good for %d use(s), valid until %s", count, expiresAt),
		Scheme:    UseCountLimited{Count: count},
	}, nil
}

// VerifyUseCount searches tolerance aligned windows back from the current one
// and, within each, every permitted use count. The recovered count is
// returned with the match.
func (e *Engine) VerifyUseCount(code, secret string, offsetSeconds int64, tolerance int) (Match, bool) {
	if !validSecret(secret) {
		return Match{}, false
	}
	word, ok := parseCode(code)
	if !ok {
		return Match{}, false
	}

	ms := timex.Millis(e.now(), offsetSeconds)
	aligned := useCountWindow(ms)

	for k := 0; k <= tolerance; k++ {
		window := aligned - uint32(k*useCountAlignTicks)
		for count := useCountMin; count <= useCountMax; count++ {
			if keeloq.Encode(window+uint32(count)+tagUseCount, secret) != word {
				continue
			}
			expiry := useCountExpiryMillis(window)
			if ms > expiry {
				continue
			}
			return Match{
				Scheme:    UseCountLimited{Count: count},
				ExpiresAt: time.UnixMilli(expiry),
			}, true
		}
	}
	return Match{}, false
}
