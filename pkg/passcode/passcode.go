// Package passcode derives and verifies short numeric access codes from the
// current time and a shared admin secret. No issued code is ever stored:
// verification re-derives candidate codes across a bounded range of time
// windows (and, for parameterised schemes, across the parameter space) and
// accepts the first still-valid reproduction.
//
// Four schemes are supported, each with its own time windowing. They share
// one cipher (pkg/keeloq) and one code format, and are kept from aliasing by
// scheme tag constants folded into the cipher input.
package passcode

import (
	"math"
	"strconv"
	"time"

	"github.com/nekohouse/doorcode/pkg/timex"
)

// codePrefix is added to every raw cipher output before rendering, so a code
// is always at least ten digits with a leading digit between 5 and 9
// (5_000_000_000 .. 9_294_967_295).
const codePrefix uint64 = 5_000_000_000

// Scheme tag constants. Each parameterised scheme folds one of these into the
// high bits of its cipher input so codes minted by different schemes cannot
// alias at the same window. Temporary codes carry no tag. The facade relies
// on these staying disjoint; it does not defend against a crafted collision.
const (
	tagUseCount uint32 = 0x4000_0000
	tagDuration uint32 = 0x8000_0000
	tagPeriod   uint32 = 0xC000_0000
)

// minSecretLen is the minimum admin secret length accepted by any operation.
const minSecretLen = 4

// Scheme identifies a credential type together with its parameters.
type Scheme interface {
	// Describe returns a short human-readable label for the scheme.
	Describe() string

	isScheme()
}

// Temporary is the fixed ten-minute scheme. It carries no parameters.
type Temporary struct{}

// UseCountLimited embeds an allowed use count (1..31) into the code. The
// count is advisory: decrementing it is the caller's bookkeeping, the code
// itself stays valid for roughly twenty hours.
type UseCountLimited struct {
	Count int
}

// DurationLimited is valid for Hours+Minutes from the generation instant,
// at half-hour resolution.
type DurationLimited struct {
	Hours   int // 0..127
	Minutes int // 0 or 30
}

// AbsolutePeriod is valid until an absolute calendar instant (UTC+8, hour
// resolution).
type AbsolutePeriod struct {
	Year  int
	Month time.Month
	Day   int
	Hour  int
}

func (Temporary) isScheme()       {}
func (UseCountLimited) isScheme() {}
func (DurationLimited) isScheme() {}
func (AbsolutePeriod) isScheme()  {}

func (Temporary) Describe() string { return "temporary" }

func (s UseCountLimited) Describe() string {
	return "use-limited (" + strconv.Itoa(s.Count) + " uses)"
}

func (s DurationLimited) Describe() string {
	return "duration-limited (" + describeDuration(s.Hours, s.Minutes) + ")"
}

func (s AbsolutePeriod) Describe() string {
	end := time.Date(s.Year, s.Month, s.Day, s.Hour, 0, 0, 0, time.UTC)
	return "period (until " + end.Format("2006-01-02 15:00") + ")"
}

// Credential is a freshly generated code together with its human-readable
// expiry and summary. The code string is the whole verifiable artifact; there
// is no record identity beyond it.
type Credential struct {
	Code      string
	ExpiresAt string // UTC+8, "2006-01-02 15:04:05"
	Message   string
	Scheme    Scheme
}

// Match is the result of a successful verification: the recovered scheme
// parameters and the expiry instant reconstructed from the matched window.
type Match struct {
	Scheme    Scheme
	ExpiresAt time.Time
}

// Default verification tolerances used by the facade. The
// temporary tolerance is wide (150 four-second windows, i.e. the full ten
// minute validity); the expiry check bounds acceptance, not the search.
const (
	defaultTempTolerance     = 150
	defaultUseCountTolerance = 2
	defaultDurationTolerance = 2
	defaultPeriodTolerance   = 1
)

// Engine derives and verifies codes. It is stateless apart from its clock and
// safe for concurrent use; every method is a pure function of its arguments
// and the current time.
type Engine struct {
	// Clock returns the wall-clock time. Defaults to time.Now; override it in
	// tests that need to sit on a window boundary.
	Clock func() time.Time
}

// New returns an Engine reading the real wall clock.
func New() *Engine {
	return &Engine{Clock: time.Now}
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Generate mints a code for the given scheme. The offset (seconds) shifts the
// effective clock; verification must be called with the same offset to agree.
func (e *Engine) Generate(secret string, scheme Scheme, offsetSeconds int64) (Credential, error) {
	switch s := scheme.(type) {
	case Temporary:
		return e.generateTemporary(secret, offsetSeconds)
	case UseCountLimited:
		return e.generateUseCount(secret, s.Count, offsetSeconds)
	case DurationLimited:
		return e.generateDuration(secret, s.Hours, s.Minutes, offsetSeconds)
	case AbsolutePeriod:
		return e.generatePeriod(secret, s, offsetSeconds)
	default:
		return Credential{}, ErrUnknownScheme
	}
}

// Verify tries all four schemes in a fixed order (temporary, use-count,
// duration, period) and reports the first still-valid match. A false result
// deliberately conflates "wrong secret", "expired" and "garbage input".
func (e *Engine) Verify(code, secret string, offsetSeconds int64) (Match, bool) {
	if m, ok := e.VerifyTemporary(code, secret, offsetSeconds, defaultTempTolerance); ok {
		return m, true
	}
	if m, ok := e.VerifyUseCount(code, secret, offsetSeconds, defaultUseCountTolerance); ok {
		return m, true
	}
	if m, ok := e.VerifyDuration(code, secret, offsetSeconds, defaultDurationTolerance); ok {
		return m, true
	}
	if m, ok := e.VerifyPeriod(code, secret, offsetSeconds, defaultPeriodTolerance); ok {
		return m, true
	}
	return Match{}, false
}

// Remaining reports how long the code stays valid, by re-running verification
// and subtracting now from the recovered expiry.
func (e *Engine) Remaining(code, secret string, offsetSeconds int64) (time.Duration, bool) {
	m, ok := e.Verify(code, secret, offsetSeconds)
	if !ok {
		return 0, false
	}
	now := time.UnixMilli(timex.Millis(e.now(), offsetSeconds))
	left := m.ExpiresAt.Sub(now)
	if left <= 0 {
		return 0, false
	}
	return left, true
}

func validSecret(secret string) bool { return len(secret) >= minSecretLen }

// formatCode renders a raw cipher word as the final code string.
func formatCode(word uint32) string {
	return strconv.FormatUint(codePrefix+uint64(word), 10)
}

// parseCode strips the prefix from a code string and recovers the raw cipher
// word. It rejects anything that is not a decimal in the representable range.
func parseCode(code string) (uint32, bool) {
	n, err := strconv.ParseUint(code, 10, 64)
	if err != nil || n < codePrefix {
		return 0, false
	}
	word := n - codePrefix
	if word > math.MaxUint32 {
		return 0, false
	}
	return uint32(word), true
}
