package passcode_test

import (
	"testing"
	"time"

	"github.com/nekohouse/doorcode/pkg/passcode"
	"github.com/stretchr/testify/require"
)

// fixedNow is an arbitrary reference instant (2025-03-15 18:30:00 UTC+8) used
// so window math in tests is deterministic.
var fixedNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

func engineAt(at time.Time) *passcode.Engine {
	e := passcode.New()
	e.Clock = func() time.Time { return at }
	return e
}

func TestCodeFormat(t *testing.T) {
	t.Parallel()

	e := engineAt(fixedNow)
	schemes := []passcode.Scheme{
		passcode.Temporary{},
		passcode.UseCountLimited{Count: 5},
		passcode.DurationLimited{Hours: 2, Minutes: 30},
		passcode.AbsolutePeriod{Year: 2025, Month: time.March, Day: 20, Hour: 18},
	}

	for _, scheme := range schemes {
		t.Run(scheme.Describe(), func(t *testing.T) {
			cred, err := e.Generate("123456", scheme, 0)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(cred.Code), 10)
			// The 5e9 prefix pins the leading digit to 5..9, not 5 alone:
			// cipher words of 1e9 and up carry into 6..9.
			require.True(t, cred.Code[0] >= '5' && cred.Code[0] <= '9',
				"code %q leading digit outside 5..9", cred.Code)
			for i := 0; i < len(cred.Code); i++ {
				require.True(t, cred.Code[i] >= '0' && cred.Code[i] <= '9',
					"code %q contains non-digit", cred.Code)
			}
			require.NotEmpty(t, cred.ExpiresAt)
			require.NotEmpty(t, cred.Message)
		})
	}
}

func TestVerifyDispatch(t *testing.T) {
	t.Parallel()

	e := engineAt(fixedNow)

	t.Run("temporary round trip", func(t *testing.T) {
		cred, err := e.Generate("123456", passcode.Temporary{}, 0)
		require.NoError(t, err)

		m, ok := e.Verify(cred.Code, "123456", 0)
		require.True(t, ok)
		require.Equal(t, passcode.Temporary{}, m.Scheme)
	})

	t.Run("use count round trip recovers count", func(t *testing.T) {
		cred, err := e.Generate("123456", passcode.UseCountLimited{Count: 5}, 0)
		require.NoError(t, err)

		m, ok := e.Verify(cred.Code, "123456", 0)
		require.True(t, ok)
		require.Equal(t, passcode.UseCountLimited{Count: 5}, m.Scheme)

		_, ok = e.Verify(cred.Code, "654321", 0)
		require.False(t, ok)
	})

	t.Run("duration round trip recovers parameters", func(t *testing.T) {
		cred, err := e.Generate("123456", passcode.DurationLimited{Hours: 127, Minutes: 30}, 0)
		require.NoError(t, err)

		m, ok := e.Verify(cred.Code, "123456", 0)
		require.True(t, ok)
		require.Equal(t, passcode.DurationLimited{Hours: 127, Minutes: 30}, m.Scheme)
	})

	t.Run("period round trip recovers end instant", func(t *testing.T) {
		cred, err := e.Generate("123456", passcode.AbsolutePeriod{
			Year: 2025, Month: time.March, Day: 16, Hour: 8,
		}, 0)
		require.NoError(t, err)

		m, ok := e.Verify(cred.Code, "123456", 0)
		require.True(t, ok)
		require.Equal(t, passcode.AbsolutePeriod{
			Year: 2025, Month: time.March, Day: 16, Hour: 8,
		}, m.Scheme)
	})

	t.Run("garbage input never matches", func(t *testing.T) {
		for _, code := range []string{"", "abc", "1234567890", "4999999999"} {
			_, ok := e.Verify(code, "123456", 0)
			require.False(t, ok, "code %q", code)
		}
	})
}

func TestGenerateValidation(t *testing.T) {
	t.Parallel()

	e := engineAt(fixedNow)

	cases := []struct {
		name   string
		secret string
		scheme passcode.Scheme
		want   error
	}{
		{"short secret", "123", passcode.Temporary{}, passcode.ErrSecretTooShort},
		{"count too low", "123456", passcode.UseCountLimited{Count: 0}, passcode.ErrCountOutOfRange},
		{"count too high", "123456", passcode.UseCountLimited{Count: 32}, passcode.ErrCountOutOfRange},
		{"hours too high", "123456", passcode.DurationLimited{Hours: 128}, passcode.ErrHoursOutOfRange},
		{"invalid minutes", "123456", passcode.DurationLimited{Hours: 1, Minutes: 15}, passcode.ErrInvalidMinutes},
		{"impossible date", "123456", passcode.AbsolutePeriod{Year: 2025, Month: time.February, Day: 30, Hour: 0}, passcode.ErrInvalidDate},
		{"month out of range", "123456", passcode.AbsolutePeriod{Year: 2025, Month: 13, Day: 1, Hour: 0}, passcode.ErrInvalidDate},
		{"end in the past", "123456", passcode.AbsolutePeriod{Year: 2020, Month: time.January, Day: 1, Hour: 0}, passcode.ErrEndNotInFuture},
		{"nil scheme", "123456", nil, passcode.ErrUnknownScheme},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Generate(tc.secret, tc.scheme, 0)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	gen := engineAt(fixedNow)
	cred, err := gen.Generate("123456", passcode.Temporary{}, 0)
	require.NoError(t, err)

	t.Run("strictly decreases over time", func(t *testing.T) {
		first, ok := engineAt(fixedNow.Add(10 * time.Second)).Remaining(cred.Code, "123456", 0)
		require.True(t, ok)
		second, ok := engineAt(fixedNow.Add(30 * time.Second)).Remaining(cred.Code, "123456", 0)
		require.True(t, ok)
		require.Less(t, second, first)
	})

	t.Run("gone once expired", func(t *testing.T) {
		_, ok := engineAt(fixedNow.Add(11 * time.Minute)).Remaining(cred.Code, "123456", 0)
		require.False(t, ok)
	})
}

func TestTimeOffset(t *testing.T) {
	t.Parallel()

	const offset = int64(86_400) // one day
	e := engineAt(fixedNow)

	schemes := []passcode.Scheme{
		passcode.Temporary{},
		passcode.UseCountLimited{Count: 5},
		passcode.DurationLimited{Hours: 2, Minutes: 30},
		passcode.AbsolutePeriod{Year: 2025, Month: time.March, Day: 20, Hour: 18},
	}

	for _, scheme := range schemes {
		t.Run(scheme.Describe(), func(t *testing.T) {
			plain, err := e.Generate("123456", scheme, 0)
			require.NoError(t, err)
			shifted, err := e.Generate("123456", scheme, offset)
			require.NoError(t, err)

			// The offset shifts the window, so the codes must differ, and a
			// shifted code only verifies under the same offset.
			require.NotEqual(t, plain.Code, shifted.Code)

			_, ok := e.Verify(shifted.Code, "123456", offset)
			require.True(t, ok)
			_, ok = e.Verify(shifted.Code, "123456", 0)
			require.False(t, ok)
		})
	}
}
