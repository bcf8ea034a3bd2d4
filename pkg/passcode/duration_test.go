package passcode_test

import (
	"testing"
	"time"

	"github.com/nekohouse/doorcode/pkg/passcode"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	t.Parallel()

	t.Run("parameters round trip", func(t *testing.T) {
		e := engineAt(fixedNow)
		for _, d := range []passcode.DurationLimited{
			{Hours: 0, Minutes: 30},
			{Hours: 1, Minutes: 0},
			{Hours: 2, Minutes: 30},
			{Hours: 24, Minutes: 0},
			{Hours: 127, Minutes: 30},
		} {
			cred, err := e.Generate("123456", d, 0)
			require.NoError(t, err)

			m, ok := e.VerifyDuration(cred.Code, "123456", 0, 2)
			require.True(t, ok, "%+v", d)
			require.Equal(t, d, m.Scheme)
		}
	})

	t.Run("half hour boundary behaviour", func(t *testing.T) {
		// fixedNow sits exactly on a 30-minute window boundary, so a
		// 30-minute code expires exactly 30 minutes in.
		cred, err := engineAt(fixedNow).Generate("123456", passcode.DurationLimited{Hours: 0, Minutes: 30}, 0)
		require.NoError(t, err)

		before := engineAt(fixedNow.Add(30*time.Minute - time.Second))
		_, ok := before.VerifyDuration(cred.Code, "123456", 0, 2)
		require.True(t, ok)

		after := engineAt(fixedNow.Add(30*time.Minute + time.Second))
		_, ok = after.VerifyDuration(cred.Code, "123456", 0, 2)
		require.False(t, ok)
	})

	t.Run("expiry follows the requested duration", func(t *testing.T) {
		e := engineAt(fixedNow)
		cred, err := e.Generate("123456", passcode.DurationLimited{Hours: 2, Minutes: 30}, 0)
		require.NoError(t, err)

		m, ok := e.VerifyDuration(cred.Code, "123456", 0, 0)
		require.True(t, ok)
		require.Equal(t, fixedNow.Add(2*time.Hour+30*time.Minute).UnixMilli(), m.ExpiresAt.UnixMilli())
	})

	t.Run("wrong secret never matches", func(t *testing.T) {
		e := engineAt(fixedNow)
		cred, err := e.Generate("123456", passcode.DurationLimited{Hours: 1, Minutes: 0}, 0)
		require.NoError(t, err)

		_, ok := e.VerifyDuration(cred.Code, "654321", 0, 2)
		require.False(t, ok)
	})
}
