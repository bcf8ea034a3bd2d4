package ratex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKeyedAllow(t *testing.T) {
	t.Parallel()

	t.Run("burst then blocked", func(t *testing.T) {
		t.Parallel()

		k := NewKeyed(1, time.Hour, 3)
		for i := 0; i < 3; i++ {
			require.True(t, k.Allow("alice"), "attempt %d within burst", i)
		}
		require.False(t, k.Allow("alice"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		k := NewKeyed(1, time.Hour, 1)
		require.True(t, k.Allow("alice"))
		require.False(t, k.Allow("alice"))
		require.True(t, k.Allow("bob"))
	})

	t.Run("refills over time", func(t *testing.T) {
		t.Parallel()

		k := NewKeyed(100, time.Second, 1)
		require.True(t, k.Allow("carol"))
		require.False(t, k.Allow("carol"))
		time.Sleep(30 * time.Millisecond)
		require.True(t, k.Allow("carol"))
	})
}
