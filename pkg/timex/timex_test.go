package timex_test

import (
	"testing"
	"time"

	"github.com/nekohouse/doorcode/pkg/timex"
	"github.com/stretchr/testify/require"
)

func TestMillis(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, at.UnixMilli(), timex.Millis(at, 0))
	require.Equal(t, at.UnixMilli()+180_000, timex.Millis(at, 180))
	require.Equal(t, at.UnixMilli()-60_000, timex.Millis(at, -60))
}

func TestFormatMillis(t *testing.T) {
	t.Parallel()

	// 2025-06-01 00:00:00 UTC is 08:00:00 in UTC+8.
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "2025-06-01 08:00:00", timex.FormatMillis(at.UnixMilli()))
	require.Equal(t, "2025-06-01 08:00:00", timex.FormatUnix(at.Unix()))
}
