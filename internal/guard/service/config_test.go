package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DOORCODE_SECRET", "31337008")
	t.Setenv("DOORCODE_SEAL_KEY", "seal")
	t.Setenv("DOORCODE_TIME_OFFSET", "-3600")
	t.Setenv("DOORCODE_REISSUE_INTERVAL", "10m")
	t.Setenv("DOORCODE_RETAIN_FOR", "90") // bare integer is minutes
	t.Setenv("DOORCODE_CHECK_RATE", "not-a-number")

	cfg := LoadConfig()
	require.Equal(t, "31337008", cfg.Secret)
	require.Equal(t, "seal", cfg.SealKey)
	require.EqualValues(t, -3600, cfg.TimeOffset)
	require.Equal(t, 10*time.Minute, cfg.ReissueInterval)
	require.Equal(t, 90*time.Minute, cfg.RetainFor)
	require.Equal(t, 10, cfg.CheckRate) // unparseable falls back to default
	require.Equal(t, "doorcode.db", cfg.DatabaseFile)
	require.Equal(t, "dev", cfg.Env)
}
