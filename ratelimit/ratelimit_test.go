package ratelimit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/soc2scan/ratelimit"
	"github.com/c360studio/soc2scan/soc2err"
)

func TestAllowWithinBurst(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Enabled: true, RefillPerSecond: 1, Burst: 3})
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Allow())
	}
}

func TestAllowExceeded(t *testing.T) {
	l := ratelimit.New(ratelimit.Config{Enabled: true, RefillPerSecond: 0.001, Burst: 1})
	require.NoError(t, l.Allow())

	err := l.Allow()
	require.Error(t, err)
	var rle *soc2err.RateLimitExceeded
	require.ErrorAs(t, err, &rle)
}

func TestDisabledViaEnv(t *testing.T) {
	t.Setenv(ratelimit.DisableEnvVar, "1")
	l := ratelimit.New(ratelimit.Config{Enabled: true, RefillPerSecond: 0.0001, Burst: 1})
	for i := 0; i < 10; i++ {
		assert.NoError(t, l.Allow())
	}
}
