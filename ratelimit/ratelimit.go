// Package ratelimit throttles IPC operations with a token bucket, built
// on golang.org/x/time/rate the way rhel/internal/common.Updater gates
// its fetch calls with a rate.Limiter.
package ratelimit

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360studio/soc2scan/soc2err"
)

// DisableEnvVar, when set to any non-empty value, disables rate limiting
// entirely. Tests that hammer an operation in a tight loop set this
// rather than threading a bypass flag through every call site.
const DisableEnvVar = "SOC2SCAN_DISABLE_RATE_LIMIT"

// Config configures a Limiter.
type Config struct {
	Enabled bool
	// RefillPerSecond is the steady-state rate new tokens are added.
	RefillPerSecond float64
	// Burst is the bucket capacity, the largest allowed instantaneous
	// spike above the refill rate.
	Burst int
}

// DefaultConfig allows roughly one operation per second with short
// bursts up to 5.
func DefaultConfig() Config {
	return Config{Enabled: true, RefillPerSecond: 1, Burst: 5}
}

// Limiter wraps a rate.Limiter with the enabled/disabled switch and the
// soc2err.RateLimitExceeded error shape IPC callers expect.
type Limiter struct {
	limiter *rate.Limiter
	enabled bool
}

// New constructs a Limiter from cfg. If the disable env var is set, the
// returned Limiter allows everything regardless of cfg.Enabled.
func New(cfg Config) *Limiter {
	enabled := cfg.Enabled && os.Getenv(DisableEnvVar) == ""
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RefillPerSecond), cfg.Burst),
		enabled: enabled,
	}
}

// Allow reports whether the caller may proceed now, consuming a token if
// so. It returns a *soc2err.RateLimitExceeded carrying the wait duration
// until the next token would be available when the caller should back
// off.
func (l *Limiter) Allow() error {
	if !l.enabled {
		return nil
	}
	r := l.limiter.ReserveN(time.Now(), 1)
	if !r.OK() {
		return &soc2err.RateLimitExceeded{RetryAfter: "unknown"}
	}
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	r.Cancel()
	return &soc2err.RateLimitExceeded{RetryAfter: fmt.Sprintf("%.3fs", delay.Seconds())}
}
