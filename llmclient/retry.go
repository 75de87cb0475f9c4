package llmclient

import "time"

// RetryConfig lifts the retry policy to a configuration record rather than
// hardcoded magic numbers, per Design Notes. Grounded on llm/retry.go's
// RetryConfig/DefaultRetryConfig shape.
type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	// Jitter is the fractional +/- randomization applied to each backoff,
	// e.g. 0.25 for +/-25%.
	Jitter float64
}

// DefaultRetryConfig mirrors llm.DefaultRetryConfig's values.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
		Jitter:            0.25,
	}
}
