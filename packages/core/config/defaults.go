package config

import "time"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Database:    "test_results.db",
		Environment: "dev",
		Retry: &RetryConfig{
			TimeoutMS:  10000, // 10 seconds
			IntervalMS: 500,
		},
		Log: &LogConfig{
			Level: "info",
		},
	}
}

// RetryTimeout returns the configured retry timeout as a duration.
func (c *Config) RetryTimeout() time.Duration {
	if c.Retry == nil || c.Retry.TimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Retry.TimeoutMS) * time.Millisecond
}

// RetryInterval returns the configured retry poll interval as a duration.
func (c *Config) RetryInterval() time.Duration {
	if c.Retry == nil || c.Retry.IntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Retry.IntervalMS) * time.Millisecond
}
