// internal/workers/billing/plan-payment-retry/config.go
package planpaymentretry

import "time"

type Config struct {
	// Seed values for the fallback strategy when an organization has no
	// retry configuration of its own.
	InitialDelayHours int
	MaxRetries        int
	Timeout           time.Duration
}

func LoadConfig() *Config {
	return &Config{
		InitialDelayHours: 24,
		MaxRetries:        3,
		Timeout:           30 * time.Second,
	}
}
