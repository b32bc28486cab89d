// internal/workers/billing/advance-dunning/config.go
package advancedunning

import "time"

type Config struct {
	FromEmail string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		FromEmail: "billing@creditbeast.com",
		Timeout:   30 * time.Second,
	}
}
