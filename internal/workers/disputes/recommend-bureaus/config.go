// internal/workers/disputes/recommend-bureaus/config.go
package recommendbureaus

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
