// internal/workers/clients/predict-churn/config.go
package predictchurn

import "time"

type Config struct {
	HorizonDays int
	Timeout     time.Duration
}

func LoadConfig() *Config {
	return &Config{
		HorizonDays: 30,
		Timeout:     30 * time.Second,
	}
}
