// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Engine        EngineConfig            `mapstructure:"engine"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	EmailIndex string   `mapstructure:"email_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Engine Tunables ---

// EngineConfig holds tunable parameters for the decision engines.
type EngineConfig struct {
	Churn   ChurnEngineConfig   `mapstructure:"churn"`
	Scoring ScoringEngineConfig `mapstructure:"scoring"`
	Retry   RetryEngineConfig   `mapstructure:"retry"`
}

// ChurnEngineConfig controls the logistic transform that maps aggregate
// weighted risk into a churn probability.
type ChurnEngineConfig struct {
	SigmoidSteepness        float64 `mapstructure:"sigmoid_steepness"`
	SigmoidMidpoint         float64 `mapstructure:"sigmoid_midpoint"`
	MonthlyRevenuePerClient float64 `mapstructure:"monthly_revenue_per_client"`
}

// ScoringEngineConfig controls lead qualification threshold handling.
type ScoringEngineConfig struct {
	LowConfidenceQualifyPenalty float64 `mapstructure:"low_confidence_qualify_penalty"`
	LowConfidenceReviewPenalty  float64 `mapstructure:"low_confidence_review_penalty"`
}

// RetryEngineConfig seeds the payment retry strategy when an organization
// has no retry configuration of its own.
type RetryEngineConfig struct {
	InitialDelayHours int `mapstructure:"initial_delay_hours"`
	MaxRetries        int `mapstructure:"max_retries"`
}

// NotificationConfig holds settings for dunning email/SMS delivery.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled       bool   `mapstructure:"enabled"`
		FinalStepOnly bool   `mapstructure:"final_step_only"`
		DefaultSender string `mapstructure:"default_sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
