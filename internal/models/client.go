// internal/models/client.go
package models

import "time"

// RiskLevel buckets a churn probability or a single risk factor.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

type Client struct {
	ID        string     `json:"id"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	City      string     `json:"city,omitempty"`
	State     string     `json:"state,omitempty"`
	Zip       string     `json:"zip,omitempty"`
	SSN       string     `json:"ssn,omitempty"`
	DOB       string     `json:"dob,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type ClientPreferences struct {
	PrefersFrequentUpdates bool    `json:"prefersFrequentUpdates,omitempty"`
	ResponsivenessScore    float64 `json:"responsivenessScore,omitempty"`
}

// EmailRecord is one row of a client's communication history.
type EmailRecord struct {
	Status     string     `json:"status,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	BodyText   string     `json:"bodyText,omitempty"`
	OpenedAt   *time.Time `json:"openedAt,omitempty"`
	ClickCount int        `json:"clickCount,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// PaymentRecord is one row of a client's payment history.
type PaymentRecord struct {
	Status    string    `json:"status,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DisputeRecord is one row of a client's dispute history.
type DisputeRecord struct {
	Result    string    `json:"result,omitempty"`
	Bureau    string    `json:"bureau,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DocumentRecord is one row of a client's document activity.
type DocumentRecord struct {
	CreatedAt time.Time `json:"createdAt"`
}

// ClientHistory is the raw history bundle churn prediction analyzes.
type ClientHistory struct {
	Disputes       []DisputeRecord  `json:"disputes"`
	Payments       []PaymentRecord  `json:"payments"`
	Communications []EmailRecord    `json:"communications"`
	Documents      []DocumentRecord `json:"documents"`
}

// RiskFactor is one weighted observation contributing to churn risk.
type RiskFactor struct {
	Name         string    `json:"factorName"`
	Description  string    `json:"description"`
	Weight       float64   `json:"weight"`
	CurrentValue string    `json:"currentValue"`
	RiskLevel    RiskLevel `json:"riskLevel"`
	ImpactScore  float64   `json:"impactScore"`
}

// ChurnPrediction is the per-client churn assessment.
type ChurnPrediction struct {
	ClientID           string       `json:"clientId"`
	ChurnProbability   float64      `json:"churnProbability"`
	RiskLevel          RiskLevel    `json:"riskLevel"`
	Confidence         float64      `json:"confidence"`
	HorizonDays        int          `json:"horizonDays"`
	Factors            []RiskFactor `json:"factors,omitempty"`
	RecommendedActions []string     `json:"recommendedActions,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// ChurnSummary aggregates a batch of predictions.
type ChurnSummary struct {
	CriticalRiskCount       int               `json:"criticalRiskCount"`
	HighRiskCount           int               `json:"highRiskCount"`
	MediumRiskCount         int               `json:"mediumRiskCount"`
	LowRiskCount            int               `json:"lowRiskCount"`
	AverageChurnProbability float64           `json:"averageChurnProbability"`
	RevenueAtRisk           float64           `json:"revenueAtRisk"`
	RiskDistribution        map[RiskLevel]int `json:"riskDistribution"`
}
