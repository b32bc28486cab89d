// internal/models/billing.go
package models

import "time"

// BackoffPolicy names a retry delay curve.
type BackoffPolicy string

const (
	BackoffFixed       BackoffPolicy = "fixed"
	BackoffLinear      BackoffPolicy = "linear"
	BackoffExponential BackoffPolicy = "exponential"
)

type FailedPayment struct {
	ID            string `json:"id"`
	ClientID      string `json:"clientId,omitempty"`
	InvoiceID     string `json:"invoiceId,omitempty"`
	AmountCents   int64  `json:"amountCents"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
	RetryCount    int    `json:"retryCount"`
	Status        string `json:"status,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
}

// AmountTier maps a payment amount band to a retry strategy.
// Nil bounds mean unbounded in that direction.
type AmountTier struct {
	Name            string        `json:"name"`
	MinAmount       *float64      `json:"minAmount,omitempty"`
	MaxAmount       *float64      `json:"maxAmount,omitempty"`
	Strategy        BackoffPolicy `json:"strategy"`
	DelayMultiplier float64       `json:"delayMultiplier"`
}

// RetryConfig is the organization's retry strategy configuration.
type RetryConfig struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Strategy          BackoffPolicy `json:"strategy"`
	InitialDelayHours int           `json:"initialDelayHours"`
	MaxRetries        int           `json:"maxRetries"`
	Tiers             []AmountTier  `json:"amountTiers"`
	Active            bool          `json:"active"`
}

// RetryPlan is the computed strategy for one failed payment.
type RetryPlan struct {
	RetryCount           int           `json:"retryCount"`
	NextRetryDate        time.Time     `json:"nextRetryDate"`
	Strategy             BackoffPolicy `json:"strategy"`
	Tier                 string        `json:"amountTier,omitempty"`
	AmountToCharge       int64         `json:"amountToCharge"`
	PaymentMethod        string        `json:"paymentMethod"`
	DunningStep          *int          `json:"dunningEmailSequence,omitempty"`
	EstimatedSuccessRate float64       `json:"estimatedSuccessRate"`
}

// InvoiceRetryPlan is the fixed-ladder dunning decision for an invoice.
type InvoiceRetryPlan struct {
	Action        string     `json:"action"`
	AttemptCount  int        `json:"attemptCount"`
	NextRetryDate *time.Time `json:"nextRetryDate,omitempty"`
	RetryDays     int        `json:"retryDays,omitempty"`
	EmailSubject  string     `json:"emailSubject,omitempty"`
}
