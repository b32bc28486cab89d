// internal/workers/billing/plan-payment-retry/models.go
package planpaymentretry

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string                `json:"organizationId"`
	PaymentID      string                `json:"failedPaymentId"`
	Payment        *models.FailedPayment `json:"failedPayment,omitempty"`
}

type Output struct {
	PaymentID            string  `json:"failedPaymentId"`
	Action               string  `json:"action"`
	RetryCount           int     `json:"retryCount"`
	NextRetryDate        string  `json:"nextRetryDate,omitempty"`
	Strategy             string  `json:"strategy,omitempty"`
	Tier                 string  `json:"amountTier,omitempty"`
	AmountToCharge       int64   `json:"amountToCharge,omitempty"`
	PaymentMethod        string  `json:"paymentMethod,omitempty"`
	EstimatedSuccessRate float64 `json:"estimatedSuccessRate,omitempty"`
	Fallback             bool    `json:"fallbackUsed,omitempty"`
}
