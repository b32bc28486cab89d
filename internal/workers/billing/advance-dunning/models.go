// internal/workers/billing/advance-dunning/models.go
package advancedunning

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string                `json:"organizationId"`
	PaymentID      string                `json:"failedPaymentId"`
	Payment        *models.FailedPayment `json:"failedPayment,omitempty"`
	Client         *models.Client        `json:"client,omitempty"`
}

type Output struct {
	PaymentID          string `json:"failedPaymentId"`
	Action             string `json:"action"`
	StepNumber         int    `json:"stepNumber,omitempty"`
	Channel            string `json:"channel,omitempty"`
	ProviderMessageID  string `json:"providerMessageId,omitempty"`
	NextCheckAt        string `json:"nextCheckAt,omitempty"`
	EscalationRequired bool   `json:"escalationRequired,omitempty"`
	AttemptCount       int    `json:"attemptCount,omitempty"`
	NextRetryDate      string `json:"nextRetryDate,omitempty"`
	EmailSubject       string `json:"emailSubject,omitempty"`
	Fallback           bool   `json:"fallbackUsed,omitempty"`
}
