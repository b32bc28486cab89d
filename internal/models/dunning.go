// internal/models/dunning.go
package models

import "time"

// DunningAction is what the sequencer decided for a step.
type DunningAction string

const (
	DunningSendStep         DunningAction = "send_step"
	DunningWait             DunningAction = "wait"
	DunningSequenceComplete DunningAction = "sequence_complete"
)

// DunningStep is one configured escalation step.
type DunningStep struct {
	StepNumber       int      `json:"stepNumber"`
	EmailTemplateKey string   `json:"emailTemplateKey"`
	Subject          string   `json:"subject,omitempty"`
	BodyHTML         string   `json:"bodyHtml,omitempty"`
	Channel          string   `json:"channel,omitempty"`
	DelayHours       int      `json:"delayHours"`
	MinAmount        *float64 `json:"minAmount,omitempty"`
	IsFinal          bool     `json:"isFinal"`
	Active           bool     `json:"active"`
}

// DunningSequenceState tracks a failed payment's sequence position.
// The step number never regresses.
type DunningSequenceState struct {
	FailedPaymentID string     `json:"failedPaymentId"`
	CurrentStep     int        `json:"currentStep"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	LastStepAt      *time.Time `json:"lastStepAt,omitempty"`
}
