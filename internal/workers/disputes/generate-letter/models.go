// internal/workers/disputes/generate-letter/models.go
package generateletter

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string          `json:"organizationId"`
	DisputeID      string          `json:"disputeId"`
	Dispute        *models.Dispute `json:"dispute,omitempty"`
	Client         *models.Client  `json:"client,omitempty"`
}

type Output struct {
	DisputeID        string   `json:"disputeId"`
	LetterID         string   `json:"letterId,omitempty"`
	TemplateID       string   `json:"templateId"`
	TemplateName     string   `json:"templateUsed"`
	Content          string   `json:"letterContent"`
	VariablesUsed    []string `json:"variablesUsed,omitempty"`
	MissingVariables []string `json:"missingVariables,omitempty"`
	GeneratedAt      string   `json:"generatedAt"`
	BuiltinUsed      bool     `json:"builtinTemplateUsed,omitempty"`
}
