// internal/workers/disputes/recommend-bureaus/models.go
package recommendbureaus

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string          `json:"organizationId"`
	DisputeID      string          `json:"disputeId"`
	Dispute        *models.Dispute `json:"dispute,omitempty"`
}

type Output struct {
	DisputeID          string   `json:"disputeId"`
	RecommendedBureaus []string `json:"recommendedBureaus"`
	Confidence         float64  `json:"confidenceScore"`
	RuleApplied        string   `json:"ruleApplied"`
	Alternatives       []string `json:"alternatives,omitempty"`
	Reasoning          []string `json:"reasoning,omitempty"`
	Fallback           bool     `json:"fallbackUsed,omitempty"`
}
