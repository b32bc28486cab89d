// internal/workers/disputes/schedule-round/models.go
package scheduleround

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string                    `json:"organizationId"`
	DisputeID      string                    `json:"disputeId"`
	Dispute        *models.Dispute           `json:"dispute,omitempty"`
	Preferences    *models.ClientPreferences `json:"clientPreferences,omitempty"`
}

type Output struct {
	DisputeID                   string  `json:"disputeId"`
	NextRound                   int     `json:"nextRound"`
	ScheduledDate               string  `json:"scheduledDate"`
	RuleApplied                 string  `json:"ruleApplied"`
	FollowUpStrategy            string  `json:"followUpStrategy"`
	TaskID                      string  `json:"taskId,omitempty"`
	EstimatedSuccessProbability float64 `json:"estimatedSuccessProbability"`
	Fallback                    bool    `json:"fallbackUsed,omitempty"`
}
