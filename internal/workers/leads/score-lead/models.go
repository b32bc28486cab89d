// internal/workers/leads/score-lead/models.go
package scorelead

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string                 `json:"organizationId"`
	LeadID         string                 `json:"leadId"`
	Lead           *models.Lead           `json:"lead,omitempty"`
	Profile        *models.ScoringProfile `json:"scoringProfile,omitempty"`
}

type Output struct {
	LeadID             string                  `json:"leadId"`
	Score              float64                 `json:"score"`
	RawScore           float64                 `json:"rawScore"`
	MaxPossible        float64                 `json:"maxPossibleScore"`
	Confidence         float64                 `json:"confidence"`
	Status             string                  `json:"qualificationStatus"`
	ProfileName        string                  `json:"profileUsed"`
	CriteriaScores     []models.CriterionScore `json:"criteriaScores"`
	RecommendedActions []string                `json:"recommendedActions"`
	Reasoning          []string                `json:"reasoning,omitempty"`
	ResultID           string                  `json:"resultId,omitempty"`
	ScoredAt           string                  `json:"scoredAt"`
}

func (o *Output) toLeadScore(result models.ScoreResult, status models.QualificationStatus) models.LeadScore {
	return models.LeadScore{
		LeadID:             o.LeadID,
		ProfileName:        o.ProfileName,
		Result:             result,
		Status:             status,
		RecommendedActions: o.RecommendedActions,
		ScoredAt:           o.ScoredAt,
	}
}
