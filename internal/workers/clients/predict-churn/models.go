// internal/workers/clients/predict-churn/models.go
package predictchurn

import "credit-workers/internal/models"

type Input struct {
	OrganizationID string                `json:"organizationId"`
	ClientID       string                `json:"clientId"`
	HorizonDays    int                   `json:"horizonDays,omitempty"`
	Client         *models.Client        `json:"client,omitempty"`
	History        *models.ClientHistory `json:"clientHistory,omitempty"`
}

type Output struct {
	ClientID           string              `json:"clientId"`
	ChurnProbability   float64             `json:"churnProbability"`
	RiskLevel          string              `json:"riskLevel"`
	Confidence         float64             `json:"confidence"`
	HorizonDays        int                 `json:"horizonDays"`
	Factors            []models.RiskFactor `json:"riskFactors"`
	RecommendedActions []string            `json:"recommendedActions"`
	Fallback           bool                `json:"fallbackUsed,omitempty"`
}
