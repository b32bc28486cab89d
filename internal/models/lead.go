// internal/models/lead.go
package models

// QualificationStatus is the routing outcome of lead scoring.
type QualificationStatus string

const (
	StatusAutoQualified    QualificationStatus = "auto_qualified"
	StatusReviewRequired   QualificationStatus = "review_required"
	StatusAutoDisqualified QualificationStatus = "auto_disqualified"
	StatusManualReview     QualificationStatus = "manual_review"
)

type Lead struct {
	ID           string                 `json:"id"`
	FirstName    string                 `json:"firstName,omitempty"`
	LastName     string                 `json:"lastName,omitempty"`
	Email        string                 `json:"email,omitempty"`
	Phone        string                 `json:"phone,omitempty"`
	Address      string                 `json:"address,omitempty"`
	City         string                 `json:"city,omitempty"`
	State        string                 `json:"state,omitempty"`
	Zip          string                 `json:"zip,omitempty"`
	UTMSource    string                 `json:"utmSource,omitempty"`
	LeadSource   string                 `json:"leadSource,omitempty"`
	CustomFields map[string]interface{} `json:"customFields,omitempty"`
	CreatedAt    string                 `json:"createdAt,omitempty"`
}

// CriterionScore is the evaluation of one criterion against a lead.
type CriterionScore struct {
	Kind          CriterionKind `json:"kind"`
	RawScore      float64       `json:"rawScore"`
	WeightedScore float64       `json:"weightedScore"`
	Weight        float64       `json:"weight"`
	Reasoning     []string      `json:"reasoning,omitempty"`
}

// ScoreResult is the aggregate of all criterion evaluations for a lead.
type ScoreResult struct {
	NormalizedScore float64          `json:"normalizedScore"`
	RawScore        float64          `json:"rawScore"`
	MaxPossible     float64          `json:"maxPossible"`
	Confidence      float64          `json:"confidence"`
	CriteriaScores  []CriterionScore `json:"criteriaScores"`
	Reasoning       []string         `json:"reasoning,omitempty"`
}

// LeadScore is the full scoring outcome for a lead.
type LeadScore struct {
	LeadID             string              `json:"leadId"`
	ProfileName        string              `json:"profileName"`
	Result             ScoreResult         `json:"result"`
	Status             QualificationStatus `json:"status"`
	RecommendedActions []string            `json:"recommendedActions,omitempty"`
	ScoredAt           string              `json:"scoredAt"`
}
