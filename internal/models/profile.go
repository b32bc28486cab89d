// internal/models/profile.go
package models

// CriterionKind identifies which evaluator scores a criterion.
type CriterionKind string

const (
	CriterionEmailDomain      CriterionKind = "email_domain"
	CriterionPhoneFormat      CriterionKind = "phone_format"
	CriterionAddressValidity  CriterionKind = "address_validity"
	CriterionUTMSource        CriterionKind = "utm_source"
	CriterionLeadSource       CriterionKind = "lead_source"
	CriterionNameCompleteness CriterionKind = "name_completeness"
	CriterionCreditConcern    CriterionKind = "credit_concern_level"
	CriterionDemographicFit   CriterionKind = "demographic_fit"
)

// Criterion is one weighted rule inside a scoring profile.
// Pattern is an optional regex override; only the phone_format
// evaluator consults it.
type Criterion struct {
	Kind           CriterionKind `json:"kind"`
	Weight         float64       `json:"weight"`
	Threshold      float64       `json:"threshold"`
	Pattern        string        `json:"pattern,omitempty"`
	PositiveValues []string      `json:"positiveValues,omitempty"`
	NegativeValues []string      `json:"negativeValues,omitempty"`
}

// ScoringProfile bundles criteria with classification thresholds.
type ScoringProfile struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Criteria            []Criterion `json:"criteria"`
	QualifyThreshold    float64     `json:"qualifyThreshold"`
	ReviewThreshold     float64     `json:"reviewThreshold"`
	DisqualifyThreshold float64     `json:"disqualifyThreshold"`
	Active              bool        `json:"active"`
}
