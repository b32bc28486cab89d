// Package scoring aggregates weighted criterion evaluations into a
// normalized 0-10 lead score, classifies it against profile thresholds
// and derives recommended actions.
package scoring

import (
	"math"
	"strings"

	"credit-workers/internal/engine/criteria"
	"credit-workers/internal/models"
)

// Config holds the tunable classification parameters.
type Config struct {
	// Threshold reductions applied when confidence < 0.5.
	LowConfidenceQualifyPenalty float64
	LowConfidenceReviewPenalty  float64
}

// DefaultConfig matches the historical behavior.
func DefaultConfig() Config {
	return Config{
		LowConfidenceQualifyPenalty: 1.0,
		LowConfidenceReviewPenalty:  0.5,
	}
}

// Engine scores leads against a profile. It holds only immutable
// configuration and is safe for concurrent use.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Score evaluates every criterion in the profile against the lead.
// A profile with zero criteria yields score 0 and confidence 0.1.
func (e *Engine) Score(lead models.Lead, profile models.ScoringProfile) models.ScoreResult {
	if len(profile.Criteria) == 0 {
		return models.ScoreResult{
			Confidence: 0.1,
			Reasoning:  []string{"Scoring profile has no criteria, manual review required"},
		}
	}

	var (
		scores      []models.CriterionScore
		rawScore    float64
		maxPossible float64
		reasoning   []string
	)

	for _, c := range profile.Criteria {
		cs := criteria.Evaluate(c, lead)
		scores = append(scores, cs)
		rawScore += cs.WeightedScore
		maxPossible += c.Weight
		reasoning = append(reasoning, cs.Reasoning...)
	}

	normalized := 0.0
	if maxPossible > 0 {
		normalized = round2(rawScore / maxPossible * 10)
	}

	return models.ScoreResult{
		NormalizedScore: normalized,
		RawScore:        rawScore,
		MaxPossible:     maxPossible,
		Confidence:      confidence(lead, scores),
		CriteriaScores:  scores,
		Reasoning:       reasoning,
	}
}

// Classify maps a score result to a qualification status. Thresholds are
// lowered when confidence is below 0.5 so borderline leads get re-reviewed
// instead of silently disqualified.
func (e *Engine) Classify(result models.ScoreResult, profile models.ScoringProfile) models.QualificationStatus {
	if len(result.CriteriaScores) == 0 {
		return models.StatusManualReview
	}

	qualify := profile.QualifyThreshold
	review := profile.ReviewThreshold
	disqualify := profile.DisqualifyThreshold

	if result.Confidence < 0.5 {
		qualify -= e.cfg.LowConfidenceQualifyPenalty
		review -= e.cfg.LowConfidenceReviewPenalty
	}

	switch {
	case result.NormalizedScore >= qualify:
		return models.StatusAutoQualified
	case result.NormalizedScore >= review:
		return models.StatusReviewRequired
	case result.NormalizedScore <= disqualify:
		return models.StatusAutoDisqualified
	default:
		return models.StatusManualReview
	}
}

// Recommend derives follow-up actions from the status and weak criteria.
func (e *Engine) Recommend(result models.ScoreResult, status models.QualificationStatus) []string {
	var recommendations []string

	switch status {
	case models.StatusAutoQualified:
		recommendations = append(recommendations,
			"Automatically qualify and add to nurture sequence",
			"Assign to sales team for immediate follow-up")
	case models.StatusReviewRequired:
		recommendations = append(recommendations,
			"Schedule manual review within 24 hours",
			"Add to review queue for sales team")
	case models.StatusManualReview:
		recommendations = append(recommendations,
			"Manual review required - gather additional information")
	case models.StatusAutoDisqualified:
		recommendations = append(recommendations,
			"Auto-disqualified - do not pursue")
	}

	for _, cs := range result.CriteriaScores {
		if cs.RawScore >= 0.5 {
			continue
		}
		switch cs.Kind {
		case models.CriterionEmailDomain:
			recommendations = append(recommendations, "Verify email address and request alternative contact")
		case models.CriterionPhoneFormat:
			recommendations = append(recommendations, "Request valid phone number for contact")
		case models.CriterionAddressValidity:
			recommendations = append(recommendations, "Request complete address information")
		}
	}

	return recommendations
}

// importantFields is the field set used for the completeness half of
// the confidence computation.
func importantFields(lead models.Lead) []string {
	return []string{
		lead.Email, lead.Phone, lead.FirstName, lead.LastName,
		lead.Address, lead.City, lead.State, lead.Zip,
		lead.UTMSource, lead.LeadSource,
	}
}

func confidence(lead models.Lead, scores []models.CriterionScore) float64 {
	fields := importantFields(lead)
	present := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			present++
		}
	}
	completenessRatio := float64(present) / float64(len(fields))

	nonZero := 0
	for _, cs := range scores {
		if cs.RawScore > 0 {
			nonZero++
		}
	}
	criteriaRatio := float64(nonZero) / math.Max(float64(len(scores)), 1)

	return clamp((completenessRatio+criteriaRatio)/2, 0.1, 1.0)
}

// DefaultProfile is the profile seeded when an organization has none.
func DefaultProfile() models.ScoringProfile {
	return models.ScoringProfile{
		Name: "Default Credit Repair Lead Profile",
		Criteria: []models.Criterion{
			{
				Kind:           models.CriterionEmailDomain,
				Weight:         2.0,
				PositiveValues: []string{"gmail.com", "yahoo.com", "outlook.com", "hotmail.com"},
				NegativeValues: []string{"tempmail.com", "10minutemail.com", "guerrillamail.com"},
				Threshold:      1.0,
			},
			{
				Kind:           models.CriterionPhoneFormat,
				Weight:         1.5,
				PositiveValues: []string{"valid"},
				NegativeValues: []string{"invalid", "placeholder"},
				Threshold:      1.0,
			},
			{
				Kind:           models.CriterionAddressValidity,
				Weight:         1.0,
				PositiveValues: []string{"complete"},
				NegativeValues: []string{"incomplete", "invalid"},
				Threshold:      0.5,
			},
			{
				Kind:           models.CriterionUTMSource,
				Weight:         1.0,
				PositiveValues: []string{"google", "facebook", "referral", "partner"},
				NegativeValues: []string{"spam", "bot"},
				Threshold:      0.5,
			},
		},
		QualifyThreshold:    7.0,
		ReviewThreshold:     5.0,
		DisqualifyThreshold: 3.0,
		Active:              true,
	}
}

// ErrorFallback is the safe result substituted when a lead's evaluation
// fails; batch callers use it so one bad record never aborts siblings.
func ErrorFallback(leadID, scoredAt string) models.LeadScore {
	return models.LeadScore{
		LeadID:      leadID,
		ProfileName: "error_fallback",
		Result: models.ScoreResult{
			NormalizedScore: 5.0,
			Confidence:      0.5,
			Reasoning:       []string{"Scoring error occurred, manual review recommended"},
		},
		Status:             models.StatusManualReview,
		RecommendedActions: []string{"Manual review required due to scoring error"},
		ScoredAt:           scoredAt,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
