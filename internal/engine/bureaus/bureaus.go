// Package bureaus recommends which credit bureaus to target for a dispute
// by ranking the organization's targeting rules. A recommendation is never
// empty: with no rules, or no rule scoring at least 0.3, an explicit
// fallback targeting all bureaus is returned.
package bureaus

import (
	"fmt"
	"math"
	"strings"

	"credit-workers/internal/models"
)

// minRelevance is the score a rule must reach to be applied.
const minRelevance = 0.3

// Recommend picks the most relevant active rule for the dispute.
// history may be nil; history-based criteria then simply don't match.
func Recommend(dispute models.Dispute, rules []models.TargetingRule, history *models.TargetingHistory) models.BureauRecommendation {
	if len(rules) == 0 {
		return models.BureauRecommendation{
			RecommendedBureaus: []string{string(models.BureauAll)},
			Confidence:         0.6,
			RuleApplied:        "default_all_bureaus",
			Alternatives:       allBureauNames(),
			Reasoning:          []string{"Default recommendation - target all bureaus"},
		}
	}

	var best *models.TargetingRule
	bestScore := 0.0
	for i := range rules {
		if !rules[i].Active {
			continue
		}
		score := RuleRelevance(rules[i], dispute, history)
		if score > bestScore {
			bestScore = score
			best = &rules[i]
		}
	}

	if best == nil || bestScore < minRelevance {
		return models.BureauRecommendation{
			RecommendedBureaus: []string{string(models.BureauAll)},
			Confidence:         0.5,
			RuleApplied:        "fallback_default",
			Alternatives:       allBureauNames(),
			Reasoning:          []string{"No specific rule matched, using safe default"},
		}
	}

	recommended := best.RecommendedBureaus
	if len(recommended) == 0 {
		recommended = []string{string(models.BureauAll)}
	}
	confidence := best.ConfidenceScore
	if confidence == 0 {
		confidence = 0.5
	}

	return models.BureauRecommendation{
		RecommendedBureaus: recommended,
		Confidence:         confidence,
		RuleApplied:        best.Name,
		Alternatives:       alternativeBureaus(recommended),
		Reasoning:          []string{fmt.Sprintf("Applied rule: %s", best.Name)},
	}
}

// RuleRelevance scores how well a rule fits the dispute, capped at 1.0.
func RuleRelevance(rule models.TargetingRule, dispute models.Dispute, history *models.TargetingHistory) float64 {
	relevance := 0.0

	switch rule.Kind {
	case models.RuleDisputeTypeBased:
		for _, t := range rule.DisputeTypes {
			if t == dispute.DisputeType {
				relevance += 0.8
				break
			}
		}
	case models.RuleAccountBased:
		accountName := strings.ToLower(dispute.AccountName)
		for _, keyword := range rule.AccountKeywords {
			if strings.Contains(accountName, strings.ToLower(keyword)) {
				relevance += 0.6
				break
			}
		}
	case models.RuleClientHistoryBased:
		if history != nil {
			maxAvg := rule.MaxAvgDisputes
			if maxAvg == 0 {
				maxAvg = 10
			}
			if history.AvgDisputesPerMonth < maxAvg {
				relevance += 0.4
			}
		}
	}

	totalApplications := rule.TotalApplications
	if totalApplications < 1 {
		totalApplications = 1
	}
	successRate := float64(rule.SuccessHistory) / float64(totalApplications)
	relevance += successRate * 0.3

	return math.Min(relevance, 1.0)
}

// ErrorFallback is the safe recommendation when evaluation fails.
func ErrorFallback() models.BureauRecommendation {
	return models.BureauRecommendation{
		RecommendedBureaus: []string{string(models.BureauAll)},
		Confidence:         0.5,
		RuleApplied:        "default",
		Alternatives:       allBureauNames(),
		Reasoning:          []string{"Default fallback recommendation"},
	}
}

func allBureauNames() []string {
	names := make([]string, 0, len(models.IndividualBureaus))
	for _, b := range models.IndividualBureaus {
		names = append(names, string(b))
	}
	return names
}

func alternativeBureaus(recommended []string) []string {
	for _, r := range recommended {
		if r == string(models.BureauAll) {
			return allBureauNames()
		}
	}

	var alternatives []string
	for _, b := range models.IndividualBureaus {
		inRecommended := false
		for _, r := range recommended {
			if r == string(b) {
				inRecommended = true
				break
			}
		}
		if !inRecommended {
			alternatives = append(alternatives, string(b))
		}
	}
	return alternatives
}
