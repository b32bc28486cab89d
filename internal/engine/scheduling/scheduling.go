// Package scheduling computes when the next dispute round should run and
// how likely it is to succeed. With no organization rule a progressive
// default cadence applies.
package scheduling

import (
	"math"
	"time"

	"credit-workers/internal/models"
)

// Schedule plans the next round for a dispute. rule and prefs may be nil.
// responsiveness is the client's responsiveness score in [0,1]; callers
// without data pass 0.5.
func Schedule(dispute models.Dispute, rule *models.SchedulingRule, prefs *models.ClientPreferences, responsiveness float64, now time.Time) models.RoundSchedule {
	currentRound := dispute.RoundNumber
	if currentRound == 0 {
		currentRound = 1
	}
	nextRound := currentRound + 1

	if rule == nil {
		return defaultSchedule(dispute, nextRound, responsiveness, now)
	}

	minDays := rule.MinWaitDays
	maxDays := rule.MaxWaitDays
	if minDays == 0 {
		minDays = 30
	}
	if maxDays == 0 {
		maxDays = 45
	}

	// Collections and charge-offs need faster follow-up.
	if dispute.DisputeType == "collection" || dispute.DisputeType == "charge_off" {
		minDays = max(20, minDays-5)
		maxDays = max(30, maxDays-5)
	}

	if prefs != nil && prefs.PrefersFrequentUpdates {
		minDays = max(14, minDays-10)
	}

	delayDays := (minDays + maxDays) / 2

	strategy := rule.FollowUpStrategy
	if strategy == "" {
		strategy = "standard"
	}
	ruleName := rule.Name
	if ruleName == "" {
		ruleName = "default"
	}

	return models.RoundSchedule{
		NextRound:                   nextRound,
		ScheduledDate:               now.AddDate(0, 0, delayDays),
		RuleApplied:                 ruleName,
		FollowUpStrategy:            strategy,
		EstimatedSuccessProbability: SuccessProbability(dispute.DisputeType, nextRound, responsiveness),
	}
}

func defaultSchedule(dispute models.Dispute, nextRound int, responsiveness float64, now time.Time) models.RoundSchedule {
	baseDelay := 30 + (nextRound-1)*15

	return models.RoundSchedule{
		NextRound:                   nextRound,
		ScheduledDate:               now.AddDate(0, 0, baseDelay),
		RuleApplied:                 "default_progressive",
		FollowUpStrategy:            "standard",
		EstimatedSuccessProbability: math.Max(0.1, 0.8-float64(nextRound)*0.1),
	}
}

// SuccessProbability estimates the chance the given round succeeds. The
// base probability decays with round number and is adjusted for dispute
// type and client responsiveness, clamped to [0.05, 0.95].
func SuccessProbability(disputeType string, roundNumber int, responsiveness float64) float64 {
	baseProb := math.Max(0.1, 0.7-float64(roundNumber-1)*0.1)

	modifier := 1.0
	switch disputeType {
	case "inquiry":
		modifier = 1.1
	case "late_payment":
		modifier = 0.9
	case "collection":
		modifier = 0.7
	case "charge_off":
		modifier = 0.6
	}

	responsivenessModifier := 0.8 + responsiveness*0.4

	return clamp(baseProb*modifier*responsivenessModifier, 0.05, 0.95)
}

// EmergencyFallback is the safe schedule when planning fails.
func EmergencyFallback(dispute models.Dispute, now time.Time) models.RoundSchedule {
	currentRound := dispute.RoundNumber
	if currentRound == 0 {
		currentRound = 1
	}
	return models.RoundSchedule{
		NextRound:                   currentRound + 1,
		ScheduledDate:               now.AddDate(0, 0, 30),
		RuleApplied:                 "emergency_default",
		FollowUpStrategy:            "standard",
		EstimatedSuccessProbability: 0.5,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
