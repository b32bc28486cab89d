// Package payments computes retry strategies for failed payments and
// advances dunning escalation sequences. All entry points are pure; the
// caller persists state and triggers delivery.
package payments

import (
	"math"
	"time"

	"credit-workers/internal/models"
)

// DefaultRetryConfig is seeded when an organization has no retry
// configuration of its own.
func DefaultRetryConfig() models.RetryConfig {
	f := func(v float64) *float64 { return &v }
	return models.RetryConfig{
		Name:              "Default Retry Strategy",
		Strategy:          models.BackoffExponential,
		InitialDelayHours: 24,
		MaxRetries:        3,
		Tiers: []models.AmountTier{
			{Name: "low", MaxAmount: f(100), Strategy: models.BackoffFixed, DelayMultiplier: 0.5},
			{Name: "medium", MinAmount: f(100), MaxAmount: f(500), Strategy: models.BackoffLinear, DelayMultiplier: 1.0},
			{Name: "high", MinAmount: f(500), Strategy: models.BackoffExponential, DelayMultiplier: 1.5},
		},
		Active: true,
	}
}

// PlanRetry computes the next retry for a failed payment. The dunning
// step association is the caller's concern and is left unset.
func PlanRetry(payment models.FailedPayment, config models.RetryConfig, now time.Time) models.RetryPlan {
	retryCount := payment.RetryCount
	amountDollars := float64(payment.AmountCents) / 100

	tier := selectTier(amountDollars, config)

	initialDelay := float64(config.InitialDelayHours)
	if initialDelay == 0 {
		initialDelay = 24
	}
	strategy := tier.Strategy
	if strategy == "" {
		strategy = config.Strategy
	}
	if strategy == "" {
		strategy = models.BackoffExponential
	}
	multiplier := tier.DelayMultiplier
	if multiplier == 0 {
		multiplier = 1.0
	}

	var delayHours float64
	switch strategy {
	case models.BackoffExponential:
		delayHours = initialDelay * math.Pow(2, float64(retryCount)) * multiplier
	case models.BackoffLinear:
		delayHours = initialDelay * float64(retryCount+1) * multiplier
	default: // fixed
		delayHours = initialDelay * multiplier
	}

	return models.RetryPlan{
		RetryCount:           retryCount + 1,
		NextRetryDate:        now.Add(time.Duration(delayHours * float64(time.Hour))),
		Strategy:             strategy,
		Tier:                 tier.Name,
		AmountToCharge:       payment.AmountCents,
		PaymentMethod:        "same_as_failed",
		EstimatedSuccessRate: SuccessRate(retryCount, strategy, amountDollars),
	}
}

// selectTier picks the tier whose [min, max) band contains the amount,
// defaulting to the medium tier.
func selectTier(amount float64, config models.RetryConfig) models.AmountTier {
	for _, tier := range config.Tiers {
		min := 0.0
		if tier.MinAmount != nil {
			min = *tier.MinAmount
		}
		max := math.Inf(1)
		if tier.MaxAmount != nil {
			max = *tier.MaxAmount
		}
		if min <= amount && amount < max {
			return tier
		}
	}

	for _, tier := range config.Tiers {
		if tier.Name == "medium" {
			return tier
		}
	}
	return models.AmountTier{Name: "medium", Strategy: models.BackoffExponential, DelayMultiplier: 1.0}
}

// SuccessRate estimates the chance this retry attempt succeeds. The base
// rate decays with attempt number; smaller amounts retry better.
func SuccessRate(retryCount int, strategy models.BackoffPolicy, amount float64) float64 {
	attempt := retryCount
	if attempt > 3 {
		attempt = 3
	}

	var baseRate float64
	switch attempt {
	case 0:
		baseRate = 0.7
	case 1:
		baseRate = 0.5
	case 2:
		baseRate = 0.3
	case 3:
		baseRate = 0.2
	default:
		baseRate = 0.1
	}

	strategyModifier := 1.0
	switch strategy {
	case models.BackoffExponential:
		strategyModifier = 0.9
	case models.BackoffLinear:
		strategyModifier = 1.0
	case models.BackoffFixed:
		strategyModifier = 1.1
	}

	amountModifier := math.Max(0.5, 1.2-amount/1000)

	return clamp(baseRate*strategyModifier*amountModifier, 0.05, 0.95)
}

// RetryErrorFallback is the safe plan substituted when strategy
// calculation fails.
func RetryErrorFallback(now time.Time) models.RetryPlan {
	return models.RetryPlan{
		RetryCount:           1,
		NextRetryDate:        now.Add(24 * time.Hour),
		Strategy:             models.BackoffExponential,
		Tier:                 "safe_default",
		AmountToCharge:       0,
		PaymentMethod:        "none",
		EstimatedSuccessRate: 0.3,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
