// Package churn predicts client churn probability from six weighted risk
// factors over a client's history bundle, mapping the aggregate through a
// logistic transform. All functions are pure; callers supply the clock.
package churn

import (
	"fmt"
	"math"
	"strings"
	"time"

	"credit-workers/internal/models"
)

// Config holds the tunable prediction parameters.
type Config struct {
	SigmoidSteepness        float64
	SigmoidMidpoint         float64
	MonthlyRevenuePerClient float64
}

func DefaultConfig() Config {
	return Config{
		SigmoidSteepness:        6.0,
		SigmoidMidpoint:         0.5,
		MonthlyRevenuePerClient: 200.0,
	}
}

// Engine predicts churn risk. Immutable configuration only.
type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Predict computes the churn assessment for one client.
func (e *Engine) Predict(client models.Client, history models.ClientHistory, horizonDays int, now time.Time) models.ChurnPrediction {
	factors := e.AnalyzeRiskFactors(client, history, now)
	probability := e.Probability(factors)
	risk := RiskLevelFor(probability)

	return models.ChurnPrediction{
		ClientID:           client.ID,
		ChurnProbability:   probability,
		RiskLevel:          risk,
		Confidence:         confidence(history, factors),
		HorizonDays:        horizonDays,
		Factors:            factors,
		RecommendedActions: Recommendations(risk, factors),
	}
}

// AnalyzeRiskFactors runs every factor analyzer over the history bundle.
func (e *Engine) AnalyzeRiskFactors(client models.Client, history models.ClientHistory, now time.Time) []models.RiskFactor {
	var factors []models.RiskFactor

	factors = append(factors, engagementRisk(history.Communications, now))
	factors = append(factors, paymentRisk(history.Payments, now))
	factors = append(factors, disputeRisk(history.Disputes))
	factors = append(factors, utilizationRisk(history.Disputes, history.Documents, now))
	if f, ok := tenureRisk(client, now); ok {
		factors = append(factors, f)
	}
	factors = append(factors, supportRisk(history.Communications, now))

	return factors
}

// Probability maps the weighted mean impact through the sigmoid.
// No factors yields the neutral 0.5.
func (e *Engine) Probability(factors []models.RiskFactor) float64 {
	if len(factors) == 0 {
		return 0.5
	}

	totalWeightedRisk := 0.0
	totalWeight := 0.0
	for _, f := range factors {
		totalWeightedRisk += f.ImpactScore * f.Weight
		totalWeight += f.Weight
	}
	if totalWeight == 0 {
		return 0.5
	}

	normalized := totalWeightedRisk / totalWeight
	probability := 1 / (1 + math.Exp(-e.cfg.SigmoidSteepness*(normalized-e.cfg.SigmoidMidpoint)))
	return clamp(probability, 0.0, 1.0)
}

// RiskLevelFor buckets a churn probability.
func RiskLevelFor(probability float64) models.RiskLevel {
	switch {
	case probability >= 0.7:
		return models.RiskCritical
	case probability >= 0.5:
		return models.RiskHigh
	case probability >= 0.3:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}

func engagementRisk(communications []models.EmailRecord, now time.Time) models.RiskFactor {
	factor := models.RiskFactor{
		Name:   "communication_engagement",
		Weight: 2.0,
	}

	if len(communications) == 0 {
		factor.Description = "Client communication and email engagement"
		factor.CurrentValue = "no_data"
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.5
		return factor
	}

	sent := 0
	opened := 0
	clicked := 0
	recent := 0
	cutoff := now.AddDate(0, 0, -30)
	for _, c := range communications {
		if c.Status == "sent" || c.Status == "delivered" {
			sent++
		}
		if c.OpenedAt != nil {
			opened++
		}
		if c.ClickCount > 0 {
			clicked++
		}
		if c.CreatedAt.After(cutoff) {
			recent++
		}
	}

	if sent == 0 {
		factor.Description = "No email communication recorded"
		factor.CurrentValue = "no_communication"
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.8
		return factor
	}

	openRate := float64(opened) / float64(sent)
	clickRate := float64(clicked) / float64(sent)
	factor.Description = fmt.Sprintf("Email engagement: %d%% open rate, %d%% click rate",
		int(math.Round(openRate*100)), int(math.Round(clickRate*100)))

	switch {
	case recent == 0:
		factor.CurrentValue = "no_recent_engagement"
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.9
	case openRate < 0.2 && clickRate < 0.05:
		factor.CurrentValue = fmt.Sprintf("low_engagement_%d%%_open", int(math.Round(openRate*100)))
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.6
	default:
		factor.CurrentValue = fmt.Sprintf("good_engagement_%d%%_open", int(math.Round(openRate*100)))
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
	}
	return factor
}

func paymentRisk(payments []models.PaymentRecord, now time.Time) models.RiskFactor {
	factor := models.RiskFactor{
		Name:   "payment_behavior",
		Weight: 2.5,
	}

	if len(payments) == 0 {
		factor.Description = "No payment history available"
		factor.CurrentValue = "no_history"
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.5
		return factor
	}

	failed := 0
	recentFailures := 0
	cutoff := now.AddDate(0, 0, -60)
	for _, p := range payments {
		if p.Status == "failed" {
			failed++
			if p.CreatedAt.After(cutoff) {
				recentFailures++
			}
		}
	}

	failureRate := float64(failed) / float64(len(payments))
	factor.Description = fmt.Sprintf("Payment failure rate: %d%% over %d attempts",
		int(math.Round(failureRate*100)), len(payments))

	switch {
	case recentFailures > 0:
		factor.CurrentValue = fmt.Sprintf("recent_failures_%d", recentFailures)
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.9
	case failureRate > 0.3:
		factor.CurrentValue = fmt.Sprintf("high_failure_rate_%d%%", int(math.Round(failureRate*100)))
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.8
	case failureRate > 0.1:
		factor.CurrentValue = fmt.Sprintf("moderate_failure_rate_%d%%", int(math.Round(failureRate*100)))
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.6
	default:
		factor.CurrentValue = fmt.Sprintf("good_payment_history_%d%%_success", int(math.Round((1-failureRate)*100)))
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
	}
	return factor
}

func disputeRisk(disputes []models.DisputeRecord) models.RiskFactor {
	factor := models.RiskFactor{
		Name:   "dispute_success",
		Weight: 1.5,
	}

	if len(disputes) == 0 {
		factor.Description = "No dispute history available"
		factor.CurrentValue = "no_disputes"
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
		return factor
	}

	successes := 0
	for _, d := range disputes {
		if d.Result == "success" {
			successes++
		}
	}
	successRate := float64(successes) / float64(len(disputes))
	factor.Description = fmt.Sprintf("Dispute success rate: %d%% over %d disputes",
		int(math.Round(successRate*100)), len(disputes))

	// Disputes arrive newest-first; look for a failure pattern in the
	// last five.
	recentFailures := 0
	for i, d := range disputes {
		if i >= 5 {
			break
		}
		if d.Result == "failed" {
			recentFailures++
		}
	}

	switch {
	case recentFailures >= 3:
		factor.CurrentValue = "pattern_of_failures"
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.8
	case successRate < 0.3:
		factor.CurrentValue = fmt.Sprintf("low_success_rate_%d%%", int(math.Round(successRate*100)))
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.7
	case successRate < 0.6:
		factor.CurrentValue = fmt.Sprintf("moderate_success_rate_%d%%", int(math.Round(successRate*100)))
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.5
	default:
		factor.CurrentValue = fmt.Sprintf("good_success_rate_%d%%", int(math.Round(successRate*100)))
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
	}
	return factor
}

func utilizationRisk(disputes []models.DisputeRecord, documents []models.DocumentRecord, now time.Time) models.RiskFactor {
	cutoff := now.AddDate(0, 0, -30)
	recent := 0
	for _, d := range disputes {
		if d.CreatedAt.After(cutoff) {
			recent++
		}
	}
	for _, d := range documents {
		if d.CreatedAt.After(cutoff) {
			recent++
		}
	}

	factor := models.RiskFactor{
		Name:        "service_utilization",
		Description: fmt.Sprintf("Service activity: %d activities in last 30 days", recent),
		Weight:      1.0,
	}

	switch {
	case recent == 0:
		factor.CurrentValue = "no_recent_activity"
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.8
	case recent == 1:
		factor.CurrentValue = "low_recent_activity"
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.6
	case recent <= 3:
		factor.CurrentValue = "moderate_recent_activity"
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.3
	default:
		factor.CurrentValue = "high_recent_activity"
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.1
	}
	return factor
}

func tenureRisk(client models.Client, now time.Time) (models.RiskFactor, bool) {
	if client.CreatedAt == nil {
		return models.RiskFactor{}, false
	}

	days := int(now.Sub(*client.CreatedAt).Hours() / 24)
	factor := models.RiskFactor{
		Name:        "client_tenure",
		Description: fmt.Sprintf("Client tenure: %d days", days),
		Weight:      1.0,
	}

	switch {
	case days < 30:
		factor.CurrentValue = fmt.Sprintf("new_client_%d_days", days)
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.6
	case days < 90:
		factor.CurrentValue = fmt.Sprintf("early_stage_%d_days", days)
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.4
	case days > 365:
		factor.CurrentValue = fmt.Sprintf("long_term_%d_days", days)
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
	default:
		factor.CurrentValue = fmt.Sprintf("established_%d_days", days)
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.3
	}
	return factor, true
}

var supportIndicators = []string{"support", "help", "issue", "problem", "complaint", "frustrated"}

func supportRisk(communications []models.EmailRecord, now time.Time) models.RiskFactor {
	cutoff := now.AddDate(0, 0, -30)
	recentSupport := 0
	for _, c := range communications {
		combined := strings.ToLower(c.Subject) + " " + strings.ToLower(c.BodyText)
		isSupport := false
		for _, indicator := range supportIndicators {
			if strings.Contains(combined, indicator) {
				isSupport = true
				break
			}
		}
		if isSupport && c.CreatedAt.After(cutoff) {
			recentSupport++
		}
	}

	factor := models.RiskFactor{
		Name:        "support_interactions",
		Description: fmt.Sprintf("Support contacts: %d in last 30 days", recentSupport),
		Weight:      1.5,
	}

	switch {
	case recentSupport >= 3:
		factor.CurrentValue = fmt.Sprintf("frequent_support_%d_recent", recentSupport)
		factor.RiskLevel = models.RiskHigh
		factor.ImpactScore = 0.8
	case recentSupport >= 1:
		factor.CurrentValue = fmt.Sprintf("some_support_%d_recent", recentSupport)
		factor.RiskLevel = models.RiskMedium
		factor.ImpactScore = 0.5
	default:
		factor.CurrentValue = "minimal_support_issues"
		factor.RiskLevel = models.RiskLow
		factor.ImpactScore = 0.2
	}
	return factor
}

// Recommendations derives retention actions from the overall tier and any
// high-risk factors.
func Recommendations(risk models.RiskLevel, factors []models.RiskFactor) []string {
	var recommendations []string

	switch risk {
	case models.RiskCritical, models.RiskHigh:
		recommendations = append(recommendations,
			"Immediate outreach required - schedule personal call within 24 hours",
			"Offer special retention incentives or service upgrades",
			"Escalate to account management team")
	case models.RiskMedium:
		recommendations = append(recommendations,
			"Proactive check-in within 1 week",
			"Send targeted value-add content or resources",
			"Review service satisfaction and address concerns")
	}

	for _, f := range factors {
		if f.RiskLevel != models.RiskHigh && f.RiskLevel != models.RiskCritical {
			continue
		}
		switch f.Name {
		case "communication_engagement":
			recommendations = append(recommendations,
				"Implement multi-channel communication strategy",
				"Personalize email content based on client interests")
		case "payment_behavior":
			recommendations = append(recommendations,
				"Offer flexible payment options or payment plans",
				"Provide financial education resources",
				"Consider service tier adjustment")
		case "dispute_success":
			recommendations = append(recommendations,
				"Review dispute strategy and set realistic expectations",
				"Provide regular progress updates and success stories",
				"Consider additional services or consultations")
		case "service_utilization":
			recommendations = append(recommendations,
				"Engage client with usage tips and best practices",
				"Highlight underutilized features that could add value",
				"Schedule onboarding or refresher training")
		case "support_interactions":
			recommendations = append(recommendations,
				"Address all outstanding support issues immediately",
				"Assign dedicated support representative",
				"Implement proactive support check-ins")
		}
	}

	if len(recommendations) == 0 {
		if risk == models.RiskLow {
			recommendations = append(recommendations,
				"Continue current engagement strategy",
				"Consider upselling or cross-selling opportunities")
		} else {
			recommendations = append(recommendations,
				"Monitor closely and gather feedback",
				"Review service delivery and client satisfaction")
		}
	}
	return recommendations
}

func confidence(history models.ClientHistory, factors []models.RiskFactor) float64 {
	dataPoints := 0
	if len(history.Disputes) > 0 {
		dataPoints++
	}
	if len(history.Payments) > 0 {
		dataPoints++
	}
	if len(history.Communications) > 0 {
		dataPoints++
	}
	if len(history.Documents) > 0 {
		dataPoints++
	}
	completeness := float64(dataPoints) / 4.0

	var factorConfidence float64
	switch {
	case len(factors) == 0:
		factorConfidence = 0.1
	case len(factors) <= 2:
		factorConfidence = 0.4
	case len(factors) <= 4:
		factorConfidence = 0.7
	default:
		factorConfidence = 0.9
	}

	return clamp((completeness+factorConfidence)/2, 0.1, 1.0)
}

// ErrorFallback is substituted when one client's prediction fails inside
// a batch.
func ErrorFallback(clientID string, horizonDays int, cause error) models.ChurnPrediction {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return models.ChurnPrediction{
		ClientID:           clientID,
		ChurnProbability:   0.5,
		RiskLevel:          models.RiskMedium,
		Confidence:         0.1,
		HorizonDays:        horizonDays,
		RecommendedActions: []string{"Manual review required due to prediction error"},
		Error:              msg,
	}
}

// Summarize aggregates a batch of predictions, including the revenue at
// risk from critical and high tiers.
func (e *Engine) Summarize(predictions []models.ChurnPrediction) models.ChurnSummary {
	counts := map[models.RiskLevel]int{
		models.RiskCritical: 0,
		models.RiskHigh:     0,
		models.RiskMedium:   0,
		models.RiskLow:      0,
	}
	summary := models.ChurnSummary{RiskDistribution: counts}
	if len(predictions) == 0 {
		return summary
	}

	total := 0.0
	for _, p := range predictions {
		counts[p.RiskLevel]++
		total += p.ChurnProbability
	}

	summary.CriticalRiskCount = counts[models.RiskCritical]
	summary.HighRiskCount = counts[models.RiskHigh]
	summary.MediumRiskCount = counts[models.RiskMedium]
	summary.LowRiskCount = counts[models.RiskLow]
	summary.AverageChurnProbability = math.Round(total/float64(len(predictions))*1000) / 1000
	summary.RevenueAtRisk = float64(summary.CriticalRiskCount+summary.HighRiskCount) * e.cfg.MonthlyRevenuePerClient
	return summary
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
