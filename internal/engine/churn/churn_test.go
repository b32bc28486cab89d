package churn

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-workers/internal/models"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func TestProbabilityBounds(t *testing.T) {
	engine := New(DefaultConfig())

	assert.Equal(t, 0.5, engine.Probability(nil))

	low := engine.Probability([]models.RiskFactor{
		{Weight: 2.0, ImpactScore: 0.1},
	})
	high := engine.Probability([]models.RiskFactor{
		{Weight: 2.0, ImpactScore: 0.9},
	})

	assert.Less(t, low, 0.5)
	assert.Greater(t, high, 0.5)
	assert.GreaterOrEqual(t, low, 0.0)
	assert.LessOrEqual(t, high, 1.0)
}

func TestProbabilityMonotonic(t *testing.T) {
	engine := New(DefaultConfig())

	prev := -1.0
	for impact := 0.0; impact <= 1.0; impact += 0.1 {
		p := engine.Probability([]models.RiskFactor{{Weight: 1.0, ImpactScore: impact}})
		assert.Greater(t, p, prev)
		prev = p
	}
}

func TestProbabilitySigmoidMidpoint(t *testing.T) {
	engine := New(DefaultConfig())

	p := engine.Probability([]models.RiskFactor{{Weight: 1.0, ImpactScore: 0.5}})
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestRiskLevelFor(t *testing.T) {
	assert.Equal(t, models.RiskCritical, RiskLevelFor(0.75))
	assert.Equal(t, models.RiskCritical, RiskLevelFor(0.7))
	assert.Equal(t, models.RiskHigh, RiskLevelFor(0.6))
	assert.Equal(t, models.RiskMedium, RiskLevelFor(0.35))
	assert.Equal(t, models.RiskLow, RiskLevelFor(0.1))
}

func TestEngagementRisk(t *testing.T) {
	tests := []struct {
		name           string
		communications []models.EmailRecord
		expectedValue  string
		expectedImpact float64
	}{
		{"no data", nil, "no_data", 0.5},
		{
			"no sent emails",
			[]models.EmailRecord{{Status: "draft", CreatedAt: daysAgo(5)}},
			"no_communication", 0.8,
		},
		{
			"no recent engagement",
			[]models.EmailRecord{{Status: "sent", CreatedAt: daysAgo(60)}},
			"no_recent_engagement", 0.9,
		},
		{
			"low engagement",
			[]models.EmailRecord{
				{Status: "sent", CreatedAt: daysAgo(5)},
				{Status: "sent", CreatedAt: daysAgo(10)},
				{Status: "sent", CreatedAt: daysAgo(15)},
				{Status: "sent", CreatedAt: daysAgo(20)},
				{Status: "sent", CreatedAt: daysAgo(25)},
				{Status: "delivered", CreatedAt: daysAgo(28)},
			},
			"low_engagement_0%_open", 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factor := engagementRisk(tt.communications, now)
			assert.Equal(t, "communication_engagement", factor.Name)
			assert.Equal(t, 2.0, factor.Weight)
			assert.Equal(t, tt.expectedValue, factor.CurrentValue)
			assert.Equal(t, tt.expectedImpact, factor.ImpactScore)
		})
	}
}

func TestPaymentRisk(t *testing.T) {
	t.Run("recent failures dominate", func(t *testing.T) {
		payments := []models.PaymentRecord{
			{Status: "failed", CreatedAt: daysAgo(10)},
			{Status: "paid", CreatedAt: daysAgo(40)},
		}
		factor := paymentRisk(payments, now)
		assert.Equal(t, "recent_failures_1", factor.CurrentValue)
		assert.Equal(t, 0.9, factor.ImpactScore)
		assert.Equal(t, models.RiskHigh, factor.RiskLevel)
	})

	t.Run("clean history is low risk", func(t *testing.T) {
		payments := []models.PaymentRecord{
			{Status: "paid", CreatedAt: daysAgo(20)},
			{Status: "paid", CreatedAt: daysAgo(50)},
		}
		factor := paymentRisk(payments, now)
		assert.Equal(t, models.RiskLow, factor.RiskLevel)
		assert.Equal(t, 0.2, factor.ImpactScore)
	})

	t.Run("no history is neutral", func(t *testing.T) {
		factor := paymentRisk(nil, now)
		assert.Equal(t, "no_history", factor.CurrentValue)
		assert.Equal(t, 0.5, factor.ImpactScore)
	})
}

func TestDisputeRisk(t *testing.T) {
	t.Run("pattern of failures", func(t *testing.T) {
		disputes := []models.DisputeRecord{
			{Result: "failed"}, {Result: "failed"}, {Result: "failed"},
			{Result: "success"}, {Result: "success"}, {Result: "success"},
			{Result: "success"},
		}
		factor := disputeRisk(disputes)
		assert.Equal(t, "pattern_of_failures", factor.CurrentValue)
		assert.Equal(t, 0.8, factor.ImpactScore)
	})

	t.Run("good success rate", func(t *testing.T) {
		disputes := []models.DisputeRecord{
			{Result: "success"}, {Result: "success"}, {Result: "success"},
			{Result: "failed"},
		}
		factor := disputeRisk(disputes)
		assert.Equal(t, models.RiskLow, factor.RiskLevel)
	})

	t.Run("no disputes is low risk", func(t *testing.T) {
		factor := disputeRisk(nil)
		assert.Equal(t, "no_disputes", factor.CurrentValue)
		assert.Equal(t, 0.2, factor.ImpactScore)
	})
}

func TestTenureRisk(t *testing.T) {
	t.Run("missing created_at yields no factor", func(t *testing.T) {
		_, ok := tenureRisk(models.Client{}, now)
		assert.False(t, ok)
	})

	tests := []struct {
		name           string
		days           int
		expectedImpact float64
	}{
		{"new client", 10, 0.6},
		{"early stage", 60, 0.4},
		{"established", 200, 0.3},
		{"long term", 400, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := daysAgo(tt.days)
			factor, ok := tenureRisk(models.Client{CreatedAt: &created}, now)
			require.True(t, ok)
			assert.Equal(t, tt.expectedImpact, factor.ImpactScore)
		})
	}
}

func TestSupportRisk(t *testing.T) {
	communications := []models.EmailRecord{
		{Subject: "Problem with my dispute", CreatedAt: daysAgo(3)},
		{Subject: "Need help urgently", CreatedAt: daysAgo(8)},
		{Subject: "Complaint about service", CreatedAt: daysAgo(12)},
		{Subject: "Monthly statement", CreatedAt: daysAgo(5)},
	}

	factor := supportRisk(communications, now)
	assert.Equal(t, "frequent_support_3_recent", factor.CurrentValue)
	assert.Equal(t, 0.8, factor.ImpactScore)
}

func TestPredict(t *testing.T) {
	engine := New(DefaultConfig())
	created := daysAgo(200)

	client := models.Client{ID: "client-1", CreatedAt: &created}
	history := models.ClientHistory{
		Payments: []models.PaymentRecord{
			{Status: "failed", CreatedAt: daysAgo(10)},
			{Status: "failed", CreatedAt: daysAgo(20)},
		},
		Communications: []models.EmailRecord{
			{Status: "sent", CreatedAt: daysAgo(90)},
		},
	}

	prediction := engine.Predict(client, history, 30, now)

	assert.Equal(t, "client-1", prediction.ClientID)
	assert.Equal(t, 30, prediction.HorizonDays)
	assert.GreaterOrEqual(t, prediction.ChurnProbability, 0.0)
	assert.LessOrEqual(t, prediction.ChurnProbability, 1.0)
	assert.GreaterOrEqual(t, prediction.Confidence, 0.1)
	assert.NotEmpty(t, prediction.Factors)
	assert.NotEmpty(t, prediction.RecommendedActions)
	// Recent payment failures and stale communication push this client
	// well above neutral.
	assert.Greater(t, prediction.ChurnProbability, 0.5)
}

func TestRecommendationsPerFactor(t *testing.T) {
	factors := []models.RiskFactor{
		{Name: "payment_behavior", RiskLevel: models.RiskHigh},
		{Name: "client_tenure", RiskLevel: models.RiskLow},
	}

	recs := Recommendations(models.RiskHigh, factors)
	assert.Contains(t, recs, "Offer flexible payment options or payment plans")
	assert.Contains(t, recs, "Escalate to account management team")
	assert.NotContains(t, recs, "Implement multi-channel communication strategy")
}

func TestRecommendationsDefaults(t *testing.T) {
	recs := Recommendations(models.RiskLow, nil)
	assert.Equal(t, []string{
		"Continue current engagement strategy",
		"Consider upselling or cross-selling opportunities",
	}, recs)
}

func TestConfidence(t *testing.T) {
	history := models.ClientHistory{
		Disputes: []models.DisputeRecord{{Result: "success"}},
		Payments: []models.PaymentRecord{{Status: "paid", CreatedAt: now}},
	}
	factors := make([]models.RiskFactor, 5)

	// Two of four data types (0.5) and five factors (0.9) average to 0.7.
	assert.InDelta(t, 0.7, confidence(history, factors), 1e-9)
	assert.Equal(t, 0.1, confidence(models.ClientHistory{}, nil))
}

func TestErrorFallback(t *testing.T) {
	prediction := ErrorFallback("client-9", 30, assert.AnError)

	assert.Equal(t, 0.5, prediction.ChurnProbability)
	assert.Equal(t, models.RiskMedium, prediction.RiskLevel)
	assert.Equal(t, 0.1, prediction.Confidence)
	assert.NotEmpty(t, prediction.Error)
}

func TestSummarize(t *testing.T) {
	engine := New(DefaultConfig())

	predictions := []models.ChurnPrediction{
		{RiskLevel: models.RiskCritical, ChurnProbability: 0.8},
		{RiskLevel: models.RiskHigh, ChurnProbability: 0.6},
		{RiskLevel: models.RiskLow, ChurnProbability: 0.1},
	}

	summary := engine.Summarize(predictions)
	assert.Equal(t, 1, summary.CriticalRiskCount)
	assert.Equal(t, 1, summary.HighRiskCount)
	assert.Equal(t, 1, summary.LowRiskCount)
	assert.Equal(t, 400.0, summary.RevenueAtRisk)
	assert.InDelta(t, 0.5, summary.AverageChurnProbability, 1e-9)

	empty := engine.Summarize(nil)
	assert.Equal(t, 0.0, empty.AverageChurnProbability)
	assert.Equal(t, 0.0, empty.RevenueAtRisk)
}

func TestProbabilityNeverNaN(t *testing.T) {
	engine := New(DefaultConfig())
	p := engine.Probability([]models.RiskFactor{{Weight: 0, ImpactScore: 0.9}})
	assert.False(t, math.IsNaN(p))
	assert.Equal(t, 0.5, p)
}
