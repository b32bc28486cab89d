package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-workers/internal/models"
)

func testProfile(criteria ...models.Criterion) models.ScoringProfile {
	return models.ScoringProfile{
		ID:                  "profile-1",
		Name:                "Test Profile",
		Criteria:            criteria,
		QualifyThreshold:    7.0,
		ReviewThreshold:     5.0,
		DisqualifyThreshold: 3.0,
		Active:              true,
	}
}

func TestScorePerfectLead(t *testing.T) {
	engine := New(DefaultConfig())
	profile := testProfile(
		models.Criterion{
			Kind:           models.CriterionEmailDomain,
			Weight:         2.0,
			PositiveValues: []string{"gmail.com"},
		},
		models.Criterion{Kind: models.CriterionPhoneFormat, Weight: 1.5},
	)

	lead := models.Lead{Email: "a@gmail.com", Phone: "555-123-4567"}
	result := engine.Score(lead, profile)

	assert.Equal(t, 3.5, result.RawScore)
	assert.Equal(t, 3.5, result.MaxPossible)
	assert.Equal(t, 10.0, result.NormalizedScore)
	assert.Len(t, result.CriteriaScores, 2)
}

func TestScoreBoundsHold(t *testing.T) {
	engine := New(DefaultConfig())
	profile := DefaultProfile()

	leads := []models.Lead{
		{},
		{Email: "x@tempmail.com", Phone: "1", UTMSource: "spam"},
		{Email: "x@gmail.com", Phone: "555-123-4567", Address: "1 Main", City: "Austin", State: "TX", Zip: "78701", UTMSource: "google"},
	}

	for _, lead := range leads {
		result := engine.Score(lead, profile)
		assert.GreaterOrEqual(t, result.NormalizedScore, 0.0)
		assert.LessOrEqual(t, result.NormalizedScore, 10.0)
		assert.GreaterOrEqual(t, result.Confidence, 0.1)
		assert.LessOrEqual(t, result.Confidence, 1.0)
	}
}

func TestScoreEmptyProfile(t *testing.T) {
	engine := New(DefaultConfig())
	profile := testProfile()

	result := engine.Score(models.Lead{Email: "a@gmail.com"}, profile)
	assert.Equal(t, 0.0, result.NormalizedScore)
	assert.Equal(t, 0.1, result.Confidence)

	status := engine.Classify(result, profile)
	assert.Equal(t, models.StatusManualReview, status)
}

func TestClassify(t *testing.T) {
	engine := New(DefaultConfig())
	profile := testProfile(models.Criterion{Kind: models.CriterionEmailDomain, Weight: 1.0})

	tests := []struct {
		name       string
		score      float64
		confidence float64
		expected   models.QualificationStatus
	}{
		{"above qualify", 8.0, 0.9, models.StatusAutoQualified},
		{"at qualify", 7.0, 0.9, models.StatusAutoQualified},
		{"review band", 5.5, 0.9, models.StatusReviewRequired},
		{"between review and disqualify", 4.0, 0.9, models.StatusManualReview},
		{"at disqualify", 3.0, 0.9, models.StatusAutoDisqualified},
		{"below disqualify", 1.0, 0.9, models.StatusAutoDisqualified},
		{"low confidence lowers qualify bar", 6.0, 0.4, models.StatusAutoQualified},
		{"low confidence lowers review bar", 4.5, 0.4, models.StatusReviewRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := models.ScoreResult{
				NormalizedScore: tt.score,
				Confidence:      tt.confidence,
				CriteriaScores:  []models.CriterionScore{{Kind: models.CriterionEmailDomain}},
			}
			assert.Equal(t, tt.expected, engine.Classify(result, profile))
		})
	}
}

func TestClassifyMonotonicInScore(t *testing.T) {
	engine := New(DefaultConfig())
	profile := testProfile(models.Criterion{Kind: models.CriterionEmailDomain, Weight: 1.0})

	rank := map[models.QualificationStatus]int{
		models.StatusAutoDisqualified: 0,
		models.StatusManualReview:     1,
		models.StatusReviewRequired:   2,
		models.StatusAutoQualified:    3,
	}

	prev := -1
	for score := 0.0; score <= 10.0; score += 0.5 {
		result := models.ScoreResult{
			NormalizedScore: score,
			Confidence:      0.9,
			CriteriaScores:  []models.CriterionScore{{Kind: models.CriterionEmailDomain}},
		}
		current := rank[engine.Classify(result, profile)]
		assert.GreaterOrEqual(t, current, prev, "classification regressed at score %v", score)
		prev = current
	}
}

func TestRecommend(t *testing.T) {
	engine := New(DefaultConfig())

	result := models.ScoreResult{
		CriteriaScores: []models.CriterionScore{
			{Kind: models.CriterionEmailDomain, RawScore: 0.0},
			{Kind: models.CriterionPhoneFormat, RawScore: 1.0},
		},
	}

	recs := engine.Recommend(result, models.StatusReviewRequired)
	assert.Contains(t, recs, "Schedule manual review within 24 hours")
	assert.Contains(t, recs, "Verify email address and request alternative contact")
	assert.NotContains(t, recs, "Request valid phone number for contact")
}

func TestDefaultProfile(t *testing.T) {
	profile := DefaultProfile()

	require.Len(t, profile.Criteria, 4)
	assert.Equal(t, "Default Credit Repair Lead Profile", profile.Name)
	assert.Equal(t, 7.0, profile.QualifyThreshold)
	assert.Equal(t, 5.0, profile.ReviewThreshold)
	assert.Equal(t, 3.0, profile.DisqualifyThreshold)
	assert.True(t, profile.DisqualifyThreshold <= profile.ReviewThreshold)
	assert.True(t, profile.ReviewThreshold <= profile.QualifyThreshold)
	assert.Equal(t, 2.0, profile.Criteria[0].Weight)
}

func TestErrorFallback(t *testing.T) {
	score := ErrorFallback("lead-1", "2026-01-01T00:00:00Z")

	assert.Equal(t, 5.0, score.Result.NormalizedScore)
	assert.Equal(t, 0.5, score.Result.Confidence)
	assert.Equal(t, models.StatusManualReview, score.Status)
	assert.Equal(t, "error_fallback", score.ProfileName)
}
