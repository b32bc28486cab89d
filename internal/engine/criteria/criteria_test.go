package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"credit-workers/internal/models"
)

func TestEvaluateEmailDomain(t *testing.T) {
	criterion := models.Criterion{
		Kind:           models.CriterionEmailDomain,
		Weight:         2.0,
		PositiveValues: []string{"gmail.com", "yahoo.com"},
		NegativeValues: []string{"tempmail.com"},
	}

	tests := []struct {
		name     string
		email    string
		expected float64
	}{
		{"positive domain", "john@gmail.com", 1.0},
		{"negative domain", "john@tempmail.com", 0.0},
		{"unknown domain", "john@example.org", 0.5},
		{"missing email", "", 0.0},
		{"no at sign", "johngmail.com", 0.0},
		{"uppercase is normalized", "John@GMAIL.com", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(criterion, models.Lead{Email: tt.email})
			assert.Equal(t, tt.expected, result.RawScore)
			assert.Equal(t, tt.expected*2.0, result.WeightedScore)
			assert.NotEmpty(t, result.Reasoning)
		})
	}
}

func TestEvaluatePhoneFormat(t *testing.T) {
	criterion := models.Criterion{Kind: models.CriterionPhoneFormat, Weight: 1.5}

	tests := []struct {
		name     string
		phone    string
		expected float64
	}{
		{"ten digits", "555-123-4567", 1.0},
		{"eleven with country code", "1-555-123-4567", 0.9},
		{"twelve digits", "123456789012", 0.7},
		{"too short", "12345", 0.0},
		{"missing", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(criterion, models.Lead{Phone: tt.phone})
			assert.Equal(t, tt.expected, result.RawScore)
		})
	}
}

func TestEvaluatePhoneFormatPattern(t *testing.T) {
	criterion := models.Criterion{
		Kind:    models.CriterionPhoneFormat,
		Weight:  1.5,
		Pattern: `^\+1\d{10}$`,
	}

	tests := []struct {
		name     string
		phone    string
		expected float64
	}{
		{"matches pattern", "+15551234567", 1.0},
		{"rejected by pattern", "555-123-4567", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(criterion, models.Lead{Phone: tt.phone})
			assert.Equal(t, tt.expected, result.RawScore)
		})
	}

	// An invalid pattern falls back to the digit-length tiers.
	criterion.Pattern = `([`
	result := Evaluate(criterion, models.Lead{Phone: "555-123-4567"})
	assert.Equal(t, 1.0, result.RawScore)
}

func TestEvaluateAddressValidity(t *testing.T) {
	criterion := models.Criterion{Kind: models.CriterionAddressValidity, Weight: 1.0}

	tests := []struct {
		name     string
		lead     models.Lead
		expected float64
	}{
		{
			"complete address",
			models.Lead{Address: "123 Main St", City: "Austin", State: "TX", Zip: "78701"},
			1.0,
		},
		{
			"three of four fields",
			models.Lead{Address: "123 Main St", City: "Austin", State: "TX"},
			0.75,
		},
		{
			"half the fields",
			models.Lead{City: "Austin", State: "TX"},
			0.5,
		},
		{"nothing provided", models.Lead{}, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(criterion, tt.lead)
			assert.Equal(t, tt.expected, result.RawScore)
		})
	}
}

func TestEvaluateSourceCriteria(t *testing.T) {
	utm := models.Criterion{
		Kind:           models.CriterionUTMSource,
		Weight:         1.0,
		PositiveValues: []string{"google", "referral"},
		NegativeValues: []string{"spam", "bot"},
	}

	assert.Equal(t, 1.0, Evaluate(utm, models.Lead{UTMSource: "google"}).RawScore)
	assert.Equal(t, 0.0, Evaluate(utm, models.Lead{UTMSource: "spam"}).RawScore)
	assert.Equal(t, 0.5, Evaluate(utm, models.Lead{UTMSource: "newsletter"}).RawScore)
	assert.Equal(t, 0.0, Evaluate(utm, models.Lead{}).RawScore)

	leadSource := models.Criterion{
		Kind:           models.CriterionLeadSource,
		Weight:         1.0,
		PositiveValues: []string{"partner"},
	}
	assert.Equal(t, 1.0, Evaluate(leadSource, models.Lead{LeadSource: "partner"}).RawScore)
}

func TestEvaluateNameCompleteness(t *testing.T) {
	criterion := models.Criterion{Kind: models.CriterionNameCompleteness, Weight: 1.0}

	assert.Equal(t, 1.0, Evaluate(criterion, models.Lead{FirstName: "Jane", LastName: "Doe"}).RawScore)
	assert.Equal(t, 0.5, Evaluate(criterion, models.Lead{FirstName: "Jane"}).RawScore)
	assert.Equal(t, 0.0, Evaluate(criterion, models.Lead{}).RawScore)
}

func TestEvaluateCreditConcern(t *testing.T) {
	criterion := models.Criterion{Kind: models.CriterionCreditConcern, Weight: 1.0}

	tests := []struct {
		name     string
		fields   map[string]interface{}
		expected float64
	}{
		{"urgent concern", map[string]interface{}{"concern_level": "urgent"}, 0.8},
		{"asap embedded", map[string]interface{}{"concern_level": "need help asap"}, 0.8},
		{"low concern", map[string]interface{}{"concern_level": "curious"}, 0.3},
		{"no indicator", map[string]interface{}{"concern_level": "average"}, 0.5},
		{"no custom fields", nil, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(criterion, models.Lead{CustomFields: tt.fields})
			assert.Equal(t, tt.expected, result.RawScore)
		})
	}
}

func TestEvaluateDemographicFit(t *testing.T) {
	criterion := models.Criterion{Kind: models.CriterionDemographicFit, Weight: 1.0}

	assert.Equal(t, 0.8, Evaluate(criterion, models.Lead{State: "TX"}).RawScore)
	assert.Equal(t, 0.8, Evaluate(criterion, models.Lead{State: "tx"}).RawScore)
	assert.Equal(t, 0.6, Evaluate(criterion, models.Lead{State: "WY"}).RawScore)
	assert.Equal(t, 0.5, Evaluate(criterion, models.Lead{}).RawScore)
}

func TestEvaluateUnknownKind(t *testing.T) {
	criterion := models.Criterion{Kind: "social_media_presence", Weight: 2.0, Threshold: 0.4}

	result := Evaluate(criterion, models.Lead{})
	assert.Equal(t, 0.4, result.RawScore)
	assert.Equal(t, 0.8, result.WeightedScore)
	assert.Contains(t, result.Reasoning[0], "Unknown criteria type")
}
