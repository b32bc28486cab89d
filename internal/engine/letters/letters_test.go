package letters

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-workers/internal/models"
)

var renderedAt = time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

func TestScore(t *testing.T) {
	dispute := models.Dispute{
		DisputeType: "collection",
		Bureau:      "equifax",
		RoundNumber: 2,
	}

	template := models.LetterTemplate{
		Priority:       2.0,
		DisputeTypes:   []string{"collection"},
		BureauTargets:  []string{"equifax"},
		RoundOptimized: true,
		SuccessRate:    0.6,
		UsageCount:     15,
	}

	// 2.0*0.3 + 2.0 type + 1.5 bureau + 1.0 round + 0.6*2.0 + capped usage 1.0
	assert.InDelta(t, 0.6+2.0+1.5+1.0+1.2+1.0, Score(template, dispute), 1e-9)
}

func TestScoreUsageBonusCapped(t *testing.T) {
	few := Score(models.LetterTemplate{UsageCount: 5}, models.Dispute{})
	many := Score(models.LetterTemplate{UsageCount: 500}, models.Dispute{})

	assert.InDelta(t, 0.5, few, 1e-9)
	assert.InDelta(t, 1.0, many, 1e-9)
}

func TestScoreRoundOptimizedOnlyEarlyRounds(t *testing.T) {
	template := models.LetterTemplate{RoundOptimized: true}

	early := Score(template, models.Dispute{RoundNumber: 3})
	late := Score(template, models.Dispute{RoundNumber: 4})
	unset := Score(template, models.Dispute{})

	assert.Equal(t, 1.0, early)
	assert.Equal(t, 0.0, late)
	assert.Equal(t, 1.0, unset)
}

func TestSelect(t *testing.T) {
	dispute := models.Dispute{DisputeType: "inquiry", Bureau: "experian"}
	templates := []models.LetterTemplate{
		{ID: "a", DisputeTypes: []string{"collection"}, Active: true},
		{ID: "b", DisputeTypes: []string{"inquiry"}, BureauTargets: []string{"experian"}, Active: true},
		{ID: "c", DisputeTypes: []string{"inquiry"}, Active: true},
	}

	best, ok := Select(templates, dispute)
	require.True(t, ok)
	assert.Equal(t, "b", best.ID)
}

func TestSelectTiesKeepFirst(t *testing.T) {
	templates := []models.LetterTemplate{
		{ID: "first", Active: true},
		{ID: "second", Active: true},
	}

	best, ok := Select(templates, models.Dispute{})
	require.True(t, ok)
	assert.Equal(t, "first", best.ID)
}

func TestSelectSkipsInactive(t *testing.T) {
	templates := []models.LetterTemplate{
		{ID: "retired", DisputeTypes: []string{"inquiry"}, Active: false},
		{ID: "live", Active: true},
	}

	best, ok := Select(templates, models.Dispute{DisputeType: "inquiry"})
	require.True(t, ok)
	assert.Equal(t, "live", best.ID)

	_, ok = Select(nil, models.Dispute{})
	assert.False(t, ok)
}

func TestRender(t *testing.T) {
	engine := New("Acme Credit")
	template := models.LetterTemplate{
		Content:   "Dear {{bureau_name}},\n\nI am {{client_full_name}} regarding account {{account_number_masked}} ({{unknown_thing}}).",
		Variables: []string{"bureau_name", "client_full_name", "account_number_masked", "unknown_thing"},
	}
	dispute := models.Dispute{Bureau: "transunion", AccountNumber: "12345678"}
	client := models.Client{FirstName: "Jane", LastName: "Doe"}

	content, missing := engine.Render(template, dispute, client, renderedAt)

	assert.Contains(t, content, "Dear TransUnion LLC,")
	assert.Contains(t, content, "I am Jane Doe")
	assert.Contains(t, content, "XXXX5678")
	// Unresolved placeholders stay in place and are reported.
	assert.Contains(t, content, "{{unknown_thing}}")
	assert.Equal(t, []string{"unknown_thing"}, missing)
}

func TestRenderDateAndDefaults(t *testing.T) {
	engine := New("")
	template := models.LetterTemplate{
		Content:   "{{current_date}} / {{organization_name}} / {{account_name}} / {{round_number}}",
		Variables: []string{"current_date", "organization_name", "account_name", "round_number"},
	}

	content, missing := engine.Render(template, models.Dispute{}, models.Client{}, renderedAt)

	assert.Empty(t, missing)
	assert.Equal(t, "February 10, 2026 / CreditBeast / N/A / 1", content)
}

func TestRenderOnlyDeclaredVariables(t *testing.T) {
	engine := New("Acme Credit")
	template := models.LetterTemplate{
		Content:   "{{client_first_name}} {{client_last_name}}",
		Variables: []string{"client_first_name"},
	}

	content, missing := engine.Render(template, models.Dispute{}, models.Client{FirstName: "Jane", LastName: "Doe"}, renderedAt)

	assert.Equal(t, "Jane {{client_last_name}}", content)
	assert.Empty(t, missing)
}

func TestBureauAddress(t *testing.T) {
	tests := []struct {
		bureau       string
		expectedName string
	}{
		{"equifax", "Equifax Information Services LLC"},
		{"experian", "Experian"},
		{"transunion", "TransUnion LLC"},
		{"TransUnion", "TransUnion LLC"},
		{"all", "All Credit Reporting Agencies"},
		{"", "Equifax Information Services LLC"},
	}

	for _, tt := range tests {
		name, address := BureauAddress(tt.bureau)
		assert.Equal(t, tt.expectedName, name)
		assert.NotEmpty(t, address)
	}
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "XXX-XX-6789", MaskSSN("123-45-6789"))
	assert.Equal(t, "XXX-XX-XXXX", MaskSSN(""))
	assert.Equal(t, "XXXX5678", MaskAccountNumber("12345678"))
	assert.Equal(t, "XXXX", MaskAccountNumber("12"))
	assert.Equal(t, "XX/XX/1985", MaskDOB("1985-06-15"))
	assert.Equal(t, "XX/XX/1990", MaskDOB("1990-01-02T00:00:00Z"))
	assert.Equal(t, "XX/XX/XXXX", MaskDOB("june"))
	assert.Equal(t, "XX/XX/XXXX", MaskDOB(""))
}

func TestBuiltinSelection(t *testing.T) {
	tests := []struct {
		disputeType  string
		nameFragment string
	}{
		{"inquiry", "Inquiry"},
		{"collection", "Collection"},
		{"collections", "Collection"},
		{"late_payment", "Late Payment"},
		{"charge_off", "Charge-Off"},
		{"chargeoff", "Charge-Off"},
		{"something_else", "Standard"},
		{"", "Standard"},
	}

	for _, tt := range tests {
		t.Run(tt.disputeType, func(t *testing.T) {
			template := Builtin(tt.disputeType)
			assert.Equal(t, DefaultTemplateID, template.ID)
			assert.Contains(t, template.Name, tt.nameFragment)
			assert.True(t, template.Active)
			assert.NotEmpty(t, template.Variables)
		})
	}
}

func TestBuiltinTemplatesRenderCleanly(t *testing.T) {
	engine := New("Acme Credit")
	dispute := models.Dispute{
		Bureau:        "equifax",
		DisputeType:   "collection",
		AccountName:   "Midland Funding",
		AccountNumber: "99887766",
		DisputeReason: "not mine",
		RoundNumber:   1,
	}
	client := models.Client{
		FirstName: "Jane", LastName: "Doe",
		Address: "1 Main St", City: "Austin", State: "TX", Zip: "78701",
		SSN: "123-45-6789", DOB: "1985-06-15",
	}

	for _, disputeType := range []string{"inquiry", "collection", "late_payment", "charge_off", "other"} {
		t.Run(disputeType, func(t *testing.T) {
			dispute.DisputeType = disputeType
			template := Builtin(disputeType)

			content, missing := engine.Render(template, dispute, client, renderedAt)

			assert.Empty(t, missing)
			assert.False(t, strings.Contains(content, "{{"),
				"unresolved placeholder in rendered letter:\n%s", content)
			assert.Contains(t, content, "Jane Doe")
		})
	}
}
