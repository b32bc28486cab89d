// internal/models/template.go
package models

// LetterTemplate is a dispute letter template from the org catalog.
type LetterTemplate struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Content        string   `json:"content"`
	Variables      []string `json:"variables,omitempty"`
	DisputeTypes   []string `json:"disputeTypes,omitempty"`
	BureauTargets  []string `json:"bureauTargets,omitempty"`
	Priority       float64  `json:"priority"`
	RoundOptimized bool     `json:"roundOptimized"`
	SuccessRate    float64  `json:"successRate"`
	UsageCount     int      `json:"usageCount"`
	Active         bool     `json:"active"`
}

// RenderedLetter is a fully substituted dispute letter.
type RenderedLetter struct {
	DisputeID     string   `json:"disputeId"`
	TemplateID    string   `json:"templateId"`
	TemplateName  string   `json:"templateUsed"`
	Content       string   `json:"content"`
	VariablesUsed []string `json:"variablesUsed,omitempty"`
	MissingVars   []string `json:"missingVariables,omitempty"`
	GeneratedAt   string   `json:"generatedAt"`
}
