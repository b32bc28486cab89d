// Package letters selects the best dispute letter template for a dispute
// and renders it by substituting {{variable}} placeholders. Rendering never
// fails on a missing variable; unresolved placeholders are reported back.
package letters

import (
	"fmt"
	"math"
	"strings"
	"time"

	"credit-workers/internal/models"
)

// DefaultTemplateID is the sentinel returned when an organization has no
// templates; it resolves to a built-in template keyed by dispute type.
const DefaultTemplateID = "default_dispute_template"

// Engine renders letters. Holds only the organization display name.
type Engine struct {
	orgName string
}

func New(orgName string) *Engine {
	if orgName == "" {
		orgName = "CreditBeast"
	}
	return &Engine{orgName: orgName}
}

// Select scores every active template against the dispute and returns the
// best one. Ties keep the earlier template (stable). ok is false when the
// catalog is empty; callers then fall back to Builtin.
func Select(templates []models.LetterTemplate, dispute models.Dispute) (models.LetterTemplate, bool) {
	var best models.LetterTemplate
	bestScore := math.Inf(-1)
	found := false

	for _, t := range templates {
		if !t.Active {
			continue
		}
		score := Score(t, dispute)
		if !found || score > bestScore {
			best = t
			bestScore = score
			found = true
		}
	}
	return best, found
}

// Score computes a template's suitability for the dispute.
func Score(t models.LetterTemplate, dispute models.Dispute) float64 {
	score := t.Priority * 0.3

	for _, dt := range t.DisputeTypes {
		if dt == dispute.DisputeType {
			score += 2.0
			break
		}
	}

	for _, b := range t.BureauTargets {
		if b == dispute.Bureau {
			score += 1.5
			break
		}
	}

	round := dispute.RoundNumber
	if round == 0 {
		round = 1
	}
	if t.RoundOptimized && round <= 3 {
		score += 1.0
	}

	score += t.SuccessRate * 2.0

	if t.UsageCount > 0 {
		score += math.Min(float64(t.UsageCount)*0.1, 1.0)
	}

	return score
}

// Render substitutes the template's declared variables into its content.
// Variables declared but absent from the mapping are left in place and
// returned as missing.
func (e *Engine) Render(t models.LetterTemplate, dispute models.Dispute, client models.Client, now time.Time) (string, []string) {
	vars := e.variableMap(dispute, client, now)
	content := t.Content

	var missing []string
	for _, name := range t.Variables {
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		content = strings.ReplaceAll(content, "{{"+name+"}}", value)
	}
	return content, missing
}

func (e *Engine) variableMap(dispute models.Dispute, client models.Client, now time.Time) map[string]string {
	round := dispute.RoundNumber
	if round == 0 {
		round = 1
	}

	bureauName, bureauAddress := BureauAddress(dispute.Bureau)

	return map[string]string{
		"client_first_name":     client.FirstName,
		"client_last_name":      client.LastName,
		"client_full_name":      strings.TrimSpace(client.FirstName + " " + client.LastName),
		"client_name":           strings.TrimSpace(client.FirstName + " " + client.LastName),
		"client_email":          client.Email,
		"client_phone":          client.Phone,
		"client_address":        formatAddress(client),
		"client_street":         client.Address,
		"client_city":           client.City,
		"client_state":          client.State,
		"client_zip":            client.Zip,
		"client_ssn_masked":     MaskSSN(client.SSN),
		"client_dob_masked":     MaskDOB(client.DOB),
		"dispute_type":          titleCase(dispute.DisputeType),
		"account_name":          orDefault(dispute.AccountName, "N/A"),
		"account_number_masked": MaskAccountNumber(dispute.AccountNumber),
		"dispute_reason":        dispute.DisputeReason,
		"dispute_basis":         disputeBasis(dispute.DisputeReason),
		"action_requested":      "remove this item from my credit report or correct the inaccurate information",
		"correction_requested":  "delete or correct the disputed information",
		"supporting_documents":  "documentation",
		"bureau_name":           bureauName,
		"bureau_address":        bureauAddress,
		"round_number":          fmt.Sprintf("%d", round),
		"current_date":          now.Format("January 02, 2006"),
		"date":                  now.Format("January 02, 2006"),
		"organization_name":     e.orgName,
		"inquiry_date":          orDefault(dispute.InquiryDate, "N/A"),
		"collection_amount":     orDefault(dispute.CollectionAmount, "N/A"),
		"charge_off_amount":     orDefault(dispute.ChargeOffAmount, "N/A"),
		"charge_off_date":       orDefault(dispute.ChargeOffDate, "N/A"),
		"late_payment_dates":    orDefault(dispute.LatePaymentDates, "N/A"),
	}
}

// BureauAddress returns the legal name and mailing address for a bureau
// code, defaulting to Equifax for unknown codes.
func BureauAddress(bureau string) (string, string) {
	switch strings.ToLower(bureau) {
	case "experian":
		return "Experian", "P.O. Box 4500\nAllen, TX 75013"
	case "transunion":
		return "TransUnion LLC", "P.O. Box 2000\nChester, PA 19016"
	case "all":
		return "All Credit Reporting Agencies", "P.O. Box 740256\nAtlanta, GA 30374"
	default:
		return "Equifax Information Services LLC", "P.O. Box 740256\nAtlanta, GA 30374"
	}
}

// MaskSSN keeps the last four digits only.
func MaskSSN(ssn string) string {
	if len(ssn) >= 4 {
		return "XXX-XX-" + ssn[len(ssn)-4:]
	}
	return "XXX-XX-XXXX"
}

// MaskAccountNumber keeps the last four characters only.
func MaskAccountNumber(account string) string {
	if len(account) >= 4 {
		return "XXXX" + account[len(account)-4:]
	}
	return "XXXX"
}

// MaskDOB keeps the year only.
func MaskDOB(dob string) string {
	if dob == "" {
		return "XX/XX/XXXX"
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, dob); err == nil {
			return fmt.Sprintf("XX/XX/%d", t.Year())
		}
	}
	return "XX/XX/XXXX"
}

func disputeBasis(reason string) string {
	reason = strings.ToLower(reason)
	switch {
	case strings.Contains(reason, "not mine") || strings.Contains(reason, "not my"):
		return "not my account and I never authorized it"
	case strings.Contains(reason, "paid"):
		return "inaccurate because this account has been paid in full"
	case strings.Contains(reason, "incorrect") || strings.Contains(reason, "inaccurate"):
		return "reporting inaccurate information"
	case strings.Contains(reason, "duplicate"):
		return "a duplicate entry and should be removed"
	case strings.Contains(reason, "unauthorized"):
		return "unauthorized and I have no knowledge of this account"
	default:
		return "inaccurate and requires correction"
	}
}

func formatAddress(client models.Client) string {
	var parts []string
	for _, p := range []string{client.Address, client.City, client.State, client.Zip} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
