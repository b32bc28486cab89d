// Package criteria scores single facts about a lead against weighted rules.
// Every evaluator is a pure function: missing input yields 0.0 with a
// "not provided" reason, never an error.
package criteria

import (
	"fmt"
	"regexp"
	"strings"

	"credit-workers/internal/common/validation"
	"credit-workers/internal/models"
)

// Evaluate scores one criterion against a lead and applies its weight.
func Evaluate(c models.Criterion, lead models.Lead) models.CriterionScore {
	var raw float64
	var reasoning []string

	switch c.Kind {
	case models.CriterionEmailDomain:
		raw, reasoning = scoreEmailDomain(lead.Email, c.PositiveValues, c.NegativeValues)
	case models.CriterionPhoneFormat:
		raw, reasoning = scorePhoneFormat(lead.Phone, c.Pattern)
	case models.CriterionAddressValidity:
		raw, reasoning = scoreAddressValidity(lead)
	case models.CriterionUTMSource:
		raw, reasoning = scoreSourceQuality("UTM source", lead.UTMSource, c.PositiveValues, c.NegativeValues)
	case models.CriterionLeadSource:
		raw, reasoning = scoreSourceQuality("Lead source", lead.LeadSource, c.PositiveValues, c.NegativeValues)
	case models.CriterionNameCompleteness:
		raw, reasoning = scoreNameCompleteness(lead.FirstName, lead.LastName)
	case models.CriterionCreditConcern:
		raw, reasoning = scoreCreditConcern(lead.CustomFields)
	case models.CriterionDemographicFit:
		raw, reasoning = scoreDemographicFit(lead.State)
	default:
		raw = c.Threshold
		reasoning = []string{fmt.Sprintf("Unknown criteria type: %s, using threshold score", c.Kind)}
	}

	return models.CriterionScore{
		Kind:          c.Kind,
		RawScore:      raw,
		WeightedScore: raw * c.Weight,
		Weight:        c.Weight,
		Reasoning:     reasoning,
	}
}

func scoreEmailDomain(email string, positive, negative []string) (float64, []string) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return 0.0, []string{"No email provided"}
	}

	var domain string
	if at := strings.Index(email, "@"); at >= 0 {
		domain = email[at+1:]
	}
	if domain == "" {
		return 0.0, []string{"Invalid email format"}
	}

	if contains(positive, domain) {
		return 1.0, []string{fmt.Sprintf("Email domain %s is in positive list", domain)}
	}
	if contains(negative, domain) {
		return 0.0, []string{fmt.Sprintf("Email domain %s is in negative list", domain)}
	}
	return 0.5, []string{fmt.Sprintf("Email domain %s is not in known lists", domain)}
}

func scorePhoneFormat(phone, pattern string) (float64, []string) {
	if phone == "" {
		return 0.0, []string{"No phone number provided"}
	}

	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err == nil {
			if re.MatchString(phone) {
				return 1.0, []string{"Phone number matches profile pattern"}
			}
			return 0.0, []string{"Phone number does not match profile pattern"}
		}
		// Invalid pattern: fall through to the digit-length tiers.
	}

	digits := validation.DigitsOnly(phone)
	switch {
	case len(digits) == 10:
		return 1.0, []string{"Valid 10-digit phone number"}
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return 0.9, []string{"Valid 11-digit phone number with country code"}
	case len(digits) >= 10:
		return 0.7, []string{"Phone number format needs verification"}
	default:
		return 0.0, []string{"Invalid phone number format"}
	}
}

func scoreAddressValidity(lead models.Lead) (float64, []string) {
	fields := []string{lead.Address, lead.City, lead.State, lead.Zip}
	provided := 0
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			provided++
		}
	}

	completeness := float64(provided) / float64(len(fields))
	switch {
	case completeness == 1.0:
		return completeness, []string{"Complete address provided"}
	case completeness >= 0.75:
		return completeness, []string{"Nearly complete address provided"}
	case completeness >= 0.5:
		return completeness, []string{"Partial address provided"}
	default:
		return completeness, []string{"Incomplete address provided"}
	}
}

func scoreSourceQuality(label, source string, positive, negative []string) (float64, []string) {
	source = strings.ToLower(strings.TrimSpace(source))
	if source == "" {
		return 0.0, []string{fmt.Sprintf("No %s provided", strings.ToLower(label))}
	}

	if contains(positive, source) {
		return 1.0, []string{fmt.Sprintf("%s %s is high quality", label, source)}
	}
	if contains(negative, source) {
		return 0.0, []string{fmt.Sprintf("%s %s is low quality", label, source)}
	}
	return 0.5, []string{fmt.Sprintf("%s %s is moderate quality", label, source)}
}

func scoreNameCompleteness(first, last string) (float64, []string) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	switch {
	case first != "" && last != "":
		return 1.0, []string{"Complete name provided"}
	case first != "" || last != "":
		return 0.5, []string{"Partial name provided"}
	default:
		return 0.0, []string{"No name provided"}
	}
}

var urgencyIndicators = []string{"urgent", "asap", "immediately", "soon"}

func scoreCreditConcern(customFields map[string]interface{}) (float64, []string) {
	concernLevel := ""
	if v, ok := customFields["concern_level"].(string); ok {
		concernLevel = strings.ToLower(v)
	}

	for _, indicator := range urgencyIndicators {
		if strings.Contains(concernLevel, indicator) {
			return 0.8, []string{"High concern level indicated"}
		}
	}
	if concernLevel == "low" || concernLevel == "minor" || concernLevel == "curious" {
		return 0.3, []string{"Low concern level indicated"}
	}
	return 0.5, nil
}

var highDemandStates = []string{"CA", "TX", "FL", "NY", "PA", "IL", "OH", "GA", "NC", "MI"}

func scoreDemographicFit(state string) (float64, []string) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if contains(highDemandStates, state) && state != "" {
		return 0.8, []string{fmt.Sprintf("State %s has high credit repair demand", state)}
	}
	if state != "" {
		return 0.6, []string{fmt.Sprintf("State %s has moderate credit repair demand", state)}
	}
	return 0.5, []string{"No state information provided"}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
