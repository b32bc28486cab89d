package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"credit-workers/internal/models"
)

func targetingRulesCacheKey(orgID string) string {
	return "config:targeting_rules:" + orgID
}

func templatesCacheKey(orgID string) string {
	return "config:letter_templates:" + orgID
}

func schedulingRulesCacheKey(orgID string) string {
	return "config:scheduling_rules:" + orgID
}

// GetDispute loads a dispute record, or nil when it does not exist.
func (r *Repository) GetDispute(ctx context.Context, disputeID string) (*models.Dispute, error) {
	var d models.Dispute

	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, COALESCE(bureau, ''), dispute_type,
		       COALESCE(account_name, ''), COALESCE(account_number, ''),
		       COALESCE(dispute_reason, ''), COALESCE(round_number, 1),
		       COALESCE(status, ''), COALESCE(inquiry_date, ''),
		       COALESCE(collection_amount, ''), COALESCE(charge_off_amount, ''),
		       COALESCE(charge_off_date, ''), COALESCE(late_payment_dates, ''),
		       COALESCE(created_at::text, '')
		FROM disputes
		WHERE id = $1`, disputeID).Scan(
		&d.ID, &d.ClientID, &d.Bureau, &d.DisputeType,
		&d.AccountName, &d.AccountNumber, &d.DisputeReason, &d.RoundNumber,
		&d.Status, &d.InquiryDate, &d.CollectionAmount, &d.ChargeOffAmount,
		&d.ChargeOffDate, &d.LatePaymentDates, &d.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dispute %s: %w", disputeID, err)
	}
	return &d, nil
}

// GetTargetingRules returns the organization's bureau targeting rules,
// cached with the standard TTL.
func (r *Repository) GetTargetingRules(ctx context.Context, orgID string) ([]models.TargetingRule, error) {
	var rules []models.TargetingRule
	err := cachedJSON(ctx, r, targetingRulesCacheKey(orgID), &rules, func(ctx context.Context) (interface{}, error) {
		return r.loadTargetingRules(ctx, orgID)
	})
	return rules, err
}

func (r *Repository) loadTargetingRules(ctx context.Context, orgID string) ([]models.TargetingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, rule_type,
		       COALESCE(dispute_types, '{}'), COALESCE(account_keywords, '{}'),
		       COALESCE(max_avg_disputes, 0), recommended_bureaus,
		       COALESCE(confidence_score, 0), COALESCE(success_history, 0),
		       COALESCE(total_applications, 0), is_active
		FROM bureau_targeting_rules
		WHERE organization_id = $1
		ORDER BY confidence_score DESC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query targeting rules for org %s: %w", orgID, err)
	}
	defer rows.Close()

	rules := []models.TargetingRule{}
	for rows.Next() {
		var rule models.TargetingRule
		var kind string
		if err := rows.Scan(
			&rule.ID, &rule.Name, &kind,
			pq.Array(&rule.DisputeTypes), pq.Array(&rule.AccountKeywords),
			&rule.MaxAvgDisputes, pq.Array(&rule.RecommendedBureaus),
			&rule.ConfidenceScore, &rule.SuccessHistory,
			&rule.TotalApplications, &rule.Active,
		); err != nil {
			return nil, err
		}
		rule.Kind = models.TargetingRuleKind(kind)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// GetTargetingHistory computes the client-level stats history-based rules
// match on. Months are counted from the first dispute, floored at one.
func (r *Repository) GetTargetingHistory(ctx context.Context, clientID string) (*models.TargetingHistory, error) {
	var total int
	var first sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(created_at)
		FROM disputes
		WHERE client_id = $1`, clientID).Scan(&total, &first)
	if err != nil {
		return nil, fmt.Errorf("query targeting history for %s: %w", clientID, err)
	}

	if total == 0 || !first.Valid {
		return &models.TargetingHistory{}, nil
	}

	months := time.Since(first.Time).Hours() / 24 / 30
	if months < 1 {
		months = 1
	}
	return &models.TargetingHistory{
		AvgDisputesPerMonth: float64(total) / months,
	}, nil
}

// RecordRuleApplication bumps a targeting rule's usage counters.
func (r *Repository) RecordRuleApplication(ctx context.Context, ruleID string, succeeded bool) error {
	success := 0
	if succeeded {
		success = 1
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE bureau_targeting_rules
		SET total_applications = total_applications + 1,
		    success_history = success_history + $1,
		    updated_at = $2
		WHERE id = $3`,
		success, time.Now().UTC(), ruleID,
	)
	if err != nil {
		return fmt.Errorf("record rule application %s: %w", ruleID, err)
	}
	return nil
}

// GetLetterTemplates returns the organization's letter template catalog,
// cached with the standard TTL.
func (r *Repository) GetLetterTemplates(ctx context.Context, orgID string) ([]models.LetterTemplate, error) {
	var templates []models.LetterTemplate
	err := cachedJSON(ctx, r, templatesCacheKey(orgID), &templates, func(ctx context.Context) (interface{}, error) {
		return r.loadLetterTemplates(ctx, orgID)
	})
	return templates, err
}

func (r *Repository) loadLetterTemplates(ctx context.Context, orgID string) ([]models.LetterTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, content, COALESCE(variables, '{}'),
		       COALESCE(dispute_types, '{}'), COALESCE(bureau_targets, '{}'),
		       COALESCE(priority, 0), COALESCE(round_optimized, false),
		       COALESCE(success_rate, 0), COALESCE(usage_count, 0), is_active
		FROM letter_templates
		WHERE organization_id = $1`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query letter templates for org %s: %w", orgID, err)
	}
	defer rows.Close()

	templates := []models.LetterTemplate{}
	for rows.Next() {
		var t models.LetterTemplate
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Content, pq.Array(&t.Variables),
			pq.Array(&t.DisputeTypes), pq.Array(&t.BureauTargets),
			&t.Priority, &t.RoundOptimized, &t.SuccessRate,
			&t.UsageCount, &t.Active,
		); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// SaveGeneratedLetter persists a rendered letter and bumps the template's
// usage count.
func (r *Repository) SaveGeneratedLetter(ctx context.Context, orgID string, letter models.RenderedLetter) (string, error) {
	id := uuid.NewString()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO generated_letters
			(id, organization_id, dispute_id, template_id, template_name,
			 content, missing_variables, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, orgID, letter.DisputeID, letter.TemplateID, letter.TemplateName,
		letter.Content, pq.Array(letter.MissingVars), letter.GeneratedAt,
	)
	if err != nil {
		return "", fmt.Errorf("save generated letter for dispute %s: %w", letter.DisputeID, err)
	}

	if letter.TemplateID != "" && letter.TemplateID != "default_dispute_template" {
		_, err = r.db.ExecContext(ctx, `
			UPDATE letter_templates SET usage_count = usage_count + 1
			WHERE id = $1`, letter.TemplateID)
		if err != nil {
			r.logger.Warn("template usage count update failed", map[string]interface{}{
				"templateId": letter.TemplateID,
				"error":      err.Error(),
			})
		}
	}
	return id, nil
}

// GetSchedulingRule returns the active cadence rule for a round, or nil
// when the organization has none. All rules are cached as one document.
func (r *Repository) GetSchedulingRule(ctx context.Context, orgID string, roundNumber int) (*models.SchedulingRule, error) {
	var rules []models.SchedulingRule
	err := cachedJSON(ctx, r, schedulingRulesCacheKey(orgID), &rules, func(ctx context.Context) (interface{}, error) {
		return r.loadSchedulingRules(ctx, orgID)
	})
	if err != nil {
		return nil, err
	}

	for i := range rules {
		if rules[i].Active && rules[i].RoundNumber == roundNumber {
			return &rules[i], nil
		}
	}
	return nil, nil
}

func (r *Repository) loadSchedulingRules(ctx context.Context, orgID string) ([]models.SchedulingRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, round_number, COALESCE(min_wait_days, 0),
		       COALESCE(max_wait_days, 0), COALESCE(follow_up_strategy, ''),
		       is_active
		FROM dispute_scheduling_rules
		WHERE organization_id = $1
		ORDER BY round_number`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query scheduling rules for org %s: %w", orgID, err)
	}
	defer rows.Close()

	rules := []models.SchedulingRule{}
	for rows.Next() {
		var rule models.SchedulingRule
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.RoundNumber,
			&rule.MinWaitDays, &rule.MaxWaitDays,
			&rule.FollowUpStrategy, &rule.Active,
		); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveScheduledTask records the follow-up task for the next round and
// returns its id.
func (r *Repository) SaveScheduledTask(ctx context.Context, orgID, disputeID string, schedule models.RoundSchedule) (string, error) {
	id := uuid.NewString()

	payload, err := json.Marshal(schedule)
	if err != nil {
		return "", fmt.Errorf("encode schedule: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks
			(id, organization_id, dispute_id, task_type, scheduled_for,
			 payload, status, created_at)
		VALUES ($1, $2, $3, 'dispute_round', $4, $5, 'pending', $6)`,
		id, orgID, disputeID, schedule.ScheduledDate, payload, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("save scheduled task for dispute %s: %w", disputeID, err)
	}
	return id, nil
}
