package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"credit-workers/internal/models"
)

func retryConfigCacheKey(orgID string) string {
	return "config:retry_config:" + orgID
}

func dunningStepsCacheKey(orgID string) string {
	return "config:dunning_steps:" + orgID
}

// GetFailedPayment loads a failed payment record, or nil when it does not
// exist.
func (r *Repository) GetFailedPayment(ctx context.Context, paymentID string) (*models.FailedPayment, error) {
	var p models.FailedPayment

	err := r.db.QueryRowContext(ctx, `
		SELECT id, client_id, COALESCE(invoice_id, ''), amount_cents,
		       COALESCE(payment_method, ''), COALESCE(failure_reason, ''),
		       COALESCE(retry_count, 0), COALESCE(status, ''),
		       COALESCE(created_at::text, '')
		FROM failed_payments
		WHERE id = $1`, paymentID).Scan(
		&p.ID, &p.ClientID, &p.InvoiceID, &p.AmountCents,
		&p.PaymentMethod, &p.FailureReason, &p.RetryCount,
		&p.Status, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed payment %s: %w", paymentID, err)
	}
	return &p, nil
}

// GetRetryConfig returns the organization's active retry configuration,
// or nil when none exists. Cached.
func (r *Repository) GetRetryConfig(ctx context.Context, orgID string) (*models.RetryConfig, error) {
	var config models.RetryConfig
	err := cachedJSON(ctx, r, retryConfigCacheKey(orgID), &config, func(ctx context.Context) (interface{}, error) {
		return r.loadRetryConfig(ctx, orgID)
	})
	if err != nil {
		return nil, err
	}
	if config.ID == "" {
		return nil, nil
	}
	return &config, nil
}

func (r *Repository) loadRetryConfig(ctx context.Context, orgID string) (*models.RetryConfig, error) {
	var config models.RetryConfig
	var strategy string
	var tiers []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, strategy, COALESCE(initial_delay_hours, 24),
		       COALESCE(max_retries, 3), COALESCE(amount_tiers, '[]'), is_active
		FROM payment_retry_configs
		WHERE organization_id = $1 AND is_active = true
		ORDER BY updated_at DESC
		LIMIT 1`, orgID).Scan(
		&config.ID, &config.Name, &strategy,
		&config.InitialDelayHours, &config.MaxRetries, &tiers, &config.Active,
	)
	if err == sql.ErrNoRows {
		return &models.RetryConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get retry config for org %s: %w", orgID, err)
	}

	config.Strategy = models.BackoffPolicy(strategy)
	if err := json.Unmarshal(tiers, &config.Tiers); err != nil {
		return nil, fmt.Errorf("decode amount tiers for config %s: %w", config.ID, err)
	}
	return &config, nil
}

// SaveRetryPlan persists the plan and advances the payment's retry state.
func (r *Repository) SaveRetryPlan(ctx context.Context, paymentID string, plan models.RetryPlan) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE failed_payments
		SET retry_count = $1, next_retry_at = $2, retry_strategy = $3,
		    status = 'retry_scheduled', updated_at = $4
		WHERE id = $5`,
		plan.RetryCount, plan.NextRetryDate, string(plan.Strategy),
		time.Now().UTC(), paymentID,
	)
	if err != nil {
		return fmt.Errorf("save retry plan for %s: %w", paymentID, err)
	}
	return nil
}

// GetDunningSteps returns the organization's dunning sequence definition,
// ordered by step number. Cached.
func (r *Repository) GetDunningSteps(ctx context.Context, orgID string) ([]models.DunningStep, error) {
	var steps []models.DunningStep
	err := cachedJSON(ctx, r, dunningStepsCacheKey(orgID), &steps, func(ctx context.Context) (interface{}, error) {
		return r.loadDunningSteps(ctx, orgID)
	})
	return steps, err
}

func (r *Repository) loadDunningSteps(ctx context.Context, orgID string) ([]models.DunningStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step_number, email_template_key, COALESCE(subject, ''),
		       COALESCE(body_html, ''), COALESCE(channel, 'email'),
		       COALESCE(delay_hours, 24), min_amount,
		       COALESCE(is_final, false), is_active
		FROM dunning_steps
		WHERE organization_id = $1
		ORDER BY step_number`, orgID)
	if err != nil {
		return nil, fmt.Errorf("query dunning steps for org %s: %w", orgID, err)
	}
	defer rows.Close()

	steps := []models.DunningStep{}
	for rows.Next() {
		var step models.DunningStep
		var minAmount sql.NullFloat64
		if err := rows.Scan(
			&step.StepNumber, &step.EmailTemplateKey, &step.Subject,
			&step.BodyHTML, &step.Channel, &step.DelayHours,
			&minAmount, &step.IsFinal, &step.Active,
		); err != nil {
			return nil, err
		}
		if minAmount.Valid {
			v := minAmount.Float64
			step.MinAmount = &v
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}

// GetDunningState loads the sequence position for a failed payment, or
// nil when no sequence has been started.
func (r *Repository) GetDunningState(ctx context.Context, failedPaymentID string) (*models.DunningSequenceState, error) {
	var state models.DunningSequenceState
	var lastStepAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT failed_payment_id, current_step, status, started_at, last_step_at
		FROM dunning_sequence_states
		WHERE failed_payment_id = $1`, failedPaymentID).Scan(
		&state.FailedPaymentID, &state.CurrentStep, &state.Status,
		&state.StartedAt, &lastStepAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dunning state for %s: %w", failedPaymentID, err)
	}

	if lastStepAt.Valid {
		t := lastStepAt.Time
		state.LastStepAt = &t
	}
	return &state, nil
}

// SaveDunningState upserts the sequence position for a failed payment.
func (r *Repository) SaveDunningState(ctx context.Context, state models.DunningSequenceState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dunning_sequence_states
			(failed_payment_id, current_step, status, started_at, last_step_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (failed_payment_id) DO UPDATE
		SET current_step = EXCLUDED.current_step,
		    status = EXCLUDED.status,
		    last_step_at = EXCLUDED.last_step_at,
		    updated_at = EXCLUDED.updated_at`,
		state.FailedPaymentID, state.CurrentStep, state.Status,
		state.StartedAt, state.LastStepAt, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save dunning state for %s: %w", state.FailedPaymentID, err)
	}
	return nil
}

// RecordDunningDelivery logs one sent dunning notice.
func (r *Repository) RecordDunningDelivery(ctx context.Context, failedPaymentID string, stepNumber int, channel, providerMessageID string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dunning_deliveries
			(failed_payment_id, step_number, channel, provider_message_id, sent_at)
		VALUES ($1, $2, $3, $4, $5)`,
		failedPaymentID, stepNumber, channel, providerMessageID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("record dunning delivery for %s: %w", failedPaymentID, err)
	}
	return nil
}
