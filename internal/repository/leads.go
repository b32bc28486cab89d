package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"credit-workers/internal/models"
)

func profileCacheKey(orgID string) string {
	return "config:scoring_profile:" + orgID
}

// GetLead loads a lead record.
func (r *Repository) GetLead(ctx context.Context, leadID string) (*models.Lead, error) {
	var lead models.Lead
	var customFields []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address, ''), COALESCE(city, ''),
		       COALESCE(state, ''), COALESCE(zip, ''),
		       COALESCE(utm_source, ''), COALESCE(lead_source, ''),
		       custom_fields,
		       COALESCE(created_at::text, '')
		FROM leads
		WHERE id = $1`, leadID).Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.Address, &lead.City, &lead.State, &lead.Zip,
		&lead.UTMSource, &lead.LeadSource, &customFields, &lead.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lead %s: %w", leadID, err)
	}

	if len(customFields) > 0 {
		if err := json.Unmarshal(customFields, &lead.CustomFields); err != nil {
			r.logger.Warn("lead custom_fields not valid JSON, ignoring", map[string]interface{}{
				"leadId": leadID,
			})
		}
	}
	return &lead, nil
}

// GetActiveScoringProfile returns the organization's active scoring
// profile, or nil when none exists. The result is cached.
func (r *Repository) GetActiveScoringProfile(ctx context.Context, orgID string) (*models.ScoringProfile, error) {
	var profile models.ScoringProfile
	err := cachedJSON(ctx, r, profileCacheKey(orgID), &profile, func(ctx context.Context) (interface{}, error) {
		return r.loadScoringProfile(ctx, orgID)
	})
	if err != nil {
		return nil, err
	}
	if profile.ID == "" {
		return nil, nil
	}
	return &profile, nil
}

func (r *Repository) loadScoringProfile(ctx context.Context, orgID string) (*models.ScoringProfile, error) {
	var profile models.ScoringProfile
	var criteria []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, criteria, qualify_threshold, review_threshold,
		       disqualify_threshold, is_active
		FROM lead_scoring_profiles
		WHERE organization_id = $1 AND is_active = true
		ORDER BY updated_at DESC
		LIMIT 1`, orgID).Scan(
		&profile.ID, &profile.Name, &criteria,
		&profile.QualifyThreshold, &profile.ReviewThreshold,
		&profile.DisqualifyThreshold, &profile.Active,
	)
	if err == sql.ErrNoRows {
		return &models.ScoringProfile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scoring profile for org %s: %w", orgID, err)
	}

	if err := json.Unmarshal(criteria, &profile.Criteria); err != nil {
		return nil, fmt.Errorf("decode criteria for profile %s: %w", profile.ID, err)
	}
	return &profile, nil
}

// SaveScoringProfile persists a scoring profile and returns its id. The
// cached profile for the organization is dropped so the next read sees
// the new row.
func (r *Repository) SaveScoringProfile(ctx context.Context, orgID string, profile models.ScoringProfile) (string, error) {
	id := profile.ID
	if id == "" {
		id = uuid.NewString()
	}

	criteria, err := json.Marshal(profile.Criteria)
	if err != nil {
		return "", fmt.Errorf("encode criteria: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lead_scoring_profiles
			(id, organization_id, name, criteria, qualify_threshold,
			 review_threshold, disqualify_threshold, is_active,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, orgID, profile.Name, criteria,
		profile.QualifyThreshold, profile.ReviewThreshold,
		profile.DisqualifyThreshold, profile.Active, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("save scoring profile for org %s: %w", orgID, err)
	}

	if r.cache != nil {
		if err := r.cache.Del(ctx, profileCacheKey(orgID)); err != nil {
			r.logger.Warn("profile cache invalidation failed", map[string]interface{}{
				"organizationId": orgID,
				"error":          err.Error(),
			})
		}
	}
	return id, nil
}

// SaveLeadScore persists a scoring outcome.
func (r *Repository) SaveLeadScore(ctx context.Context, orgID string, score models.LeadScore) (string, error) {
	id := uuid.NewString()

	criteriaScores, err := json.Marshal(score.Result.CriteriaScores)
	if err != nil {
		return "", fmt.Errorf("encode criteria scores: %w", err)
	}
	actions, err := json.Marshal(score.RecommendedActions)
	if err != nil {
		return "", fmt.Errorf("encode recommended actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lead_scoring_results
			(id, organization_id, lead_id, profile_name, normalized_score,
			 raw_score, max_possible, confidence, status, criteria_scores,
			 recommended_actions, scored_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		id, orgID, score.LeadID, score.ProfileName,
		score.Result.NormalizedScore, score.Result.RawScore,
		score.Result.MaxPossible, score.Result.Confidence,
		string(score.Status), criteriaScores, actions,
		score.ScoredAt, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("save lead score for %s: %w", score.LeadID, err)
	}
	return id, nil
}

// UpdateLeadStatus writes the qualification status back onto the lead.
func (r *Repository) UpdateLeadStatus(ctx context.Context, leadID string, status models.QualificationStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE leads SET qualification_status = $1, updated_at = $2
		WHERE id = $3`,
		string(status), time.Now().UTC(), leadID,
	)
	if err != nil {
		return fmt.Errorf("update lead status for %s: %w", leadID, err)
	}
	return nil
}
