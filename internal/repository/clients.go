package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"credit-workers/internal/models"
)

// historyWindow limits how much client history feeds the churn predictor.
const (
	historyDisputeLimit  = 50
	historyPaymentLimit  = 50
	historyEmailLimit    = 50
	historyDocumentLimit = 100
)

// GetClient loads a client record, or nil when it does not exist.
func (r *Repository) GetClient(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	var createdAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(first_name, ''), COALESCE(last_name, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address, ''), COALESCE(city, ''),
		       COALESCE(state, ''), COALESCE(zip, ''),
		       COALESCE(ssn, ''), COALESCE(dob, ''), created_at
		FROM clients
		WHERE id = $1`, clientID).Scan(
		&client.ID, &client.FirstName, &client.LastName, &client.Email,
		&client.Phone, &client.Address, &client.City, &client.State,
		&client.Zip, &client.SSN, &client.DOB, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", clientID, err)
	}

	if createdAt.Valid {
		t := createdAt.Time
		client.CreatedAt = &t
	}
	return &client, nil
}

// GetClientHistory assembles the history bundle the churn predictor needs.
// Communications come from Elasticsearch when available; a missing or
// failing search cluster falls back to the SQL email log.
func (r *Repository) GetClientHistory(ctx context.Context, clientID string) (models.ClientHistory, error) {
	var history models.ClientHistory
	var err error

	if history.Disputes, err = r.clientDisputes(ctx, clientID); err != nil {
		return history, err
	}
	if history.Payments, err = r.clientPayments(ctx, clientID); err != nil {
		return history, err
	}
	if history.Documents, err = r.clientDocuments(ctx, clientID); err != nil {
		return history, err
	}

	history.Communications, err = r.searchCommunications(ctx, clientID)
	if err != nil {
		r.logger.Warn("communication search failed, using SQL fallback", map[string]interface{}{
			"clientId": clientID,
			"error":    err.Error(),
		})
		history.Communications, err = r.clientEmailLog(ctx, clientID)
	}
	return history, err
}

// GetClientPreferences loads communication preferences, defaulting to a
// neutral 0.5 responsiveness when none are stored.
func (r *Repository) GetClientPreferences(ctx context.Context, clientID string) (*models.ClientPreferences, error) {
	var prefs models.ClientPreferences

	err := r.db.QueryRowContext(ctx, `
		SELECT prefers_frequent_updates, responsiveness_score
		FROM client_preferences
		WHERE client_id = $1`, clientID).Scan(
		&prefs.PrefersFrequentUpdates, &prefs.ResponsivenessScore,
	)
	if err == sql.ErrNoRows {
		return &models.ClientPreferences{ResponsivenessScore: 0.5}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client preferences for %s: %w", clientID, err)
	}
	return &prefs, nil
}

func (r *Repository) clientDisputes(ctx context.Context, clientID string) ([]models.DisputeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(result, ''), COALESCE(bureau, ''), created_at
		FROM disputes
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, clientID, historyDisputeLimit)
	if err != nil {
		return nil, fmt.Errorf("query disputes for %s: %w", clientID, err)
	}
	defer rows.Close()

	var records []models.DisputeRecord
	for rows.Next() {
		var d models.DisputeRecord
		if err := rows.Scan(&d.Result, &d.Bureau, &d.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

func (r *Repository) clientPayments(ctx context.Context, clientID string) ([]models.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(status, ''), COALESCE(amount, 0), created_at
		FROM payments
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, clientID, historyPaymentLimit)
	if err != nil {
		return nil, fmt.Errorf("query payments for %s: %w", clientID, err)
	}
	defer rows.Close()

	var records []models.PaymentRecord
	for rows.Next() {
		var p models.PaymentRecord
		if err := rows.Scan(&p.Status, &p.Amount, &p.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

func (r *Repository) clientDocuments(ctx context.Context, clientID string) ([]models.DocumentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT created_at
		FROM documents
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, clientID, historyDocumentLimit)
	if err != nil {
		return nil, fmt.Errorf("query documents for %s: %w", clientID, err)
	}
	defer rows.Close()

	var records []models.DocumentRecord
	for rows.Next() {
		var d models.DocumentRecord
		if err := rows.Scan(&d.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

func (r *Repository) clientEmailLog(ctx context.Context, clientID string) ([]models.EmailRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(status, ''), COALESCE(subject, ''),
		       COALESCE(body_text, ''), opened_at,
		       COALESCE(click_count, 0), created_at
		FROM email_logs
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, clientID, historyEmailLimit)
	if err != nil {
		return nil, fmt.Errorf("query email logs for %s: %w", clientID, err)
	}
	defer rows.Close()

	var records []models.EmailRecord
	for rows.Next() {
		var e models.EmailRecord
		var openedAt sql.NullTime
		if err := rows.Scan(&e.Status, &e.Subject, &e.BodyText, &openedAt, &e.ClickCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		if openedAt.Valid {
			t := openedAt.Time
			e.OpenedAt = &t
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

// SaveChurnPrediction persists a churn assessment for reporting.
func (r *Repository) SaveChurnPrediction(ctx context.Context, orgID string, prediction models.ChurnPrediction) error {
	factors, err := json.Marshal(prediction.Factors)
	if err != nil {
		return fmt.Errorf("encode risk factors: %w", err)
	}
	actions, err := json.Marshal(prediction.RecommendedActions)
	if err != nil {
		return fmt.Errorf("encode recommended actions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO churn_predictions
			(organization_id, client_id, churn_probability, risk_level,
			 confidence, horizon_days, risk_factors, recommended_actions,
			 created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		orgID, prediction.ClientID, prediction.ChurnProbability,
		string(prediction.RiskLevel), prediction.Confidence,
		prediction.HorizonDays, factors, actions, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save churn prediction for %s: %w", prediction.ClientID, err)
	}
	return nil
}

// searchCommunications pulls the most recent email activity for a client
// from the search cluster.
func (r *Repository) searchCommunications(ctx context.Context, clientID string) ([]models.EmailRecord, error) {
	if r.es == nil {
		return nil, fmt.Errorf("elasticsearch not configured")
	}

	query := fmt.Sprintf(`{
		"query": {"term": {"client_id": %q}},
		"sort": [{"created_at": {"order": "desc"}}],
		"size": %d
	}`, clientID, historyEmailLimit)

	body, err := r.es.Search(ctx, r.emailIndex, query)
	if err != nil {
		return nil, err
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source struct {
					Status     string     `json:"status"`
					Subject    string     `json:"subject"`
					BodyText   string     `json:"body_text"`
					OpenedAt   *time.Time `json:"opened_at"`
					ClickCount int        `json:"click_count"`
					CreatedAt  time.Time  `json:"created_at"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	records := make([]models.EmailRecord, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		records = append(records, models.EmailRecord{
			Status:     hit.Source.Status,
			Subject:    hit.Source.Subject,
			BodyText:   hit.Source.BodyText,
			OpenedAt:   hit.Source.OpenedAt,
			ClickCount: hit.Source.ClickCount,
			CreatedAt:  hit.Source.CreatedAt,
		})
	}
	return records, nil
}
