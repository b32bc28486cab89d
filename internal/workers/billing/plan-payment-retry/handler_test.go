// internal/workers/billing/plan-payment-retry/handler_test.go
package planpaymentretry

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credit-workers/internal/common/logger"
	"credit-workers/internal/models"
	"credit-workers/internal/repository"
)

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db, nil, nil, "", logger.NewNoOpLogger())
	return NewHandler(LoadConfig(), repo, logger.NewTestLogger(t)), mock
}

func expectNoStoredConfig(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT (.+) FROM payment_retry_configs").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func TestExecuteSchedulesRetryWithDefaultConfig(t *testing.T) {
	handler, mock := newTestHandler(t)

	expectNoStoredConfig(mock)
	mock.ExpectExec("UPDATE failed_payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment: &models.FailedPayment{
			ID:          "pay-1",
			AmountCents: 5000,
			RetryCount:  0,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, ActionRetryScheduled, output.Action)
	assert.Equal(t, 1, output.RetryCount)
	assert.Equal(t, "low", output.Tier)
	assert.Equal(t, string(models.BackoffFixed), output.Strategy)
	assert.True(t, output.Fallback)

	// Low tier is fixed backoff at half the initial delay: 12 hours out.
	next, err := time.Parse(time.RFC3339, output.NextRetryDate)
	require.NoError(t, err)
	assert.InDelta(t, 12, time.Until(next).Hours(), 0.1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUsesStoredConfig(t *testing.T) {
	handler, mock := newTestHandler(t)

	rows := sqlmock.NewRows([]string{
		"id", "name", "strategy", "initial_delay_hours", "max_retries",
		"amount_tiers", "is_active",
	}).AddRow("cfg-1", "Custom", "linear", 12, 5, "[]", true)
	mock.ExpectQuery("SELECT (.+) FROM payment_retry_configs").
		WithArgs("org-1").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE failed_payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment: &models.FailedPayment{
			ID:          "pay-1",
			AmountCents: 25000,
			RetryCount:  1,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, ActionRetryScheduled, output.Action)
	assert.Equal(t, 2, output.RetryCount)
	// No tiers configured: the medium default tier applies.
	assert.Equal(t, "medium", output.Tier)
	assert.Equal(t, string(models.BackoffExponential), output.Strategy)
	assert.False(t, output.Fallback)
}

func TestExecuteEscalatesWhenRetriesExhausted(t *testing.T) {
	handler, mock := newTestHandler(t)

	expectNoStoredConfig(mock)

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment: &models.FailedPayment{
			ID:          "pay-1",
			AmountCents: 25000,
			RetryCount:  3,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, ActionEscalateToDunning, output.Action)
	assert.Equal(t, 3, output.RetryCount)
	assert.Empty(t, output.NextRetryDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteFetchesPayment(t *testing.T) {
	handler, mock := newTestHandler(t)

	rows := sqlmock.NewRows([]string{
		"id", "client_id", "invoice_id", "amount_cents", "payment_method",
		"failure_reason", "retry_count", "status", "created_at",
	}).AddRow("pay-2", "client-1", "", 80000, "card", "card_declined", 2, "failed", "")
	mock.ExpectQuery("SELECT (.+) FROM failed_payments").
		WithArgs("pay-2").
		WillReturnRows(rows)
	expectNoStoredConfig(mock)
	mock.ExpectExec("UPDATE failed_payments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-2",
	})

	require.NoError(t, err)
	assert.Equal(t, "pay-2", output.PaymentID)
	assert.Equal(t, "high", output.Tier)
	assert.Equal(t, 3, output.RetryCount)
}

func TestExecutePaymentNotFound(t *testing.T) {
	handler, mock := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM failed_payments").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "missing",
	})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}

func TestExecuteSurvivesPersistenceFailure(t *testing.T) {
	handler, mock := newTestHandler(t)

	expectNoStoredConfig(mock)
	mock.ExpectExec("UPDATE failed_payments").
		WillReturnError(assert.AnError)

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment: &models.FailedPayment{
			ID:          "pay-1",
			AmountCents: 5000,
			RetryCount:  0,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, ActionRetryScheduled, output.Action)
}
