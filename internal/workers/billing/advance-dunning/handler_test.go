// internal/workers/billing/advance-dunning/handler_test.go
package advancedunning

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

type fakeEmailSender struct {
	to      string
	subject string
	body    string
	err     error
}

func (f *fakeEmailSender) SendHTMLEmail(_ context.Context, _, to, subject, body string) (string, error) {
	f.to, f.subject, f.body = to, subject, body
	if f.err != nil {
		return "", f.err
	}
	return "ses-msg-1", nil
}

type fakeSMSSender struct {
	phone   string
	message string
}

func (f *fakeSMSSender) SendSMS(_ context.Context, phone, message string) (string, error) {
	f.phone, f.message = phone, message
	return "sns-msg-1", nil
}

func newTestHandler(t *testing.T) (*Handler, sqlmock.Sqlmock, *fakeEmailSender, *fakeSMSSender) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.New(db, nil, nil, "", logger.NewNoOpLogger())
	email := &fakeEmailSender{}
	sms := &fakeSMSSender{}
	return NewHandler(LoadConfig(), repo, email, sms, logger.NewTestLogger(t)), mock, email, sms
}

func stepRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"step_number", "email_template_key", "subject", "body_html",
		"channel", "delay_hours", "min_amount", "is_final", "is_active",
	})
}

func stateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"failed_payment_id", "current_step", "status", "started_at", "last_step_at",
	})
}

func testPayment() *models.FailedPayment {
	return &models.FailedPayment{
		ID:          "pay-1",
		ClientID:    "client-1",
		AmountCents: 25000,
		RetryCount:  0,
	}
}

func testClient() *models.Client {
	return &models.Client{
		ID:    "client-1",
		Email: "jane@example.com",
		Phone: "+15551234567",
	}
}

func TestExecuteSendsFirstEmailStep(t *testing.T) {
	handler, mock, email, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows().AddRow(1, "reminder_1", "", "", "email", 0, nil, false, true))
	mock.ExpectQuery("SELECT (.+) FROM dunning_sequence_states").
		WithArgs("pay-1").
		WillReturnRows(stateRows())
	// Fresh sequence gets persisted before advancing.
	mock.ExpectExec("INSERT INTO dunning_sequence_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dunning_sequence_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dunning_deliveries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "send_step", output.Action)
	assert.Equal(t, 1, output.StepNumber)
	assert.Equal(t, "email", output.Channel)
	assert.Equal(t, "ses-msg-1", output.ProviderMessageID)
	assert.False(t, output.EscalationRequired)

	assert.Equal(t, "jane@example.com", email.to)
	assert.Equal(t, "Payment Failed - Action Required", email.subject)
	assert.NotEmpty(t, email.body)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteWaitsUntilDelayElapsed(t *testing.T) {
	handler, mock, email, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows().AddRow(1, "reminder_1", "", "", "email", 24, nil, false, true))
	mock.ExpectQuery("SELECT (.+) FROM dunning_sequence_states").
		WithArgs("pay-1").
		WillReturnRows(stateRows().AddRow("pay-1", 0, "active", time.Now().UTC(), nil))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "wait", output.Action)
	assert.NotEmpty(t, output.NextCheckAt)
	assert.Empty(t, email.to)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteSendsSMSStep(t *testing.T) {
	handler, mock, _, sms := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows().AddRow(1, "reminder_1", "Pay up please", "", "sms", 0, nil, true, true))
	mock.ExpectQuery("SELECT (.+) FROM dunning_sequence_states").
		WithArgs("pay-1").
		WillReturnRows(stateRows().AddRow("pay-1", 0, "active", time.Now().UTC().Add(-48*time.Hour), nil))
	mock.ExpectExec("INSERT INTO dunning_sequence_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO dunning_deliveries").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "send_step", output.Action)
	assert.Equal(t, "sms", output.Channel)
	assert.Equal(t, "sns-msg-1", output.ProviderMessageID)
	assert.True(t, output.EscalationRequired)
	assert.Equal(t, "+15551234567", sms.phone)
	assert.Equal(t, "Pay up please", sms.message)
}

func TestExecuteSequenceComplete(t *testing.T) {
	handler, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows().AddRow(1, "reminder_1", "", "", "email", 0, nil, false, true))
	mock.ExpectQuery("SELECT (.+) FROM dunning_sequence_states").
		WithArgs("pay-1").
		WillReturnRows(stateRows().AddRow("pay-1", 1, "active", time.Now().UTC().Add(-72*time.Hour), nil))
	mock.ExpectExec("INSERT INTO dunning_sequence_states").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "sequence_complete", output.Action)
	assert.True(t, output.EscalationRequired)
}

func TestExecuteNoStepsUsesInvoiceLadder(t *testing.T) {
	handler, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows())

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.True(t, output.Fallback)
	assert.Equal(t, "retry_scheduled", output.Action)
	assert.Equal(t, 1, output.AttemptCount)
	assert.Equal(t, "Payment Failed - Action Required", output.EmailSubject)
	assert.NotEmpty(t, output.NextRetryDate)
}

func TestExecuteInvoiceLadderSuspendsAtMaxAttempts(t *testing.T) {
	handler, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows())

	payment := testPayment()
	payment.RetryCount = 3

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        payment,
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "account_suspended", output.Action)
	assert.Equal(t, 4, output.AttemptCount)
	assert.True(t, output.EscalationRequired)
	assert.Empty(t, output.NextRetryDate)
}

func TestExecuteEmailFailureStillAdvances(t *testing.T) {
	handler, mock, email, _ := newTestHandler(t)
	email.err = assert.AnError

	mock.ExpectQuery("SELECT (.+) FROM dunning_steps").
		WithArgs("org-1").
		WillReturnRows(stepRows().AddRow(1, "reminder_1", "", "", "email", 0, nil, false, true))
	mock.ExpectQuery("SELECT (.+) FROM dunning_sequence_states").
		WithArgs("pay-1").
		WillReturnRows(stateRows().AddRow("pay-1", 0, "active", time.Now().UTC(), nil))
	mock.ExpectExec("INSERT INTO dunning_sequence_states").
		WillReturnResult(sqlmock.NewResult(0, 1))

	output, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "pay-1",
		Payment:        testPayment(),
		Client:         testClient(),
	})

	require.NoError(t, err)
	assert.Equal(t, "send_step", output.Action)
	assert.Empty(t, output.ProviderMessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutePaymentNotFound(t *testing.T) {
	handler, mock, _, _ := newTestHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM failed_payments").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := handler.Execute(context.Background(), &Input{
		OrganizationID: "org-1",
		PaymentID:      "missing",
	})
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
