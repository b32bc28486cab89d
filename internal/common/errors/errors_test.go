package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertToBPMNError(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewQueryExecutionFailedError("leads", assert.AnError))

	assert.Equal(t, "QUERY_EXECUTION_FAILED", bpmnErr.Code)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.Equal(t, "QUERY_EXECUTION_FAILED", bpmnErr.ErrorVariables["originalErrorCode"])
}

func TestConvertToBPMNErrorNonRetryable(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewPaymentNotFoundError("pay-1"))

	assert.Equal(t, "PAYMENT_NOT_FOUND", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)
}

func TestGetRetryCount(t *testing.T) {
	assert.Equal(t, 3, GetRetryCount(ErrCodeDatabaseConnectionFailed))
	assert.Equal(t, 2, GetRetryCount(ErrCodeQueryTimeout))
	assert.Equal(t, 0, GetRetryCount(ErrCodeMissingInput))
	assert.Equal(t, 0, GetRetryCount(ErrCodeLeadNotFound))
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeNotificationSendFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeNoMatchFound))
}
