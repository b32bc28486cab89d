package payments

import (
	"time"

	"credit-workers/internal/models"
)

// DefaultRetrySchedule is the fixed day ladder for invoice retries.
var DefaultRetrySchedule = []int{3, 7, 14, 30}

// DefaultMaxAttempts is the retry count at which the account is suspended.
const DefaultMaxAttempts = 4

const (
	InvoiceActionRetryScheduled   = "retry_scheduled"
	InvoiceActionAccountSuspended = "account_suspended"
)

// PlanInvoiceRetry decides whether to schedule another invoice retry or
// suspend the account. attemptCount is the number of failures so far,
// excluding the one being handled.
func PlanInvoiceRetry(attemptCount int, schedule []int, maxAttempts int, now time.Time) models.InvoiceRetryPlan {
	if len(schedule) == 0 {
		schedule = DefaultRetrySchedule
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	attempt := attemptCount + 1
	if attempt >= maxAttempts {
		return models.InvoiceRetryPlan{
			Action:       InvoiceActionAccountSuspended,
			AttemptCount: attempt,
			EmailSubject: "Account Suspended - Payment Required",
		}
	}

	idx := attempt - 1
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	retryDays := schedule[idx]
	nextRetry := now.AddDate(0, 0, retryDays)

	subject, _ := DunningEmailCopy(attempt)
	return models.InvoiceRetryPlan{
		Action:        InvoiceActionRetryScheduled,
		AttemptCount:  attempt,
		NextRetryDate: &nextRetry,
		RetryDays:     retryDays,
		EmailSubject:  subject,
	}
}

// DunningEmailCopy returns the subject and urgency line for a dunning
// notice at the given attempt number.
func DunningEmailCopy(attemptCount int) (subject, urgency string) {
	switch attemptCount {
	case 1:
		return "Payment Failed - Action Required",
			"We noticed your recent payment didn't go through."
	case 2:
		return "Second Notice: Payment Failed",
			"This is the second time we've attempted to process your payment."
	case 3:
		return "Final Notice: Payment Failed - Account at Risk",
			"This is your final notice. Your account will be suspended if payment is not resolved."
	default:
		return "Final Warning: Payment Failed",
			"Your account will be suspended after the next failed payment attempt."
	}
}
