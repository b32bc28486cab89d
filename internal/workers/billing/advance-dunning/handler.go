// internal/workers/billing/advance-dunning/handler.go
package advancedunning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "credit-workers/internal/common/errors"
	"credit-workers/internal/common/logger"
	"credit-workers/internal/common/metrics"
	"credit-workers/internal/common/validation"
	"credit-workers/internal/engine/payments"
	"credit-workers/internal/models"
	"credit-workers/internal/repository"
)

const (
	TaskType = "advance-dunning"
)

var (
	ErrPaymentNotFound = errors.New("PAYMENT_NOT_FOUND")
)

// EmailSender delivers one HTML dunning notice. Satisfied by the SES client.
type EmailSender interface {
	SendHTMLEmail(ctx context.Context, from, to, subject, htmlBody string) (string, error)
}

// SMSSender delivers one SMS dunning notice. Satisfied by the SNS client.
type SMSSender interface {
	SendSMS(ctx context.Context, phoneNumber, message string) (string, error)
}

var inputSchema = validation.ObjectSchema(
	[]string{"organizationId", "failedPaymentId"},
	map[string]interface{}{
		"organizationId":  map[string]interface{}{"type": "string", "minLength": 1},
		"failedPaymentId": map[string]interface{}{"type": "string", "minLength": 1},
	},
)

type Handler struct {
	config *Config
	repo   *repository.Repository
	email  EmailSender
	sms    SMSSender
	logger logger.Logger
}

// NewHandler builds the dunning handler. email and sms may be nil when the
// corresponding channel is disabled; steps on that channel are then skipped.
func NewHandler(config *Config, repo *repository.Repository, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		repo:   repo,
		email:  email,
		sms:    sms,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse variables: %v", err))
		return
	}
	if result, err := validation.ValidateVariables(inputSchema, raw); err != nil || !result.Valid {
		h.failJob(client, job, "MISSING_INPUT", validation.Detail(result, err))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := &apperrors.StandardError{
			Code:      apperrors.ErrCodeQueryExecutionFailed,
			Message:   err.Error(),
			Retryable: true,
			Timestamp: time.Now().UTC(),
		}
		if errors.Is(err, ErrPaymentNotFound) {
			stdErr.Code = apperrors.ErrCodePaymentNotFound
			stdErr.Retryable = false
		}
		bpmnErr := apperrors.ConvertToBPMNError(stdErr)
		h.failJob(client, job, bpmnErr.Code, bpmnErr.Message)
		return
	}

	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	payment := input.Payment
	if payment == nil {
		fetched, err := h.repo.GetFailedPayment(ctx, input.PaymentID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, fmt.Errorf("%w: %s", ErrPaymentNotFound, input.PaymentID)
		}
		payment = fetched
	}

	steps, err := h.repo.GetDunningSteps(ctx, input.OrganizationID)
	if err != nil {
		h.logger.Warn("dunning steps unavailable, using invoice retry ladder", map[string]interface{}{
			"organizationId": input.OrganizationID,
			"error":          err.Error(),
		})
		steps = nil
	}
	if len(steps) == 0 {
		return h.invoiceLadder(payment), nil
	}

	now := time.Now().UTC()

	state, err := h.repo.GetDunningState(ctx, payment.ID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		fresh := payments.NewSequenceState(payment.ID, now)
		state = &fresh
		if err := h.repo.SaveDunningState(ctx, fresh); err != nil {
			h.logger.Warn("dunning state initialization failed", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"error":           err.Error(),
			})
		}
	}

	decision := payments.AdvanceDunning(*state, steps, payment.AmountCents, now)

	switch decision.Action {
	case models.DunningWait:
		output := &Output{
			PaymentID:  payment.ID,
			Action:     string(models.DunningWait),
			StepNumber: decision.Step.StepNumber,
		}
		if decision.NextCheckAt != nil {
			output.NextCheckAt = decision.NextCheckAt.Format(time.RFC3339)
		}
		return output, nil

	case models.DunningSequenceComplete:
		completed := decision.NewState
		completed.Status = "completed"
		if err := h.repo.SaveDunningState(ctx, completed); err != nil {
			h.logger.Warn("dunning state persistence failed", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"error":           err.Error(),
			})
		}
		return &Output{
			PaymentID:          payment.ID,
			Action:             string(models.DunningSequenceComplete),
			EscalationRequired: decision.EscalationRequired,
		}, nil
	}

	step := decision.Step
	messageID := h.deliverStep(ctx, input, payment, *step)

	if err := h.repo.SaveDunningState(ctx, decision.NewState); err != nil {
		h.logger.Warn("dunning state persistence failed", map[string]interface{}{
			"failedPaymentId": payment.ID,
			"error":           err.Error(),
		})
	}
	if messageID != "" {
		if err := h.repo.RecordDunningDelivery(ctx, payment.ID, step.StepNumber, channelOrDefault(*step), messageID); err != nil {
			h.logger.Warn("dunning delivery bookkeeping failed", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"error":           err.Error(),
			})
		}
	}

	h.logger.Info("dunning step sent", map[string]interface{}{
		"failedPaymentId": payment.ID,
		"stepNumber":      step.StepNumber,
		"channel":         channelOrDefault(*step),
		"isFinal":         step.IsFinal,
	})

	return &Output{
		PaymentID:          payment.ID,
		Action:             string(models.DunningSendStep),
		StepNumber:         step.StepNumber,
		Channel:            channelOrDefault(*step),
		ProviderMessageID:  messageID,
		EscalationRequired: step.IsFinal,
	}, nil
}

// invoiceLadder is the fixed-schedule fallback for organizations without a
// configured dunning sequence.
func (h *Handler) invoiceLadder(payment *models.FailedPayment) *Output {
	metrics.DecisionFallbacks.WithLabelValues(TaskType, "invoice_ladder").Inc()

	plan := payments.PlanInvoiceRetry(payment.RetryCount, nil, 0, time.Now().UTC())

	output := &Output{
		PaymentID:    payment.ID,
		Action:       plan.Action,
		AttemptCount: plan.AttemptCount,
		EmailSubject: plan.EmailSubject,
		Fallback:     true,
	}
	if plan.NextRetryDate != nil {
		output.NextRetryDate = plan.NextRetryDate.Format(time.RFC3339)
	}
	if plan.Action == payments.InvoiceActionAccountSuspended {
		output.EscalationRequired = true
	}
	return output
}

func (h *Handler) deliverStep(ctx context.Context, input *Input, payment *models.FailedPayment, step models.DunningStep) string {
	client := input.Client
	if client == nil && payment.ClientID != "" {
		fetched, err := h.repo.GetClient(ctx, payment.ClientID)
		if err != nil {
			h.logger.Warn("client lookup for dunning delivery failed", map[string]interface{}{
				"clientId": payment.ClientID,
				"error":    err.Error(),
			})
		} else {
			client = fetched
		}
	}
	if client == nil {
		h.logger.Warn("no client record, dunning notice not delivered", map[string]interface{}{
			"failedPaymentId": payment.ID,
			"stepNumber":      step.StepNumber,
		})
		return ""
	}

	subject, urgency := payments.DunningEmailCopy(step.StepNumber)
	if step.Subject != "" {
		subject = step.Subject
	}

	switch channelOrDefault(step) {
	case "sms":
		if h.sms == nil || client.Phone == "" {
			h.logger.Warn("sms channel unavailable, step not delivered", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"stepNumber":      step.StepNumber,
			})
			return ""
		}
		messageID, err := h.sms.SendSMS(ctx, client.Phone, subject)
		if err != nil {
			h.logger.Error("sms delivery failed", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"error":           err.Error(),
			})
			return ""
		}
		return messageID

	default:
		if h.email == nil || client.Email == "" {
			h.logger.Warn("email channel unavailable, step not delivered", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"stepNumber":      step.StepNumber,
			})
			return ""
		}
		body := step.BodyHTML
		if body == "" {
			body = fmt.Sprintf("<p>%s</p>", urgency)
		}
		messageID, err := h.email.SendHTMLEmail(ctx, h.config.FromEmail, client.Email, subject, body)
		if err != nil {
			h.logger.Error("email delivery failed", map[string]interface{}{
				"failedPaymentId": payment.ID,
				"error":           err.Error(),
			})
			return ""
		}
		return messageID
	}
}

func channelOrDefault(step models.DunningStep) string {
	if step.Channel == "" {
		return "email"
	}
	return step.Channel
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

// Execute exposes the core logic for tests and batch callers.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
