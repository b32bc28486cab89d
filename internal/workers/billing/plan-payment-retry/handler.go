// internal/workers/billing/plan-payment-retry/handler.go
package planpaymentretry

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
	"credit-workers/internal/repository"
)

const (
	TaskType = "plan-payment-retry"

	ActionRetryScheduled    = "retry_scheduled"
	ActionEscalateToDunning = "escalate_to_dunning"
)

var (
	ErrPaymentNotFound = errors.New("PAYMENT_NOT_FOUND")
)

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
	logger logger.Logger
}

func NewHandler(config *Config, repo *repository.Repository, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		repo:   repo,
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

	fallbackUsed := false
	config, err := h.repo.GetRetryConfig(ctx, input.OrganizationID)
	if err != nil {
		h.logger.Warn("retry config unavailable, using default strategy", map[string]interface{}{
			"organizationId": input.OrganizationID,
			"error":          err.Error(),
		})
		config = nil
	}
	if config == nil {
		metrics.DecisionFallbacks.WithLabelValues(TaskType, "default_config").Inc()
		def := payments.DefaultRetryConfig()
		if h.config.InitialDelayHours > 0 {
			def.InitialDelayHours = h.config.InitialDelayHours
		}
		if h.config.MaxRetries > 0 {
			def.MaxRetries = h.config.MaxRetries
		}
		config = &def
		fallbackUsed = true
	}

	maxRetries := config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if payment.RetryCount >= maxRetries {
		h.logger.Info("retries exhausted, escalating to dunning", map[string]interface{}{
			"failedPaymentId": payment.ID,
			"retryCount":      payment.RetryCount,
		})
		return &Output{
			PaymentID:  payment.ID,
			Action:     ActionEscalateToDunning,
			RetryCount: payment.RetryCount,
			Fallback:   fallbackUsed,
		}, nil
	}

	plan := payments.PlanRetry(*payment, *config, time.Now().UTC())

	if err := h.repo.SaveRetryPlan(ctx, payment.ID, plan); err != nil {
		h.logger.Warn("retry plan persistence failed", map[string]interface{}{
			"failedPaymentId": payment.ID,
			"error":           err.Error(),
		})
	}

	h.logger.Info("retry planned", map[string]interface{}{
		"failedPaymentId": payment.ID,
		"retryCount":      plan.RetryCount,
		"nextRetryDate":   plan.NextRetryDate.Format(time.RFC3339),
		"amountTier":      plan.Tier,
	})

	return &Output{
		PaymentID:            payment.ID,
		Action:               ActionRetryScheduled,
		RetryCount:           plan.RetryCount,
		NextRetryDate:        plan.NextRetryDate.Format(time.RFC3339),
		Strategy:             string(plan.Strategy),
		Tier:                 plan.Tier,
		AmountToCharge:       plan.AmountToCharge,
		PaymentMethod:        plan.PaymentMethod,
		EstimatedSuccessRate: plan.EstimatedSuccessRate,
		Fallback:             fallbackUsed,
	}, nil
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
