// internal/workers/disputes/schedule-round/handler.go
package scheduleround

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
	"credit-workers/internal/engine/scheduling"
	"credit-workers/internal/models"
	"credit-workers/internal/repository"
)

const (
	TaskType = "schedule-round"
)

var (
	ErrDisputeNotFound = errors.New("DISPUTE_NOT_FOUND")
)

var inputSchema = validation.ObjectSchema(
	[]string{"organizationId", "disputeId"},
	map[string]interface{}{
		"organizationId": map[string]interface{}{"type": "string", "minLength": 1},
		"disputeId":      map[string]interface{}{"type": "string", "minLength": 1},
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
		if errors.Is(err, ErrDisputeNotFound) {
			stdErr.Code = apperrors.ErrCodeDisputeNotFound
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
	dispute := input.Dispute
	if dispute == nil {
		fetched, err := h.repo.GetDispute(ctx, input.DisputeID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, fmt.Errorf("%w: %s", ErrDisputeNotFound, input.DisputeID)
		}
		dispute = fetched
	}

	currentRound := dispute.RoundNumber
	if currentRound == 0 {
		currentRound = 1
	}
	nextRound := currentRound + 1
	now := time.Now().UTC()

	rule, err := h.repo.GetSchedulingRule(ctx, input.OrganizationID, nextRound)
	if err != nil {
		// Scheduling must always produce a date; fall back to the
		// emergency cadence.
		h.logger.Warn("scheduling rules unavailable, using emergency schedule", map[string]interface{}{
			"organizationId": input.OrganizationID,
			"error":          err.Error(),
		})
		metrics.DecisionFallbacks.WithLabelValues(TaskType, "emergency_default").Inc()
		schedule := scheduling.EmergencyFallback(*dispute, now)
		return h.persistAndBuild(ctx, input.OrganizationID, dispute.ID, schedule, true), nil
	}

	prefs := input.Preferences
	responsiveness := 0.5
	if prefs == nil {
		fetched, err := h.repo.GetClientPreferences(ctx, dispute.ClientID)
		if err != nil {
			h.logger.Warn("client preferences unavailable", map[string]interface{}{
				"clientId": dispute.ClientID,
				"error":    err.Error(),
			})
		} else {
			prefs = fetched
		}
	}
	if prefs != nil && prefs.ResponsivenessScore > 0 {
		responsiveness = prefs.ResponsivenessScore
	}

	schedule := scheduling.Schedule(*dispute, rule, prefs, responsiveness, now)
	return h.persistAndBuild(ctx, input.OrganizationID, dispute.ID, schedule, false), nil
}

func (h *Handler) persistAndBuild(ctx context.Context, orgID, disputeID string, schedule models.RoundSchedule, fallback bool) *Output {
	taskID, err := h.repo.SaveScheduledTask(ctx, orgID, disputeID, schedule)
	if err != nil {
		h.logger.Warn("scheduled task persistence failed", map[string]interface{}{
			"disputeId": disputeID,
			"error":     err.Error(),
		})
		taskID = ""
	}

	h.logger.Info("round scheduled", map[string]interface{}{
		"disputeId":     disputeID,
		"nextRound":     schedule.NextRound,
		"scheduledDate": schedule.ScheduledDate.Format(time.RFC3339),
		"ruleApplied":   schedule.RuleApplied,
	})

	return &Output{
		DisputeID:                   disputeID,
		NextRound:                   schedule.NextRound,
		ScheduledDate:               schedule.ScheduledDate.Format(time.RFC3339),
		RuleApplied:                 schedule.RuleApplied,
		FollowUpStrategy:            schedule.FollowUpStrategy,
		TaskID:                      taskID,
		EstimatedSuccessProbability: schedule.EstimatedSuccessProbability,
		Fallback:                    fallback,
	}
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
