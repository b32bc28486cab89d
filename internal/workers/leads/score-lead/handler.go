// internal/workers/leads/score-lead/handler.go
package scorelead

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
	"credit-workers/internal/engine/scoring"
	"credit-workers/internal/repository"
)

const (
	TaskType = "score-lead"
)

var (
	ErrLeadNotFound = errors.New("LEAD_NOT_FOUND")
)

var inputSchema = validation.ObjectSchema(
	[]string{"organizationId"},
	map[string]interface{}{
		"organizationId": map[string]interface{}{"type": "string", "minLength": 1},
		"leadId":         map[string]interface{}{"type": "string"},
	},
)

type Handler struct {
	config *Config
	repo   *repository.Repository
	engine *scoring.Engine
	logger logger.Logger
}

func NewHandler(config *Config, repo *repository.Repository, engine *scoring.Engine, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		repo:   repo,
		engine: engine,
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
		if errors.Is(err, ErrLeadNotFound) {
			stdErr.Code = apperrors.ErrCodeLeadNotFound
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
	lead := input.Lead
	if lead == nil {
		fetched, err := h.repo.GetLead(ctx, input.LeadID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, fmt.Errorf("%w: %s", ErrLeadNotFound, input.LeadID)
		}
		lead = fetched
	}

	profile := input.Profile
	if profile == nil {
		stored, err := h.repo.GetActiveScoringProfile(ctx, input.OrganizationID)
		if err != nil {
			h.logger.Warn("scoring profile fetch failed, using default", map[string]interface{}{
				"organizationId": input.OrganizationID,
				"error":          err.Error(),
			})
		}
		profile = stored
	}
	if profile == nil {
		fallback := scoring.DefaultProfile()
		profile = &fallback
		metrics.DecisionFallbacks.WithLabelValues(TaskType, "default_profile").Inc()

		// The default profile is created once per organization; later
		// scorings read the stored row.
		if id, err := h.repo.SaveScoringProfile(ctx, input.OrganizationID, fallback); err != nil {
			h.logger.Warn("default profile persistence failed", map[string]interface{}{
				"organizationId": input.OrganizationID,
				"error":          err.Error(),
			})
		} else {
			profile.ID = id
		}
	}

	result := h.engine.Score(*lead, *profile)
	status := h.engine.Classify(result, *profile)
	actions := h.engine.Recommend(result, status)
	scoredAt := time.Now().UTC().Format(time.RFC3339)

	output := &Output{
		LeadID:             lead.ID,
		Score:              result.NormalizedScore,
		RawScore:           result.RawScore,
		MaxPossible:        result.MaxPossible,
		Confidence:         result.Confidence,
		Status:             string(status),
		ProfileName:        profile.Name,
		CriteriaScores:     result.CriteriaScores,
		RecommendedActions: actions,
		Reasoning:          result.Reasoning,
		ScoredAt:           scoredAt,
	}

	resultID, err := h.repo.SaveLeadScore(ctx, input.OrganizationID, output.toLeadScore(result, status))
	if err != nil {
		h.logger.Warn("lead score persistence failed", map[string]interface{}{
			"leadId": lead.ID,
			"error":  err.Error(),
		})
	} else {
		output.ResultID = resultID
	}

	if err := h.repo.UpdateLeadStatus(ctx, lead.ID, status); err != nil {
		h.logger.Warn("lead status update failed", map[string]interface{}{
			"leadId": lead.ID,
			"error":  err.Error(),
		})
	}

	h.logger.Info("lead scored", map[string]interface{}{
		"leadId":     lead.ID,
		"score":      result.NormalizedScore,
		"status":     string(status),
		"confidence": result.Confidence,
	})
	return output, nil
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
