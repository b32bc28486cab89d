// internal/workers/disputes/generate-letter/handler.go
package generateletter

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
	"credit-workers/internal/engine/letters"
	"credit-workers/internal/models"
	"credit-workers/internal/repository"
)

const (
	TaskType = "generate-letter"
)

var (
	ErrDisputeNotFound = errors.New("DISPUTE_NOT_FOUND")
	ErrClientNotFound  = errors.New("CLIENT_NOT_FOUND")
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
	engine *letters.Engine
	logger logger.Logger
}

func NewHandler(config *Config, repo *repository.Repository, engine *letters.Engine, log logger.Logger) *Handler {
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
		switch {
		case errors.Is(err, ErrDisputeNotFound):
			stdErr.Code = apperrors.ErrCodeDisputeNotFound
			stdErr.Retryable = false
		case errors.Is(err, ErrClientNotFound):
			stdErr.Code = apperrors.ErrCodeClientNotFound
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

	client := input.Client
	if client == nil {
		fetched, err := h.repo.GetClient(ctx, dispute.ClientID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, dispute.ClientID)
		}
		client = fetched
	}

	templates, err := h.repo.GetLetterTemplates(ctx, input.OrganizationID)
	if err != nil {
		h.logger.Warn("template catalog unavailable, using built-in template", map[string]interface{}{
			"organizationId": input.OrganizationID,
			"error":          err.Error(),
		})
		templates = nil
	}

	template, found := letters.Select(templates, *dispute)
	if !found {
		metrics.DecisionFallbacks.WithLabelValues(TaskType, "builtin_template").Inc()
		template = letters.Builtin(dispute.DisputeType)
	}

	now := time.Now().UTC()
	content, missing := h.engine.Render(template, *dispute, *client, now)

	letter := models.RenderedLetter{
		DisputeID:     dispute.ID,
		TemplateID:    template.ID,
		TemplateName:  template.Name,
		Content:       content,
		VariablesUsed: usedVariables(template.Variables, missing),
		MissingVars:   missing,
		GeneratedAt:   now.Format(time.RFC3339),
	}

	letterID, err := h.repo.SaveGeneratedLetter(ctx, input.OrganizationID, letter)
	if err != nil {
		h.logger.Warn("generated letter persistence failed", map[string]interface{}{
			"disputeId": dispute.ID,
			"error":     err.Error(),
		})
		letterID = ""
	}

	h.logger.Info("letter generated", map[string]interface{}{
		"disputeId":    dispute.ID,
		"templateUsed": template.Name,
		"missingVars":  len(missing),
	})

	return &Output{
		DisputeID:        dispute.ID,
		LetterID:         letterID,
		TemplateID:       template.ID,
		TemplateName:     template.Name,
		Content:          content,
		VariablesUsed:    letter.VariablesUsed,
		MissingVariables: missing,
		GeneratedAt:      letter.GeneratedAt,
		BuiltinUsed:      !found,
	}, nil
}

func usedVariables(declared, missing []string) []string {
	if len(missing) == 0 {
		return declared
	}
	skip := make(map[string]bool, len(missing))
	for _, m := range missing {
		skip[m] = true
	}
	var used []string
	for _, v := range declared {
		if !skip[v] {
			used = append(used, v)
		}
	}
	return used
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
