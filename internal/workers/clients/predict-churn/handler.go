// internal/workers/clients/predict-churn/handler.go
package predictchurn

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
	"credit-workers/internal/engine/churn"
	"credit-workers/internal/models"
	"credit-workers/internal/repository"
)

const (
	TaskType = "predict-churn"
)

var (
	ErrClientNotFound = errors.New("CLIENT_NOT_FOUND")
)

var inputSchema = validation.ObjectSchema(
	[]string{"organizationId", "clientId"},
	map[string]interface{}{
		"organizationId": map[string]interface{}{"type": "string", "minLength": 1},
		"clientId":       map[string]interface{}{"type": "string", "minLength": 1},
		"horizonDays":    map[string]interface{}{"type": "integer", "minimum": 1},
	},
)

type Handler struct {
	config *Config
	repo   *repository.Repository
	engine *churn.Engine
	logger logger.Logger
}

func NewHandler(config *Config, repo *repository.Repository, engine *churn.Engine, log logger.Logger) *Handler {
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
		if errors.Is(err, ErrClientNotFound) {
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
	horizon := input.HorizonDays
	if horizon <= 0 {
		horizon = h.config.HorizonDays
	}

	client := input.Client
	if client == nil {
		fetched, err := h.repo.GetClient(ctx, input.ClientID)
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, input.ClientID)
		}
		client = fetched
	}

	var prediction models.ChurnPrediction
	fallbackUsed := false

	history := input.History
	if history == nil {
		fetched, err := h.repo.GetClientHistory(ctx, input.ClientID)
		if err != nil {
			// One bad history bundle must not fail the workflow; degrade
			// to the neutral prediction and flag it.
			h.logger.Warn("history fetch failed, using fallback prediction", map[string]interface{}{
				"clientId": input.ClientID,
				"error":    err.Error(),
			})
			metrics.DecisionFallbacks.WithLabelValues(TaskType, "error_fallback").Inc()
			prediction = churn.ErrorFallback(input.ClientID, horizon, err)
			fallbackUsed = true
		} else {
			history = &fetched
		}
	}

	if !fallbackUsed {
		prediction = h.engine.Predict(*client, *history, horizon, time.Now().UTC())
	}

	if err := h.repo.SaveChurnPrediction(ctx, input.OrganizationID, prediction); err != nil {
		h.logger.Warn("churn prediction persistence failed", map[string]interface{}{
			"clientId": input.ClientID,
			"error":    err.Error(),
		})
	}

	h.logger.Info("churn predicted", map[string]interface{}{
		"clientId":    input.ClientID,
		"probability": prediction.ChurnProbability,
		"riskLevel":   string(prediction.RiskLevel),
	})

	return &Output{
		ClientID:           input.ClientID,
		ChurnProbability:   prediction.ChurnProbability,
		RiskLevel:          string(prediction.RiskLevel),
		Confidence:         prediction.Confidence,
		HorizonDays:        horizon,
		Factors:            prediction.Factors,
		RecommendedActions: prediction.RecommendedActions,
		Fallback:           fallbackUsed,
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
