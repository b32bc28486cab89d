// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"credit-workers/internal/common/aws"
	"credit-workers/internal/common/config"
	"credit-workers/internal/common/database"
	"credit-workers/internal/common/logger"
	"credit-workers/internal/common/observability"
	"credit-workers/internal/engine/churn"
	"credit-workers/internal/engine/letters"
	"credit-workers/internal/engine/scoring"
	"credit-workers/internal/repository"

	// Lead Workers (1)
	sl "credit-workers/internal/workers/leads/score-lead"

	// Client Workers (1)
	pc "credit-workers/internal/workers/clients/predict-churn"

	// Dispute Workers (3)
	gl "credit-workers/internal/workers/disputes/generate-letter"
	rb "credit-workers/internal/workers/disputes/recommend-bureaus"
	sr "credit-workers/internal/workers/disputes/schedule-round"

	// Billing Workers (2)
	ad "credit-workers/internal/workers/billing/advance-dunning"
	ppr "credit-workers/internal/workers/billing/plan-payment-retry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	// Communication history search degrades to SQL when Elasticsearch is
	// down, so a failed connection is not fatal.
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Warn("elasticsearch unavailable, communication search falls back to SQL", zap.Error(err))
		esClient = nil
	} else {
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Notification Clients ---
	var emailSender ad.EmailSender
	if cfg.Notifications.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		emailSender = ses
		zapLog.Info("SES client initialized", zap.String("region", cfg.Notifications.AWS.Region))
	}

	var smsSender ad.SMSSender
	if cfg.Notifications.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		smsSender = sns
		zapLog.Info("SNS client initialized", zap.String("region", cfg.Notifications.AWS.Region))
	}

	// --- Shared Repository & Decision Engines ---
	repo := repository.New(pg.DB, redis, esClient, cfg.Database.Elasticsearch.EmailIndex, log)

	scoringEngine := scoring.New(scoring.Config{
		LowConfidenceQualifyPenalty: cfg.Engine.Scoring.LowConfidenceQualifyPenalty,
		LowConfidenceReviewPenalty:  cfg.Engine.Scoring.LowConfidenceReviewPenalty,
	})
	churnEngine := churn.New(churn.Config{
		SigmoidSteepness:        cfg.Engine.Churn.SigmoidSteepness,
		SigmoidMidpoint:         cfg.Engine.Churn.SigmoidMidpoint,
		MonthlyRevenuePerClient: cfg.Engine.Churn.MonthlyRevenuePerClient,
	})
	letterEngine := letters.New(cfg.App.Name)

	// --- START: Register ALL 7 Workers ---

	// --- 1. Lead Workers (1) ---
	if cfg.Workers[sl.TaskType].Enabled {
		handler := sl.NewHandler(
			&sl.Config{
				Timeout: time.Duration(cfg.Workers[sl.TaskType].Timeout) * time.Millisecond,
			},
			repo, scoringEngine, log,
		)
		startWorker(zeebeClient, sl.TaskType, cfg.Workers[sl.TaskType], handler.Handle, zapLog)
	}

	// --- 2. Client Workers (1) ---
	if cfg.Workers[pc.TaskType].Enabled {
		handler := pc.NewHandler(
			&pc.Config{
				HorizonDays: pc.LoadConfig().HorizonDays,
				Timeout:     time.Duration(cfg.Workers[pc.TaskType].Timeout) * time.Millisecond,
			},
			repo, churnEngine, log,
		)
		startWorker(zeebeClient, pc.TaskType, cfg.Workers[pc.TaskType], handler.Handle, zapLog)
	}

	// --- 3. Dispute Workers (3) ---
	if cfg.Workers[rb.TaskType].Enabled {
		handler := rb.NewHandler(
			&rb.Config{
				Timeout: time.Duration(cfg.Workers[rb.TaskType].Timeout) * time.Millisecond,
			},
			repo, log,
		)
		startWorker(zeebeClient, rb.TaskType, cfg.Workers[rb.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[gl.TaskType].Enabled {
		handler := gl.NewHandler(
			&gl.Config{
				Timeout: time.Duration(cfg.Workers[gl.TaskType].Timeout) * time.Millisecond,
			},
			repo, letterEngine, log,
		)
		startWorker(zeebeClient, gl.TaskType, cfg.Workers[gl.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[sr.TaskType].Enabled {
		handler := sr.NewHandler(
			&sr.Config{
				Timeout: time.Duration(cfg.Workers[sr.TaskType].Timeout) * time.Millisecond,
			},
			repo, log,
		)
		startWorker(zeebeClient, sr.TaskType, cfg.Workers[sr.TaskType], handler.Handle, zapLog)
	}

	// --- 4. Billing Workers (2) ---
	if cfg.Workers[ppr.TaskType].Enabled {
		handler := ppr.NewHandler(
			&ppr.Config{
				InitialDelayHours: cfg.Engine.Retry.InitialDelayHours,
				MaxRetries:        cfg.Engine.Retry.MaxRetries,
				Timeout:           time.Duration(cfg.Workers[ppr.TaskType].Timeout) * time.Millisecond,
			},
			repo, log,
		)
		startWorker(zeebeClient, ppr.TaskType, cfg.Workers[ppr.TaskType], handler.Handle, zapLog)
	}

	if cfg.Workers[ad.TaskType].Enabled {
		fromEmail := cfg.Notifications.Email.FromEmail
		if fromEmail == "" {
			fromEmail = ad.LoadConfig().FromEmail
		}
		handler := ad.NewHandler(
			&ad.Config{
				FromEmail: fromEmail,
				Timeout:   time.Duration(cfg.Workers[ad.TaskType].Timeout) * time.Millisecond,
			},
			repo, emailSender, smsSender, log,
		)
		startWorker(zeebeClient, ad.TaskType, cfg.Workers[ad.TaskType], handler.Handle, zapLog)
	}

	zapLog.Info("All 7 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := pg.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not_ready",
					"error":  err.Error(),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	maxJobsActive := wcfg.MaxJobsActive
	if maxJobsActive <= 0 {
		maxJobsActive = 10
	}
	timeoutMs := wcfg.Timeout
	if timeoutMs <= 0 {
		timeoutMs = 30000
	}

	client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(maxJobsActive).
		Timeout(time.Duration(timeoutMs) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", maxJobsActive),
		zap.Int("timeout_ms", timeoutMs),
	)
}
