package profileretry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"rozgar-signup/internal/common/backend"
	"rozgar-signup/internal/common/camunda"
	"rozgar-signup/internal/common/config"
	"rozgar-signup/internal/common/errors"
	"rozgar-signup/internal/common/logger"
	"rozgar-signup/internal/common/metrics"
)

const (
	TaskType = "signup.profile.retry"
	// WorkerName is the key of this worker in the workers config section.
	WorkerName = "profile-retry"
)

type executor interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}

type Handler struct {
	config     *Config
	logger     logger.Logger
	camunda    *camunda.Client
	service    executor
	worker     *camunda.CamundaWorker
	errHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	Camunda      *camunda.Client
	CustomConfig *Config
	Outbox       PendingStore
	Profiles     backend.ProfileService
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Profiles == nil {
		return nil, fmt.Errorf("%s requires a profile service", WorkerName)
	}

	loggerInstance := opts.Logger
	if loggerInstance == nil {
		loggerInstance = logger.NewStructured("info", "json")
	}

	h := &Handler{
		config:     workerConfig,
		logger:     loggerInstance,
		camunda:    opts.Camunda,
		errHandler: errors.NewErrorHandler(loggerInstance),
	}
	h.service = NewService(ServiceDependencies{
		Logger:   loggerInstance,
		Outbox:   opts.Outbox,
		Profiles: opts.Profiles,
	}, workerConfig)

	return h, nil
}

// Handle processes one job and reports it back to the broker.
func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing profile replay", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	if !h.config.Enabled {
		return h.completeJob(ctx, client, job, &Output{
			Success: false,
			Message: "Profile replay disabled",
		})
	}

	input, err := h.parseInput(job)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		return h.failJob(ctx, client, job, err)
	}

	output, err := h.service.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, extractErrorCode(err)).Inc()
		return h.failJob(ctx, client, job, err)
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	return h.completeJob(ctx, client, job, output)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	raw := job.GetVariables()
	if err := validateVariables(raw); err != nil {
		return nil, err
	}

	var input Input
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, &errors.StandardError{
			Code:      errors.ErrCodeValidationFailed,
			Message:   "Failed to parse job variables",
			Details:   err.Error(),
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	variables := map[string]interface{}{
		"profileRecovered": output.Success,
		"profileMessage":   output.Message,
		"alreadyExisted":   output.AlreadyExisted,
	}
	if output.WorkerID != "" {
		variables["workerId"] = output.WorkerID
	}
	if output.UserID != "" {
		variables["userId"] = output.UserID
	}

	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		return fmt.Errorf("failed to create complete job command: %w", err)
	}
	if _, err := request.Send(ctx); err != nil {
		return fmt.Errorf("failed to complete job %d: %w", job.GetKey(), err)
	}

	h.logger.Info("Profile replay completed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"pendingId": output.PendingID,
		"workerId":  output.WorkerID,
		"worker":    TaskType,
	})
	return nil
}

// failJob hands the error to the shared job error handler: transient
// failures are retried, anything else is thrown as a BPMN error the
// recovery process routes to manual review.
func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) error {
	return h.errHandler.HandleJobError(ctx, client, job, convertToStandardError(err))
}

// Register opens the job worker on the broker.
func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s requires a camunda client", WorkerName)
	}

	h.worker = camunda.NewWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		Name:          fmt.Sprintf("%s-worker", TaskType),
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h, h.logger)
	h.worker.Start()

	h.logger.Info("Profile replay worker registered", map[string]interface{}{
		"taskType":      TaskType,
		"maxJobsActive": h.config.MaxJobsActive,
		"timeout":       h.config.Timeout.String(),
	})
	return nil
}

func (h *Handler) Close(ctx context.Context) {
	if h.worker != nil {
		h.worker.Stop(ctx)
		h.worker = nil
	}
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func extractErrorCode(err error) string {
	if stdErr, ok := errors.As(err); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}

func convertToStandardError(err error) *errors.StandardError {
	if stdErr, ok := errors.As(err); ok {
		return stdErr
	}
	return &errors.StandardError{
		Code:      errors.ErrCodeServiceFailure,
		Message:   "Failed to replay worker profile",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}
	if workerCfg, exists := appConfig.Workers[WorkerName]; exists {
		cfg.Enabled = workerCfg.Enabled
		if workerCfg.MaxJobsActive > 0 {
			cfg.MaxJobsActive = workerCfg.MaxJobsActive
		}
		if workerCfg.Timeout > 0 {
			cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
		}
		if workerCfg.MaxRetries > 0 {
			cfg.MaxAttempts = workerCfg.MaxRetries
		}
	}
	return cfg
}
