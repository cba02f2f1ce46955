package assignseller

import (
	"context"
	stderrors "errors"
	"fmt"

	"cotacao-workers/internal/common/config"
	"cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/metrics"
	"cotacao-workers/internal/roundrobin"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "assign-seller"

type SellerPicker interface {
	AssignNext(ctx context.Context) (string, error)
}

type Handler struct {
	config       *Config
	assigner     SellerPicker
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Assigner     SellerPicker
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Assigner == nil {
		return nil, fmt.Errorf("%s: assigner is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		assigner:     opts.Assigner,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewBusinessRuleError("Failed to encode job output", err.Error()))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		// the rotation has already advanced; a redelivered job takes the next seller
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey":   job.Key,
			"sellerId": output.SellerID,
			"error":    err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("seller assigned", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
		"sellerId":           output.SellerID,
	})
}

// Execute advances the rotation and returns the chosen seller.
func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	sellerID, err := h.assigner.AssignNext(ctx)
	if err != nil {
		return nil, h.mapError(err)
	}
	return &Output{SellerID: sellerID}, nil
}

func (h *Handler) mapError(err error) error {
	switch {
	case stderrors.Is(err, roundrobin.ErrAssignmentExhausted):
		return errors.NewAssignmentConflictError(roundrobin.Attempts(err), err)
	case stderrors.Is(err, roundrobin.ErrNoEligibleSeller):
		return errors.NewNoEligibleSellerError("every seller in the queue is unavailable", err)
	case stderrors.Is(err, roundrobin.ErrQueueNotFound):
		return errors.NewQueueNotConfiguredError(h.config.QueueID)
	}
	return errors.NewQueryExecutionFailedError("assign_seller", err)
}
