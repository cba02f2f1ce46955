package submitquotation

import (
	"context"
	"encoding/json"
	"fmt"

	"cotacao-workers/internal/common/config"
	"cotacao-workers/internal/common/errors"
	"cotacao-workers/internal/common/logger"
	"cotacao-workers/internal/common/metrics"
	"cotacao-workers/internal/quotation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "submit-quotation"

type Submitter interface {
	Submit(ctx context.Context, req quotation.SubmitRequest) (*quotation.Submission, error)
}

type Handler struct {
	config       *Config
	service      Submitter
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Service      Submitter
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Service == nil {
		return nil, fmt.Errorf("%s: quotation service is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		service:      opts.Service,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.Key,
		"processInstanceKey": job.ProcessInstanceKey,
	})

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}
	input.JobKey = job.Key

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// Execute evaluates the quotation and stores it. Accepted quotations are
// assigned to a seller in the same transaction that writes them. A job that
// is delivered again gets the quotation stored by its first delivery.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	sub, err := h.service.Submit(ctx, quotation.SubmitRequest{
		Vehicle: input.Vehicle.ToVehicle(),
		Contact: input.Contact.ToContact(),
		JobKey:  input.JobKey,
	})
	if err != nil {
		return nil, err
	}
	if sub.Replayed {
		h.logger.Info("job redelivered, quotation already stored", map[string]interface{}{
			"jobKey":      input.JobKey,
			"quotationId": sub.Quotation.ID,
		})
	}
	return NewOutput(sub), nil
}

func ParseInput(variables string) (*Input, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewInputValidationFailedError(fmt.Sprintf("variables are not a JSON object: %v", err))
	}

	if result := inputSchema.Validate(doc); !result.Valid {
		return nil, errors.NewInputValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewBusinessRuleError("Failed to encode job output", err.Error()))
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey":      job.Key,
			"quotationId": output.QuotationID,
			"error":       err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":      job.Key,
		"kind":        output.Kind,
		"quotationId": output.QuotationID,
		"sellerId":    output.SellerID,
		"needsTriage": output.NeedsTriage,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
