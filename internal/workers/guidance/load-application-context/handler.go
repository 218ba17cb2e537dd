// internal/workers/guidance/load-application-context/handler.go
package loadapplicationcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"visa-workers/internal/common/errors"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/common/metrics"
	"visa-workers/internal/common/observability"
	"visa-workers/internal/common/validation"
	"visa-workers/internal/guidance"
)

const TaskType = "load-application-context"

// ApplicationSource is satisfied by *store.ApplicationStore.
type ApplicationSource interface {
	ListByUser(ctx context.Context, userID string) ([]guidance.Application, error)
	Get(ctx context.Context, userID, applicationID string) (*guidance.Application, error)
	Checklist(ctx context.Context, applicationID string) (*guidance.DocumentChecklist, error)
}

type Handler struct {
	config       *Config
	source       ApplicationSource
	schema       *gojsonschema.Schema
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	tracer       trace.Tracer
}

func NewHandler(cfg *Config, source ApplicationSource, log logger.Logger, obs *observability.Observability) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if source == nil {
		return nil, fmt.Errorf("%s requires an application source", TaskType)
	}
	schema, err := GetInputSchema().Compile()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		source:       source,
		schema:       schema,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		obs:          obs,
		tracer:       observability.Tracer(),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	variables, err := job.GetVariablesAsMap()
	if err != nil {
		h.fail(ctx, client, job, errors.NewInvalidJobVariablesError(err), start)
		return
	}
	input, err := h.DecodeInput(variables)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.fail(ctx, client, job, errors.NewInternalError(err), start)
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		h.obs.RecordJob(ctx, TaskType, "complete_failed", time.Since(start))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJob(ctx, TaskType, "completed", time.Since(start))
}

// DecodeInput validates the job variables and decodes the ones this worker reads.
func (h *Handler) DecodeInput(variables map[string]interface{}) (*Input, error) {
	result, err := validation.ValidateInput(variables, h.schema)
	if err != nil {
		return nil, errors.NewInvalidGuidanceInputError(err.Error())
	}
	if !result.Valid {
		problems := result.GetErrorMessages()
		return nil, errors.NewInvalidGuidanceInputError(strings.Join(problems, "; ")).
			WithMetadata("validationErrors", problems)
	}

	raw, err := json.Marshal(variables)
	if err != nil {
		return nil, errors.NewInvalidJobVariablesError(err)
	}
	var input Input
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, errors.NewInvalidJobVariablesError(err)
	}
	return &input, nil
}

// Execute loads the application list and, when an application is requested,
// that application and its checklist.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.UserID) == "" {
		return nil, errors.NewInvalidGuidanceInputError("userId is required")
	}

	ctx, span := h.tracer.Start(ctx, "guidance.load_context")
	defer span.End()
	span.SetAttributes(
		attribute.String("guidance.user_id", input.UserID),
		attribute.String("guidance.application_id", input.ApplicationID),
	)

	output, err := h.load(ctx, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("guidance.applications", len(output.Applications)))
	span.SetStatus(codes.Ok, "")
	return output, nil
}

func (h *Handler) load(ctx context.Context, input *Input) (*Output, error) {
	apps, err := h.source.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	output := &Output{Applications: apps}

	if input.ApplicationID == "" {
		return output, nil
	}

	app, err := h.source.Get(ctx, input.UserID, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	checklist, err := h.source.Checklist(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	output.Application = app
	output.Checklist = checklist

	h.logger.Debug("application context loaded", map[string]interface{}{
		"userId":        input.UserID,
		"applicationId": app.ID,
		"applications":  len(apps),
		"hasChecklist":  checklist != nil,
	})
	return output, nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
