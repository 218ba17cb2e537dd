// internal/workers/guidance/resolve-next-step/handler.go
package resolvenextstep

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
	"visa-workers/internal/guidance"
	"visa-workers/internal/i18n"
	"visa-workers/pkg/registry"
)

const TaskType = "resolve-next-step"

type Handler struct {
	config       *Config
	catalog      *i18n.Bundle
	schema       *gojsonschema.Schema
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	tracer       trace.Tracer
}

type HandlerOptions struct {
	Config   *Config
	Catalog  *i18n.Bundle
	Registry *registry.ActivityRegistry // optional; supplies the input schema
	Logger   logger.Logger
	Obs      *observability.Observability // optional
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = i18n.LoadEmbedded(); err != nil {
			return nil, fmt.Errorf("load message catalogs: %w", err)
		}
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	schema, err := inputSchema(opts.Registry)
	if err != nil {
		return nil, err
	}

	return &Handler{
		config:       cfg,
		catalog:      catalog,
		schema:       schema,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		obs:          opts.Obs,
		tracer:       observability.Tracer(),
	}, nil
}

func inputSchema(reg *registry.ActivityRegistry) (*gojsonschema.Schema, error) {
	if reg != nil {
		if activity, ok := reg.Find(TaskType); ok {
			schema, found, err := activity.CompileInputSchema()
			if err != nil {
				return nil, err
			}
			if found {
				return schema, nil
			}
		}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(defaultInputSchema))
	if err != nil {
		return nil, fmt.Errorf("compile default input schema: %w", err)
	}
	return schema, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		h.obs.RecordJob(ctx, TaskType, "complete_failed", time.Since(start))
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.RecordGuidance("worker", output.Rule, urgencyOf(output.Guidance))
	h.obs.RecordJob(ctx, TaskType, "completed", time.Since(start))
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidJobVariablesError(err)
	}
	return h.DecodeInput(variables)
}

// DecodeInput validates raw variables against the input schema and decodes them.
func (h *Handler) DecodeInput(variables map[string]interface{}) (*Input, error) {
	if err := h.ValidateVariables(variables); err != nil {
		return nil, err
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

// ValidateVariables checks variables against the activity input schema.
func (h *Handler) ValidateVariables(variables map[string]interface{}) error {
	if variables == nil {
		variables = map[string]interface{}{}
	}
	problems, err := registry.ValidateDocument(h.schema, variables)
	if err != nil {
		return errors.NewInvalidGuidanceInputError(err.Error())
	}
	if len(problems) > 0 {
		return errors.NewInvalidGuidanceInputError(strings.Join(problems, "; ")).
			WithMetadata("validationErrors", problems)
	}
	return nil
}

// Execute resolves the snapshot with a resolver localized for the input locale.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		input = &Input{}
	}

	_, span := h.tracer.Start(ctx, "guidance.resolve")
	defer span.End()

	requested := input.Locale
	if strings.TrimSpace(requested) == "" {
		requested = h.config.DefaultLocale
	}
	locale := h.catalog.Match(requested)

	resolver := h.catalog.Resolver(locale, h.config.Routes)
	state, rule := resolver.ResolveRule(input.Input)

	span.SetAttributes(
		attribute.String("guidance.locale", locale),
		attribute.String("guidance.rule", rule),
		attribute.Int("guidance.applications", len(input.Applications)),
		attribute.Bool("guidance.has_application", input.Application != nil),
	)
	if state != nil {
		span.SetAttributes(attribute.String("guidance.urgency", string(state.Urgency)))
	}
	span.SetStatus(codes.Ok, "")

	h.logger.Debug("guidance resolved", map[string]interface{}{
		"rule":   rule,
		"locale": locale,
	})

	return &Output{
		Guidance:    state,
		HasGuidance: state != nil,
		Locale:      locale,
		Rule:        rule,
	}, nil
}

func urgencyOf(state *guidance.State) string {
	if state == nil {
		return ""
	}
	return string(state.Urgency)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	if _, err := cmd.Send(ctx); err != nil {
		return fmt.Errorf("send complete job command: %w", err)
	}
	return nil
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
