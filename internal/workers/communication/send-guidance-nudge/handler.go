// internal/workers/communication/send-guidance-nudge/handler.go
package sendguidancenudge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"visa-workers/internal/common/aws"
	"visa-workers/internal/common/errors"
	"visa-workers/internal/common/logger"
	"visa-workers/internal/common/metrics"
	"visa-workers/internal/common/observability"
	"visa-workers/internal/common/validation"
	"visa-workers/internal/guidance"
)

const (
	TaskType = "send-guidance-nudge"

	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, msg aws.Email) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config       *Config
	email        EmailSender
	sms          SMSSender
	schema       *gojsonschema.Schema
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
	obs          *observability.Observability
	newID        func() string
}

type HandlerOptions struct {
	Config *Config
	Email  EmailSender // nil disables the email channel
	SMS    SMSSender   // nil disables the SMS channel
	Logger logger.Logger
	Obs    *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	schema, err := GetInputSchema().Compile()
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		email:        opts.Email,
		sms:          opts.SMS,
		schema:       schema,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
		obs:          opts.Obs,
		newID:        func() string { return uuid.New().String() },
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

// Execute delivers the guidance card over the enabled channels. A failure is
// returned only when no channel delivered, so a retried job never repeats a
// message that already went out.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.NewInvalidGuidanceInputError("input is required")
	}
	output := &Output{NotificationID: h.newID()}

	if reason := h.skipReason(input.Guidance); reason != "" {
		output.Skipped = true
		output.Reason = reason
		h.logger.Debug("nudge skipped", map[string]interface{}{
			"userId": input.UserID,
			"reason": reason,
		})
		return output, nil
	}

	msg, err := render(input.Guidance, h.config.BaseURL)
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	sendEmail := h.emailEnabled(input)
	sendSMS := h.smsEnabled(input)
	if !sendEmail && !sendSMS {
		output.Skipped = true
		output.Reason = ReasonNoChannel
		return output, nil
	}

	var (
		failures []string
		firstErr *errors.StandardError
	)
	if sendEmail {
		id, err := h.email.SendEmail(ctx, aws.Email{
			To:       input.Email,
			Subject:  msg.Subject,
			TextBody: msg.Text,
			HTMLBody: msg.HTML,
		})
		if err != nil {
			failures = append(failures, ReasonEmailFailed)
			firstErr = h.sendFailed(ChannelEmail, input, err)
		} else {
			output.EmailSent, output.EmailMessageID = true, id
			metrics.NudgesSent.WithLabelValues(ChannelEmail).Inc()
		}
	}
	if sendSMS {
		id, err := h.sms.SendSMS(ctx, input.Phone, msg.SMS)
		if err != nil {
			failures = append(failures, ReasonSMSFailed)
			if firstErr == nil {
				firstErr = h.sendFailed(ChannelSMS, input, err)
			} else {
				h.sendFailed(ChannelSMS, input, err)
			}
		} else {
			output.SMSSent, output.SMSMessageID = true, id
			metrics.NudgesSent.WithLabelValues(ChannelSMS).Inc()
		}
	}

	if !output.EmailSent && !output.SMSSent {
		return nil, firstErr
	}
	output.Reason = strings.Join(failures, ",")

	h.logger.Info("nudge sent", map[string]interface{}{
		"userId":         input.UserID,
		"notificationId": output.NotificationID,
		"emailSent":      output.EmailSent,
		"smsSent":        output.SMSSent,
		"urgency":        string(input.Guidance.Urgency),
	})
	return output, nil
}

func (h *Handler) skipReason(state *guidance.State) string {
	if state == nil {
		return ReasonNoGuidance
	}
	if state.Urgency.Rank() < h.config.MinUrgency.Rank() {
		return ReasonBelowMinimum
	}
	return ""
}

func (h *Handler) emailEnabled(input *Input) bool {
	if !h.config.EmailEnabled || h.email == nil || input.Email == "" {
		return false
	}
	if !validation.ValidateEmail(input.Email) {
		h.logger.Warn("ignoring malformed email address", map[string]interface{}{"userId": input.UserID})
		return false
	}
	return true
}

// SMS is reserved for high-urgency cards.
func (h *Handler) smsEnabled(input *Input) bool {
	if !h.config.SMSEnabled || h.sms == nil || input.Phone == "" {
		return false
	}
	if input.Guidance.Urgency != guidance.UrgencyHigh {
		return false
	}
	if !validation.ValidatePhone(input.Phone) {
		h.logger.Warn("ignoring malformed phone number", map[string]interface{}{"userId": input.UserID})
		return false
	}
	return true
}

func (h *Handler) sendFailed(channel string, input *Input, err error) *errors.StandardError {
	h.logger.Error("nudge delivery failed", map[string]interface{}{
		"userId":  input.UserID,
		"channel": channel,
		"error":   err.Error(),
	})
	return errors.NewNotificationSendFailedError(channel, err)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	stdErr := errors.Normalize(err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
	h.errorHandler.HandleJobError(ctx, client, job, stdErr)
}
