// internal/workers/communication/send-guidance-nudge/models.go
package sendguidancenudge

import "visa-workers/internal/guidance"

type Input struct {
	UserID   string          `json:"userId"`
	Email    string          `json:"email,omitempty"`
	Phone    string          `json:"phone,omitempty"`
	Guidance *guidance.State `json:"guidance"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	EmailSent      bool   `json:"emailSent"`
	SMSSent        bool   `json:"smsSent"`
	Skipped        bool   `json:"skipped"`
	Reason         string `json:"reason,omitempty"`
	EmailMessageID string `json:"emailMessageId,omitempty"`
	SMSMessageID   string `json:"smsMessageId,omitempty"`
}

// Skip and partial-delivery reasons reported in Output.Reason.
const (
	ReasonNoGuidance   = "no_guidance"
	ReasonBelowMinimum = "below_min_urgency"
	ReasonNoChannel    = "no_channel"
	ReasonEmailFailed  = "email_failed"
	ReasonSMSFailed    = "sms_failed"
)
