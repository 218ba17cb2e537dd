// internal/workers/communication/send-guidance-nudge/config.go
package sendguidancenudge

import (
	"fmt"
	"strings"
	"time"

	"visa-workers/internal/common/config"
	"visa-workers/internal/guidance"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	MinUrgency    guidance.Urgency
	BaseURL       string
	EmailEnabled  bool
	SMSEnabled    bool
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       15 * time.Second,
		MinUrgency:    guidance.UrgencyMedium,
		EmailEnabled:  true,
	}
}

func FromAppConfig(app *config.Config) *Config {
	c := DefaultConfig()
	if app == nil {
		return c
	}
	wc := config.GetWorkerConfig(app, TaskType)
	c.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		c.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		c.Timeout = config.GetDuration(wc.Timeout)
	}
	if u, ok := guidance.ParseUrgency(app.Notifications.MinUrgency); ok {
		c.MinUrgency = u
	}
	c.BaseURL = strings.TrimRight(app.Notifications.BaseURL, "/")
	c.EmailEnabled = app.Notifications.Email.Enabled
	c.SMSEnabled = app.Notifications.SMS.Enabled
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if _, ok := guidance.ParseUrgency(string(c.MinUrgency)); !ok {
		return fmt.Errorf("unknown min urgency %q", c.MinUrgency)
	}
	return nil
}
