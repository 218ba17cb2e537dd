// internal/workers/guidance/resolve-next-step/config.go
package resolvenextstep

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
	DefaultLocale string
	Routes        guidance.Routes
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 10,
		Timeout:       5 * time.Second,
		DefaultLocale: "en",
		Routes:        guidance.DefaultRoutes(),
	}
}

// FromAppConfig overlays the worker and guidance sections of the app config.
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
	if app.Guidance.DefaultLocale != "" {
		c.DefaultLocale = app.Guidance.DefaultLocale
	}
	c.Routes = app.Guidance.Routes
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if strings.TrimSpace(c.DefaultLocale) == "" {
		return fmt.Errorf("default_locale is required")
	}
	return nil
}
