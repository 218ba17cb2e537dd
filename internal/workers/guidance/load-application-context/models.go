// internal/workers/guidance/load-application-context/models.go
package loadapplicationcontext

import "visa-workers/internal/guidance"

type Input struct {
	UserID        string `json:"userId"`
	ApplicationID string `json:"applicationId,omitempty"`
}

// Output is shaped as the input of resolve-next-step so the process can map
// it straight through.
type Output struct {
	Applications []guidance.Application      `json:"applications"`
	Application  *guidance.Application       `json:"application"`
	Checklist    *guidance.DocumentChecklist `json:"checklist"`
}
