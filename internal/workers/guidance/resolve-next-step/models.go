// internal/workers/guidance/resolve-next-step/models.go
package resolvenextstep

import "visa-workers/internal/guidance"

// Input is the guidance snapshot plus the traveler's preferred locale, which may
// be a tag or an Accept-Language value.
type Input struct {
	guidance.Input
	Locale string `json:"locale,omitempty"`
}

type Output struct {
	Guidance    *guidance.State `json:"guidance"`
	HasGuidance bool            `json:"hasGuidance"`
	Locale      string          `json:"locale"`
	Rule        string          `json:"rule,omitempty"`
}

// defaultInputSchema is used when the activity registry is unavailable.
const defaultInputSchema = `{
  "type": "object",
  "properties": {
    "applications": {"type": ["array", "null"], "items": {"$ref": "#/definitions/application"}},
    "application": {"oneOf": [{"type": "null"}, {"$ref": "#/definitions/application"}]},
    "checklist": {
      "oneOf": [
        {"type": "null"},
        {
          "type": "object",
          "properties": {
            "status": {"enum": ["processing", "ready", "failed", null]},
            "items": {"type": ["array", "null"], "items": {"type": "object"}}
          }
        }
      ]
    },
    "isPollingChecklist": {"type": ["boolean", "null"]},
    "locale": {"type": ["string", "null"], "maxLength": 64}
  },
  "definitions": {
    "application": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "status": {"type": ["string", "null"]},
        "progressPercentage": {"type": ["number", "null"], "minimum": 0, "maximum": 100}
      }
    }
  }
}`
