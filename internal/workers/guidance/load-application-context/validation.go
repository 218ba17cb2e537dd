package loadapplicationcontext

import "visa-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "string",
				Description: "Traveler whose applications are loaded",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
			"applicationId": {
				Type:        []string{"string", "null"},
				Description: "Application to load with its checklist",
				MaxLength:   validation.IntPtr(255),
			},
		},
	}
}
