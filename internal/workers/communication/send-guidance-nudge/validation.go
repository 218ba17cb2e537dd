package sendguidancenudge

import "visa-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"userId"},
		Properties: map[string]validation.Property{
			"userId": {
				Type:        "string",
				Description: "Traveler the nudge is addressed to",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
			"email": {
				Type:        []string{"string", "null"},
				Description: "Email address; blank disables the email channel",
				MaxLength:   validation.IntPtr(320),
			},
			"phone": {
				Type:        []string{"string", "null"},
				Description: "E.164 phone number; blank disables the SMS channel",
				MaxLength:   validation.IntPtr(32),
			},
			"guidance": {
				Type:        []string{"object", "null"},
				Description: "Guidance card produced by resolve-next-step",
				Required:    []string{"title", "urgency"},
				Properties: map[string]validation.Property{
					"title":   {Type: "string"},
					"urgency": {Type: "string", Enum: []string{"high", "medium", "low", "info"}},
				},
			},
		},
	}
}
