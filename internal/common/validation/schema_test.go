package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = JSONSchema{
	Type:     "object",
	Required: []string{"userId"},
	Properties: map[string]Property{
		"userId": {Type: "string", MinLength: IntPtr(1)},
		"channel": {
			Type: "string",
			Enum: []string{"email", "sms"},
		},
		"application": {
			Type:     []string{"object", "null"},
			Required: []string{"id"},
			Properties: map[string]Property{
				"id": {Type: "string"},
			},
		},
	},
}

func TestValidateInput(t *testing.T) {
	schema, err := testSchema.Compile()
	require.NoError(t, err)

	tests := []struct {
		name       string
		input      map[string]interface{}
		valid      bool
		wantFields []string
	}{
		{"minimal", map[string]interface{}{"userId": "u1"}, true, nil},
		{"extra fields allowed", map[string]interface{}{"userId": "u1", "processVar": 3}, true, nil},
		{"null application", map[string]interface{}{"userId": "u1", "application": nil}, true, nil},
		{"nil input", nil, false, []string{"userId"}},
		{"empty user", map[string]interface{}{"userId": ""}, false, []string{"userId"}},
		{"bad enum", map[string]interface{}{"userId": "u1", "channel": "fax"}, false, []string{"channel"}},
		{"nested required", map[string]interface{}{"userId": "u1", "application": map[string]interface{}{}}, false, []string{"application.id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ValidateInput(tt.input, schema)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			for _, field := range tt.wantFields {
				assert.True(t, result.HasErrors(field), "expected error on %s, got %v", field, result.GetErrorMessages())
			}
		})
	}
}

func TestMustCompilePanicsOnBadSchema(t *testing.T) {
	bad := JSONSchema{Type: "object", Properties: map[string]Property{"x": {Type: 12}}}
	assert.Panics(t, func() { bad.MustCompile() })
	assert.NotPanics(t, func() { testSchema.MustCompile() })
}

func TestValidateEmailAndPhone(t *testing.T) {
	assert.True(t, ValidateEmail("traveler@example.com"))
	assert.False(t, ValidateEmail("traveler@"))
	assert.False(t, ValidateEmail(""))

	assert.True(t, ValidatePhone("+819012345678"))
	assert.True(t, ValidatePhone("+14155550123"))
	assert.False(t, ValidatePhone("4155550123"))
	assert.False(t, ValidatePhone("+1 (415) 555-0123"))
	assert.False(t, ValidatePhone("+0123456789"))
}
