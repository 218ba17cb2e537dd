package registry

import (
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repoRegistryPath(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "configs", "activity-registry.json")
}

func TestShippedRegistryIsValid(t *testing.T) {
	reg, err := LoadRegistry(repoRegistryPath(t))
	require.NoError(t, err)
	require.NoError(t, reg.Validate())

	for _, taskType := range []string{"resolve-next-step", "load-application-context", "send-guidance-nudge"} {
		a, ok := reg.Find(taskType)
		require.True(t, ok, taskType)
		_, hasSchema, err := a.CompileInputSchema()
		require.NoError(t, err)
		assert.True(t, hasSchema, taskType)
	}
}

func TestResolveInputSchema(t *testing.T) {
	reg, err := LoadRegistry(repoRegistryPath(t))
	require.NoError(t, err)
	a, ok := reg.Find("resolve-next-step")
	require.True(t, ok)
	schema, _, err := a.CompileInputSchema()
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   map[string]interface{}
		valid bool
	}{
		{"empty object", map[string]interface{}{}, true},
		{"empty applications", map[string]interface{}{"applications": []interface{}{}}, true},
		{"null checklist", map[string]interface{}{"checklist": nil}, true},
		{
			name: "ready checklist",
			doc: map[string]interface{}{
				"application": map[string]interface{}{"id": "a1", "status": "in_progress", "progressPercentage": 40},
				"checklist": map[string]interface{}{
					"status": "ready",
					"items":  []interface{}{map[string]interface{}{"category": "required", "status": "verified"}},
				},
			},
			valid: true,
		},
		{"unknown application status", map[string]interface{}{"application": map[string]interface{}{"id": "a1", "status": "lost"}}, false},
		{"progress out of range", map[string]interface{}{"application": map[string]interface{}{"id": "a1", "status": "draft", "progressPercentage": 140}}, false},
		{"unknown checklist status", map[string]interface{}{"checklist": map[string]interface{}{"status": "queued"}}, false},
		{"item without category", map[string]interface{}{"checklist": map[string]interface{}{"status": "ready", "items": []interface{}{map[string]interface{}{}}}}, true},
		{"application without status", map[string]interface{}{"application": map[string]interface{}{"id": "a1"}}, true},
		{"fractional progress", map[string]interface{}{"application": map[string]interface{}{"id": "a1", "progressPercentage": 42.5}}, true},
		{"checklist without status", map[string]interface{}{"checklist": map[string]interface{}{"items": []interface{}{}}}, true},
		{"null optional fields", map[string]interface{}{"application": map[string]interface{}{"id": "a1", "status": nil, "country": nil}, "locale": nil}, true},
		{"application without id", map[string]interface{}{"application": map[string]interface{}{"status": "draft"}}, false},
		{"polling flag must be bool", map[string]interface{}{"isPollingChecklist": "yes"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems, err := ValidateDocument(schema, tt.doc)
			require.NoError(t, err)
			if tt.valid {
				assert.Empty(t, problems)
			} else {
				assert.NotEmpty(t, problems)
			}
		})
	}
}

func TestAddUpdateSave(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	reg := &ActivityRegistry{Version: "1.0.0"}

	require.NoError(t, reg.Add(Activity{
		ID: "resolve-next-step", DisplayName: "Resolve", Category: "guidance",
		TaskType: "resolve-next-step", ImplementationStatus: StatusPlanned,
	}, now))
	assert.Equal(t, "2026-10-17T09:00:00Z", reg.LastUpdated)

	assert.ErrorContains(t, reg.Add(Activity{ID: "resolve-next-step", TaskType: "x"}, now), "already exists")
	assert.ErrorContains(t, reg.Add(Activity{ID: "other", TaskType: "resolve-next-step"}, now), "already served")

	require.NoError(t, reg.Update("resolve-next-step", "status", StatusCompleted, now))
	require.NoError(t, reg.Update("resolve-next-step", "retries", "2", now))
	require.NoError(t, reg.Update("resolve-next-step", "timeout", "5s", now))
	assert.ErrorContains(t, reg.Update("resolve-next-step", "retries", "two", now), "invalid retries")
	assert.ErrorContains(t, reg.Update("resolve-next-step", "timeout", "soon", now), "invalid timeout")
	assert.ErrorContains(t, reg.Update("resolve-next-step", "color", "blue", now), "unknown field")
	assert.ErrorContains(t, reg.Update("missing", "status", "x", now), "not found")

	path := filepath.Join(t.TempDir(), "nested", "registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	a, ok := loaded.Find("resolve-next-step")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, a.ImplementationStatus)
	assert.Equal(t, 2, a.Retries)
	assert.Equal(t, "5s", a.Timeout)
}

func TestValidateReportsAllProblems(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{ID: "a", TaskType: "t", DisplayName: "A", Category: "c", ImplementationStatus: "done"},
		{ID: "a", TaskType: "t", DisplayName: "A", Category: "c", ImplementationStatus: StatusPlanned, Timeout: "later"},
		{ID: "b", TaskType: "u", ImplementationStatus: StatusPlanned,
			InputSchema: map[string]interface{}{"type": 12}},
	}}

	err := reg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown status "done"`)
	assert.Contains(t, msg, "duplicate activity ID: a")
	assert.Contains(t, msg, "duplicate task type: t")
	assert.Contains(t, msg, `invalid timeout "later"`)
	assert.Contains(t, msg, "activity b missing required field: displayName")
	assert.Contains(t, msg, "activity b inputSchema does not compile")

	assert.ErrorContains(t, (&ActivityRegistry{}).Validate(), "no activities")
}
