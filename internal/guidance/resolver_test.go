// internal/guidance/resolver_test.go
package guidance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func spainTourist() *Application {
	return &Application{
		ID:                 "a1",
		Status:             StatusInProgress,
		Country:            Country{Name: "Spain"},
		VisaType:           VisaType{Name: "Tourist Visa"},
		ProgressPercentage: 40,
	}
}

func readyChecklist(items ...ChecklistItem) *DocumentChecklist {
	if items == nil {
		items = []ChecklistItem{}
	}
	return &DocumentChecklist{Status: ChecklistReady, Items: items}
}

func item(category, status string) ChecklistItem {
	return ChecklistItem{Category: category, Status: status}
}

// ==========================
// Core Journeys
// ==========================

func TestResolve_EmptyListStartsQuestionnaire(t *testing.T) {
	state := Resolve(Input{Applications: []Application{}})

	require.NotNil(t, state)
	assert.Equal(t, "Getting Started", state.Category)
	assert.Equal(t, UrgencyHigh, state.Urgency)
	assert.Equal(t, IconRocket, state.Icon)
	require.NotNil(t, state.PrimaryAction)
	assert.Equal(t, "/questionnaire", state.PrimaryAction.Href)
	require.NotNil(t, state.SecondaryAction)
	assert.Equal(t, "/chat", state.SecondaryAction.Href)
}

func TestResolve_RejectedDocumentNeedsFix(t *testing.T) {
	state := Resolve(Input{
		Application: spainTourist(),
		Checklist: readyChecklist(
			item(CategoryRequired, ItemRejected),
			item(CategoryRequired, ItemVerified),
		),
	})

	require.NotNil(t, state)
	assert.Equal(t, "Small Fix Needed", state.Category)
	assert.Equal(t, "1 document(s) need your attention", state.Title)
	assert.Equal(t, UrgencyHigh, state.Urgency)
	assert.NotEmpty(t, state.HelpText)
	require.NotNil(t, state.PrimaryAction)
	assert.Equal(t, "/applications/a1#checklist", state.PrimaryAction.Href)
	require.NotNil(t, state.SecondaryAction)
	assert.Equal(t, "/chat", state.SecondaryAction.Href)
}

func TestResolve_AllRequiredVerifiedIsReady(t *testing.T) {
	state := Resolve(Input{
		Application: spainTourist(),
		Checklist:   readyChecklist(item(CategoryRequired, ItemVerified)),
	})

	require.NotNil(t, state)
	assert.Equal(t, "Ready to Proceed", state.Category)
	assert.Equal(t, UrgencyLow, state.Urgency)
	assert.Equal(t, "/applications/a1", state.PrimaryAction.Href)
}

func TestResolve_DraftOnDashboardResumes(t *testing.T) {
	state := Resolve(Input{Applications: []Application{
		{ID: "app-7", Status: StatusSubmitted},
		{ID: "app-9", Status: StatusDraft, Country: Country{Name: "Japan"}, VisaType: VisaType{Name: "Student Visa"}},
	}})

	require.NotNil(t, state)
	assert.Equal(t, "Pick Up Where You Left Off", state.Category)
	assert.Equal(t, UrgencyMedium, state.Urgency)
	assert.Equal(t, "/applications/app-9", state.PrimaryAction.Href)
	assert.Contains(t, state.Title, "Student Visa")
}

// ==========================
// Precedence Tests
// ==========================

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name         string
		input        Input
		expectedRule string
		expectedUrg  Urgency
	}{
		{
			name: "empty list wins over a specific application",
			input: Input{
				Applications: []Application{},
				Application:  spainTourist(),
				Checklist:    readyChecklist(item(CategoryRequired, ItemRejected)),
			},
			expectedRule: RuleNoApplications,
			expectedUrg:  UrgencyHigh,
		},
		{
			name:         "polling flag with no checklist",
			input:        Input{Application: spainTourist(), IsPollingChecklist: true},
			expectedRule: RulePreparingChecklist,
			expectedUrg:  UrgencyInfo,
		},
		{
			name: "polling flag wins over a ready checklist",
			input: Input{
				Application:        spainTourist(),
				Checklist:          readyChecklist(item(CategoryRequired, ItemRejected)),
				IsPollingChecklist: true,
			},
			expectedRule: RulePreparingChecklist,
			expectedUrg:  UrgencyInfo,
		},
		{
			name:         "processing checklist",
			input:        Input{Application: spainTourist(), Checklist: &DocumentChecklist{Status: ChecklistProcessing}},
			expectedRule: RulePreparingChecklist,
			expectedUrg:  UrgencyInfo,
		},
		{
			name:         "failed checklist",
			input:        Input{Application: spainTourist(), Checklist: &DocumentChecklist{Status: ChecklistFailed}},
			expectedRule: RuleChecklistFailed,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "rejected wins over all verified",
			input: Input{
				Application: spainTourist(),
				Checklist: readyChecklist(
					item(CategoryRequired, ItemVerified),
					item(CategoryOptional, ItemRejected),
				),
			},
			expectedRule: RuleDocumentsRejected,
			expectedUrg:  UrgencyHigh,
		},
		{
			name: "rejected wins over in progress",
			input: Input{
				Application: spainTourist(),
				Checklist: readyChecklist(
					item(CategoryRequired, ItemVerified),
					item(CategoryRequired, ItemPending),
					item(CategoryHighlyRecommended, ItemRejected),
				),
			},
			expectedRule: RuleDocumentsRejected,
			expectedUrg:  UrgencyHigh,
		},
		{
			name: "required verified while optional pending",
			input: Input{
				Application: spainTourist(),
				Checklist: readyChecklist(
					item(CategoryRequired, ItemVerified),
					item(CategoryRequired, ItemVerified),
					item(CategoryOptional, ""),
					item(CategoryHighlyRecommended, ItemPending),
				),
			},
			expectedRule: RuleReadyToSubmit,
			expectedUrg:  UrgencyLow,
		},
		{
			name: "some verified some pending",
			input: Input{
				Application: spainTourist(),
				Checklist: readyChecklist(
					item(CategoryRequired, ItemVerified),
					item(CategoryRequired, ItemPending),
				),
			},
			expectedRule: RuleUploadsInProgress,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "nothing uploaded yet",
			input: Input{
				Application: spainTourist(),
				Checklist: readyChecklist(
					item(CategoryRequired, ""),
					item(CategoryRequired, ItemPending),
					item(CategoryOptional, ItemMissing),
				),
			},
			expectedRule: RuleStartUploading,
			expectedUrg:  UrgencyHigh,
		},
		{
			name:         "ready checklist with no items falls through",
			input:        Input{Application: spainTourist(), Checklist: readyChecklist()},
			expectedRule: RuleApplicationProgress,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "ready checklist with nil items falls through to submitted",
			input: Input{
				Application: &Application{ID: "s1", Status: StatusSubmitted},
				Checklist:   &DocumentChecklist{Status: ChecklistReady},
			},
			expectedRule: RuleSubmitted,
			expectedUrg:  UrgencyInfo,
		},
		{
			name: "optional only verified falls through",
			input: Input{
				Application: &Application{ID: "ap", Status: StatusApproved},
				Checklist:   readyChecklist(item(CategoryOptional, ItemVerified)),
			},
			expectedRule: RuleApproved,
			expectedUrg:  UrgencyLow,
		},
		{
			name:         "submitted without checklist",
			input:        Input{Application: &Application{ID: "s2", Status: StatusSubmitted}},
			expectedRule: RuleSubmitted,
			expectedUrg:  UrgencyInfo,
		},
		{
			name:         "unknown checklist status behaves as absent",
			input:        Input{Application: &Application{ID: "d1", Status: StatusDraft}, Checklist: &DocumentChecklist{Status: "queued"}},
			expectedRule: RuleApplicationProgress,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "specific application ignores dashboard list",
			input: Input{
				Applications: []Application{{ID: "x", Status: StatusDraft}},
				Application:  &Application{ID: "r1", Status: StatusRejected},
			},
			expectedRule: RuleApplicationProgress,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "draft wins over in progress on dashboard",
			input: Input{Applications: []Application{
				{ID: "p1", Status: StatusInProgress},
				{ID: "d1", Status: StatusDraft},
			}},
			expectedRule: RuleResumeDraft,
			expectedUrg:  UrgencyMedium,
		},
		{
			name: "in progress on dashboard",
			input: Input{Applications: []Application{
				{ID: "s1", Status: StatusSubmitted},
				{ID: "p1", Status: StatusInProgress},
			}},
			expectedRule: RuleKeepMomentum,
			expectedUrg:  UrgencyMedium,
		},
	}

	resolver := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, ruleName := resolver.ResolveRule(tt.input)
			require.NotNil(t, state)
			assert.Equal(t, tt.expectedRule, ruleName)
			assert.Equal(t, tt.expectedUrg, state.Urgency)
		})
	}
}

func TestResolve_NoGuidance(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{name: "zero input", input: Input{}},
		{name: "polling without application", input: Input{IsPollingChecklist: true}},
		{name: "checklist without application", input: Input{Checklist: readyChecklist(item(CategoryRequired, ItemRejected))}},
		{
			name: "only finished applications",
			input: Input{Applications: []Application{
				{ID: "a", Status: StatusSubmitted},
				{ID: "b", Status: StatusApproved},
				{ID: "c", Status: StatusRejected},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				state, ruleName := NewResolver().ResolveRule(tt.input)
				assert.Nil(t, state)
				assert.Empty(t, ruleName)
			})
		})
	}
}

// ==========================
// Property Tests
// ==========================

func TestResolve_PreparingHasNoActions(t *testing.T) {
	for _, polling := range []bool{true, false} {
		state := Resolve(Input{
			Application:        spainTourist(),
			Checklist:          &DocumentChecklist{Status: ChecklistProcessing},
			IsPollingChecklist: polling,
		})
		require.NotNil(t, state)
		assert.Equal(t, UrgencyInfo, state.Urgency)
		assert.Nil(t, state.PrimaryAction)
		assert.Nil(t, state.SecondaryAction)
	}
}

func TestResolve_FirstMatchKeepsCallerOrder(t *testing.T) {
	state := Resolve(Input{Applications: []Application{
		{ID: "first", Status: StatusInProgress},
		{ID: "second", Status: StatusInProgress},
	}})

	require.NotNil(t, state)
	assert.Equal(t, "Keep Building Momentum", state.Category)
	assert.Equal(t, "/applications/first", state.PrimaryAction.Href)
}

func TestResolve_Idempotent(t *testing.T) {
	in := Input{
		Application: spainTourist(),
		Checklist: readyChecklist(
			item(CategoryRequired, ItemVerified),
			item(CategoryRequired, ItemPending),
		),
	}
	resolver := NewResolver()

	assert.Equal(t, resolver.Resolve(in), resolver.Resolve(in))
}

func TestResolve_InProgressUsesMilestone(t *testing.T) {
	app := spainTourist()
	app.ProgressPercentage = 55
	in := Input{
		Application: app,
		Checklist: readyChecklist(
			item(CategoryRequired, ItemVerified),
			item(CategoryRequired, ItemPending),
		),
	}

	state := Resolve(in)
	require.NotNil(t, state)
	assert.Equal(t, "Halfway there! Keep the momentum going.", state.Description)
	assert.Equal(t, "1 document(s) verified so far", state.Title)

	app.ProgressPercentage = 10
	state = Resolve(in)
	require.NotNil(t, state)
	assert.Equal(t, "1 document(s) left to upload. Every upload gets you closer.", state.Description)
}

func TestResolve_UsesCollaborators(t *testing.T) {
	var keys []string
	translate := func(key, defaultValue string, vars map[string]interface{}) string {
		keys = append(keys, key)
		return "[" + Interpolate(defaultValue, vars) + "]"
	}
	resolver := NewResolver(
		WithTranslator(translate),
		WithReassurance(func() string { return "you've got this" }),
		WithMilestones(func(int) (string, bool) { return "custom milestone", true }),
		WithRoutes(Routes{Chat: "visa://chat", Application: "visa://applications/%s"}),
	)

	state := resolver.Resolve(Input{
		Application: spainTourist(),
		Checklist:   readyChecklist(item(CategoryRequired, ItemRejected)),
	})
	require.NotNil(t, state)
	assert.Equal(t, "[Small Fix Needed]", state.Category)
	assert.Equal(t, "you've got this", state.HelpText)
	assert.Equal(t, "visa://applications/a1#checklist", state.PrimaryAction.Href)
	assert.Equal(t, "visa://chat", state.SecondaryAction.Href)
	assert.Contains(t, keys, "guidance.rejected.category")

	state = resolver.Resolve(Input{
		Application: spainTourist(),
		Checklist: readyChecklist(
			item(CategoryRequired, ItemVerified),
			item(CategoryRequired, ItemPending),
		),
	})
	require.NotNil(t, state)
	assert.Equal(t, "custom milestone", state.Description)

	state = resolver.Resolve(Input{Applications: []Application{}})
	require.NotNil(t, state)
	assert.Equal(t, "/questionnaire", state.PrimaryAction.Href)
}

// ==========================
// Helper Tests
// ==========================

func TestCountItems(t *testing.T) {
	counts := CountItems([]ChecklistItem{
		item(CategoryRequired, ItemVerified),
		item(CategoryRequired, ItemRejected),
		item(CategoryRequired, ""),
		item(CategoryHighlyRecommended, ItemPending),
		item(CategoryOptional, ItemVerified),
		item(CategoryOptional, ItemMissing),
	})

	assert.Equal(t, Counts{
		Required:         3,
		RequiredVerified: 1,
		Verified:         2,
		Pending:          3,
		Rejected:         1,
	}, counts)
}

func TestCountItems_AwaitingUploadStatuses(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		pending int
	}{
		{name: "no status yet", status: "", pending: 1},
		{name: "reported missing", status: ItemMissing, pending: 1},
		{name: "uploaded, awaiting review", status: ItemPending, pending: 1},
		{name: "verified", status: ItemVerified, pending: 0},
		{name: "rejected", status: ItemRejected, pending: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counts := CountItems([]ChecklistItem{item(CategoryRequired, tt.status)})
			assert.Equal(t, tt.pending, counts.Pending)
			assert.Equal(t, 1, counts.Required)
		})
	}
}

func TestResolve_MissingItemStillAwaitsUpload(t *testing.T) {
	state, rule := NewResolver().ResolveRule(Input{
		Application: spainTourist(),
		Checklist: readyChecklist(
			item(CategoryRequired, ItemVerified),
			item(CategoryRequired, ItemMissing),
		),
	})

	require.NotNil(t, state)
	assert.Equal(t, RuleUploadsInProgress, rule)
	assert.Equal(t, UrgencyMedium, state.Urgency)
}

func TestApplicationUnmarshal_Progress(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"id": "a1", "progressPercentage": 40}`, 40},
		{`{"id": "a1", "progressPercentage": 42.5}`, 43},
		{`{"id": "a1", "progressPercentage": 99.4}`, 99},
		{`{"id": "a1", "progressPercentage": null}`, 0},
		{`{"id": "a1"}`, 0},
	}
	for _, tt := range tests {
		var app Application
		require.NoError(t, json.Unmarshal([]byte(tt.body), &app), tt.body)
		assert.Equal(t, "a1", app.ID)
		assert.Equal(t, "", app.Status)
		assert.Equal(t, tt.want, app.ProgressPercentage, tt.body)
	}

	var apps []Application
	require.NoError(t, json.Unmarshal([]byte(`[{"id": "a1", "status": "draft", "country": {"name": "Spain"}, "progressPercentage": 12.7}]`), &apps))
	require.Len(t, apps, 1)
	assert.Equal(t, Application{ID: "a1", Status: StatusDraft, Country: Country{Name: "Spain"}, ProgressPercentage: 13}, apps[0])

	assert.Error(t, json.Unmarshal([]byte(`{"id": "a1", "progressPercentage": "half"}`), &Application{}))
}

func TestMilestones(t *testing.T) {
	milestone := Milestones(nil)
	tests := []struct {
		progress int
		found    bool
		contains string
	}{
		{progress: 0, found: false},
		{progress: 24, found: false},
		{progress: 25, found: true, contains: "Great start"},
		{progress: 74, found: true, contains: "Halfway"},
		{progress: 90, found: true, contains: "Final stretch"},
		{progress: 100, found: true, contains: "Final stretch"},
	}
	for _, tt := range tests {
		msg, ok := milestone(tt.progress)
		assert.Equal(t, tt.found, ok, "progress %d", tt.progress)
		if tt.found {
			assert.Contains(t, msg, tt.contains)
		}
	}
}

func TestInterpolate(t *testing.T) {
	assert.Equal(t, "Spain in 3 days", Interpolate("{{country}} in {{ days }} days", map[string]interface{}{
		"country": "Spain",
		"days":    3,
	}))
	assert.Equal(t, "{{unknown}}", Interpolate("{{unknown}}", map[string]interface{}{"x": 1}))
	assert.Equal(t, "plain", Interpolate("plain", nil))
}

func TestUrgencyRank(t *testing.T) {
	assert.Greater(t, UrgencyHigh.Rank(), UrgencyMedium.Rank())
	assert.Greater(t, UrgencyMedium.Rank(), UrgencyLow.Rank())
	assert.Greater(t, UrgencyLow.Rank(), UrgencyInfo.Rank())
	assert.Equal(t, 0, Urgency("bogus").Rank())
}

func TestParseUrgency(t *testing.T) {
	u, ok := ParseUrgency(" HIGH ")
	assert.True(t, ok)
	assert.Equal(t, UrgencyHigh, u)

	_, ok = ParseUrgency("urgent")
	assert.False(t, ok)
}
