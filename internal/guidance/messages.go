// internal/guidance/messages.go
package guidance

import (
	"fmt"
	"strings"
)

// TranslateFunc returns the localized text for key, or defaultValue when no
// translation exists, with {{name}} placeholders replaced from vars.
type TranslateFunc func(key, defaultValue string, vars map[string]interface{}) string

// ReassuranceFunc returns the help text shown next to rejected documents.
type ReassuranceFunc func() string

// MilestoneFunc returns an encouragement message for a progress percentage.
type MilestoneFunc func(progressPercentage int) (string, bool)

// Interpolate replaces {{name}} placeholders in text with values from vars.
// Unknown placeholders are left untouched.
func Interpolate(text string, vars map[string]interface{}) string {
	if len(vars) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	pairs := make([]string, 0, len(vars)*4)
	for k, v := range vars {
		val := fmt.Sprint(v)
		pairs = append(pairs, "{{"+k+"}}", val, "{{ "+k+" }}", val)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// DefaultTranslate performs interpolation only.
func DefaultTranslate(_ string, defaultValue string, vars map[string]interface{}) string {
	return Interpolate(defaultValue, vars)
}

type milestone struct {
	threshold    int
	key          string
	defaultValue string
}

// Highest threshold first. Milestones only decorate the in-progress card, which
// always has documents outstanding, so none claims completion.
var milestones = []milestone{
	{90, "guidance.milestone.finalStretch", "Final stretch! Just a few documents to go."},
	{75, "guidance.milestone.almostThere", "Almost there! You're three quarters of the way."},
	{50, "guidance.milestone.halfway", "Halfway there! Keep the momentum going."},
	{25, "guidance.milestone.greatStart", "Great start! You're a quarter of the way done."},
}

// Milestones returns a MilestoneFunc whose messages are localized with t.
func Milestones(t TranslateFunc) MilestoneFunc {
	if t == nil {
		t = DefaultTranslate
	}
	return func(progress int) (string, bool) {
		for _, m := range milestones {
			if progress >= m.threshold {
				return t(m.key, m.defaultValue, map[string]interface{}{"progress": progress}), true
			}
		}
		return "", false
	}
}

// Reassurance returns a ReassuranceFunc localized with t. The message is fixed so
// that resolving the same snapshot twice yields the same card.
func Reassurance(t TranslateFunc) ReassuranceFunc {
	if t == nil {
		t = DefaultTranslate
	}
	return func() string {
		return t("guidance.reassurance.rejected",
			"Rejections are common and usually quick to fix. Most travelers resolve them within a day.", nil)
	}
}

// Routes are the navigation targets placed in action hrefs. The web client uses
// paths; the mobile client configures its own deep links.
type Routes struct {
	Questionnaire   string `mapstructure:"questionnaire" json:"questionnaire"`
	Chat            string `mapstructure:"chat" json:"chat"`
	Application     string `mapstructure:"application" json:"application"` // fmt pattern with one %s for the id
	ChecklistAnchor string `mapstructure:"checklist_anchor" json:"checklistAnchor"`
}

func DefaultRoutes() Routes {
	return Routes{
		Questionnaire:   "/questionnaire",
		Chat:            "/chat",
		Application:     "/applications/%s",
		ChecklistAnchor: "#checklist",
	}
}

// withDefaults fills any empty route from DefaultRoutes.
func (r Routes) withDefaults() Routes {
	d := DefaultRoutes()
	if r.Questionnaire == "" {
		r.Questionnaire = d.Questionnaire
	}
	if r.Chat == "" {
		r.Chat = d.Chat
	}
	if r.Application == "" || !strings.Contains(r.Application, "%s") {
		r.Application = d.Application
	}
	if r.ChecklistAnchor == "" {
		r.ChecklistAnchor = d.ChecklistAnchor
	}
	return r
}

func (r Routes) application(id string) string {
	return fmt.Sprintf(r.Application, id)
}

func (r Routes) checklist(id string) string {
	return r.application(id) + r.ChecklistAnchor
}
