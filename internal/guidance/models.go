// internal/guidance/models.go
package guidance

import (
	"encoding/json"
	"math"
	"strings"
)

// Application statuses as reported by the applications backend.
const (
	StatusDraft      = "draft"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Checklist generation statuses.
const (
	ChecklistProcessing = "processing"
	ChecklistReady      = "ready"
	ChecklistFailed     = "failed"
)

// Checklist item categories.
const (
	CategoryRequired          = "required"
	CategoryHighlyRecommended = "highly_recommended"
	CategoryOptional          = "optional"
)

// Checklist item verification statuses. An empty status means nothing was uploaded yet.
const (
	ItemMissing  = "missing"
	ItemPending  = "pending"
	ItemVerified = "verified"
	ItemRejected = "rejected"
)

type Country struct {
	Name string `json:"name"`
}

type VisaType struct {
	Name string `json:"name"`
}

type Application struct {
	ID                 string   `json:"id"`
	Status             string   `json:"status"`
	Country            Country  `json:"country"`
	VisaType           VisaType `json:"visaType"`
	ProgressPercentage int      `json:"progressPercentage"`
}

// UnmarshalJSON accepts any JSON number for progressPercentage and rounds it to
// a whole percent. A missing or null value decodes as 0.
func (a *Application) UnmarshalJSON(data []byte) error {
	type plain Application
	aux := struct {
		*plain
		ProgressPercentage *float64 `json:"progressPercentage"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	a.ProgressPercentage = 0
	if aux.ProgressPercentage != nil {
		a.ProgressPercentage = int(math.Round(*aux.ProgressPercentage))
	}
	return nil
}

type ChecklistItem struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category"`
	Status   string `json:"status,omitempty"`
}

// awaitingUpload reports whether the item still needs a document from the traveler.
func (i ChecklistItem) awaitingUpload() bool {
	return i.Status == "" || i.Status == ItemPending || i.Status == ItemMissing
}

type DocumentChecklist struct {
	Status string          `json:"status"`
	Items  []ChecklistItem `json:"items,omitempty"`
}

// Urgency drives the color treatment chosen by the rendering layer.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
	UrgencyInfo   Urgency = "info"
)

// Rank orders urgencies from info (0) to high (3). Unknown values rank as info.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyHigh:
		return 3
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 1
	default:
		return 0
	}
}

// ParseUrgency accepts the four urgency names, case-insensitively.
func ParseUrgency(s string) (Urgency, bool) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyHigh, UrgencyMedium, UrgencyLow, UrgencyInfo:
		return u, true
	}
	return "", false
}

// Icon is a symbolic glyph tag; each client maps it to its own icon set.
type Icon string

const (
	IconRocket      Icon = "rocket"
	IconHourglass   Icon = "hourglass"
	IconWrench      Icon = "wrench"
	IconAlert       Icon = "alert"
	IconCheckCircle Icon = "check-circle"
	IconTrendingUp  Icon = "trending-up"
	IconUpload      Icon = "upload"
	IconSend        Icon = "send"
	IconAward       Icon = "award"
	IconClipboard   Icon = "clipboard"
	IconEdit        Icon = "edit"
)

type Action struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

// State is the single guidance card shown to the traveler.
type State struct {
	Category        string  `json:"category"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Urgency         Urgency `json:"urgency"`
	Icon            Icon    `json:"icon"`
	PrimaryAction   *Action `json:"primaryAction,omitempty"`
	SecondaryAction *Action `json:"secondaryAction,omitempty"`
	HelpText        string  `json:"helpText,omitempty"`
}

// Input is the snapshot the resolver projects. A nil Applications slice means the
// list was not supplied at all, which is different from an empty list.
type Input struct {
	Applications       []Application      `json:"applications"`
	Application        *Application       `json:"application,omitempty"`
	Checklist          *DocumentChecklist `json:"checklist,omitempty"`
	IsPollingChecklist bool               `json:"isPollingChecklist,omitempty"`
}
