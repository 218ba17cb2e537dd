// internal/guidance/rules.go
package guidance

// Rule names, reported by ResolveRule and used as metric labels.
const (
	RuleNoApplications      = "no_applications"
	RulePreparingChecklist  = "preparing_checklist"
	RuleChecklistFailed     = "checklist_failed"
	RuleDocumentsRejected   = "documents_rejected"
	RuleReadyToSubmit       = "ready_to_submit"
	RuleUploadsInProgress   = "uploads_in_progress"
	RuleStartUploading      = "start_uploading"
	RuleSubmitted           = "submitted"
	RuleApproved            = "approved"
	RuleApplicationProgress = "application_progress"
	RuleResumeDraft         = "resume_draft"
	RuleKeepMomentum        = "keep_momentum"
)

type rule struct {
	name  string
	match func(e *evaluation) bool
	build func(r *Resolver, e *evaluation) *State
}

// rules is evaluated top to bottom; the first match wins. Every rule after
// RuleNoApplications that concerns a single application requires one, and the
// dashboard rules at the end require that none was given.
var rules = []rule{
	{
		name: RuleNoApplications,
		match: func(e *evaluation) bool {
			return e.in.Applications != nil && len(e.in.Applications) == 0
		},
		build: (*Resolver).noApplications,
	},
	{
		name: RulePreparingChecklist,
		match: func(e *evaluation) bool {
			return e.in.Application != nil &&
				(e.in.IsPollingChecklist || e.checklistStatus() == ChecklistProcessing)
		},
		build: (*Resolver).preparingChecklist,
	},
	{
		name: RuleChecklistFailed,
		match: func(e *evaluation) bool {
			return e.in.Application != nil && e.checklistStatus() == ChecklistFailed
		},
		build: (*Resolver).checklistFailed,
	},
	{
		name: RuleDocumentsRejected,
		match: func(e *evaluation) bool {
			return e.counted && e.counts.Rejected > 0
		},
		build: (*Resolver).documentsRejected,
	},
	{
		name: RuleReadyToSubmit,
		match: func(e *evaluation) bool {
			return e.counted && e.counts.Required > 0 && e.counts.RequiredVerified == e.counts.Required
		},
		build: (*Resolver).readyToSubmit,
	},
	{
		name: RuleUploadsInProgress,
		match: func(e *evaluation) bool {
			return e.counted && e.counts.Verified > 0 && e.counts.Pending > 0
		},
		build: (*Resolver).uploadsInProgress,
	},
	{
		name: RuleStartUploading,
		match: func(e *evaluation) bool {
			return e.counted && e.counts.Pending > 0 && e.counts.Verified == 0
		},
		build: (*Resolver).startUploading,
	},
	{
		name: RuleSubmitted,
		match: func(e *evaluation) bool {
			return e.in.Application != nil && e.in.Application.Status == StatusSubmitted
		},
		build: (*Resolver).submitted,
	},
	{
		name: RuleApproved,
		match: func(e *evaluation) bool {
			return e.in.Application != nil && e.in.Application.Status == StatusApproved
		},
		build: (*Resolver).approved,
	},
	{
		name: RuleApplicationProgress,
		match: func(e *evaluation) bool {
			return e.in.Application != nil
		},
		build: (*Resolver).applicationProgress,
	},
	{
		name: RuleResumeDraft,
		match: func(e *evaluation) bool {
			return e.in.Application == nil && e.firstWithStatus(StatusDraft) != nil
		},
		build: (*Resolver).resumeDraft,
	},
	{
		name: RuleKeepMomentum,
		match: func(e *evaluation) bool {
			return e.in.Application == nil && e.firstWithStatus(StatusInProgress) != nil
		},
		build: (*Resolver).keepMomentum,
	},
}

func applicationVars(app *Application) map[string]interface{} {
	return map[string]interface{}{
		"country":  app.Country.Name,
		"visaType": app.VisaType.Name,
		"progress": app.ProgressPercentage,
	}
}

func (r *Resolver) action(key, defaultLabel, href string) *Action {
	return &Action{Label: r.translate(key, defaultLabel, nil), Href: href}
}

func (r *Resolver) chatAction() *Action {
	return r.action("guidance.actions.askAssistant", "Ask AI Assistant", r.routes.Chat)
}

func (r *Resolver) noApplications(_ *evaluation) *State {
	return &State{
		Category:    r.translate("guidance.getStarted.category", "Getting Started", nil),
		Title:       r.translate("guidance.getStarted.title", "Start your first visa application", nil),
		Description: r.translate("guidance.getStarted.description", "Answer a few quick questions and we'll build a personalized document checklist for your trip.", nil),
		Urgency:     UrgencyHigh,
		Icon:        IconRocket,
		PrimaryAction: r.action("guidance.actions.startQuestionnaire", "Start Questionnaire",
			r.routes.Questionnaire),
		SecondaryAction: r.chatAction(),
	}
}

func (r *Resolver) preparingChecklist(e *evaluation) *State {
	vars := applicationVars(e.in.Application)
	return &State{
		Category:    r.translate("guidance.preparing.category", "Preparing Your Checklist", nil),
		Title:       r.translate("guidance.preparing.title", "We're building your document checklist", vars),
		Description: r.translate("guidance.preparing.description", "We're putting together the documents you need for your {{visaType}} to {{country}}. This usually takes less than a minute.", vars),
		Urgency:     UrgencyInfo,
		Icon:        IconHourglass,
	}
}

func (r *Resolver) checklistFailed(e *evaluation) *State {
	vars := applicationVars(e.in.Application)
	return &State{
		Category:      r.translate("guidance.checklistFailed.category", "Quick Fix Needed", nil),
		Title:         r.translate("guidance.checklistFailed.title", "We couldn't finish your checklist", vars),
		Description:   r.translate("guidance.checklistFailed.description", "Something went wrong while preparing your {{visaType}} checklist. Our assistant can walk you through the documents for {{country}} right now.", vars),
		Urgency:       UrgencyMedium,
		Icon:          IconWrench,
		PrimaryAction: r.chatAction(),
	}
}

func (r *Resolver) documentsRejected(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	vars["count"] = e.counts.Rejected
	return &State{
		Category:    r.translate("guidance.rejected.category", "Small Fix Needed", nil),
		Title:       r.translate("guidance.rejected.title", "{{count}} document(s) need your attention", vars),
		Description: r.translate("guidance.rejected.description", "Some documents weren't accepted. Check the feedback and upload an updated version.", vars),
		Urgency:     UrgencyHigh,
		Icon:        IconAlert,
		HelpText:    r.reassurance(),
		PrimaryAction: r.action("guidance.actions.reviewDocuments", "Review Documents",
			r.routes.checklist(app.ID)),
		SecondaryAction: r.chatAction(),
	}
}

func (r *Resolver) readyToSubmit(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.ready.category", "Ready to Proceed", nil),
		Title:       r.translate("guidance.ready.title", "All required documents are verified", vars),
		Description: r.translate("guidance.ready.description", "Your {{visaType}} application for {{country}} has everything it needs. You're ready to move forward.", vars),
		Urgency:     UrgencyLow,
		Icon:        IconCheckCircle,
		PrimaryAction: r.action("guidance.actions.viewApplication", "View Application",
			r.routes.application(app.ID)),
	}
}

func (r *Resolver) uploadsInProgress(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	vars["verified"] = e.counts.Verified
	vars["pending"] = e.counts.Pending

	description, ok := r.milestone(app.ProgressPercentage)
	if !ok {
		description = r.translate("guidance.inProgress.description", "{{pending}} document(s) left to upload. Every upload gets you closer.", vars)
	}
	return &State{
		Category:    r.translate("guidance.inProgress.category", "Making Progress", nil),
		Title:       r.translate("guidance.inProgress.title", "{{verified}} document(s) verified so far", vars),
		Description: description,
		Urgency:     UrgencyMedium,
		Icon:        IconTrendingUp,
		PrimaryAction: r.action("guidance.actions.continueUploading", "Continue Uploading",
			r.routes.checklist(app.ID)),
	}
}

func (r *Resolver) startUploading(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	vars["pending"] = e.counts.Pending
	return &State{
		Category:    r.translate("guidance.checklistReady.category", "Checklist Ready", nil),
		Title:       r.translate("guidance.checklistReady.title", "Your document checklist is ready", vars),
		Description: r.translate("guidance.checklistReady.description", "You have {{pending}} document(s) to upload for your {{visaType}} to {{country}}. Start with the required ones.", vars),
		Urgency:     UrgencyHigh,
		Icon:        IconUpload,
		PrimaryAction: r.action("guidance.actions.uploadDocuments", "Upload Documents",
			r.routes.checklist(app.ID)),
		SecondaryAction: r.chatAction(),
	}
}

func (r *Resolver) submitted(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.submitted.category", "Application Submitted", nil),
		Title:       r.translate("guidance.submitted.title", "Your application is with the authorities", vars),
		Description: r.translate("guidance.submitted.description", "Your {{visaType}} application for {{country}} has been submitted. We'll let you know as soon as there's a decision.", vars),
		Urgency:     UrgencyInfo,
		Icon:        IconSend,
		PrimaryAction: r.action("guidance.actions.viewApplication", "View Application",
			r.routes.application(app.ID)),
	}
}

func (r *Resolver) approved(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.approved.category", "Approved", nil),
		Title:       r.translate("guidance.approved.title", "Congratulations, your visa was approved!", vars),
		Description: r.translate("guidance.approved.description", "Your {{visaType}} for {{country}} is approved. Have a wonderful trip!", vars),
		Urgency:     UrgencyLow,
		Icon:        IconAward,
		PrimaryAction: r.action("guidance.actions.viewApplication", "View Application",
			r.routes.application(app.ID)),
	}
}

func (r *Resolver) applicationProgress(e *evaluation) *State {
	app := e.in.Application
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.progress.category", "Keep Going", nil),
		Title:       r.translate("guidance.progress.title", "Your application is {{progress}}% complete", vars),
		Description: r.translate("guidance.progress.description", "Keep working on your {{visaType}} application for {{country}}. You're making progress.", vars),
		Urgency:     UrgencyMedium,
		Icon:        IconClipboard,
		PrimaryAction: r.action("guidance.actions.continueApplication", "Continue Application",
			r.routes.application(app.ID)),
	}
}

func (r *Resolver) resumeDraft(e *evaluation) *State {
	app := e.firstWithStatus(StatusDraft)
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.resumeDraft.category", "Pick Up Where You Left Off", nil),
		Title:       r.translate("guidance.resumeDraft.title", "Finish your {{visaType}} application", vars),
		Description: r.translate("guidance.resumeDraft.description", "Your draft application for {{country}} is waiting. It only takes a few minutes to continue.", vars),
		Urgency:     UrgencyMedium,
		Icon:        IconEdit,
		PrimaryAction: r.action("guidance.actions.continueDraft", "Continue Draft",
			r.routes.application(app.ID)),
	}
}

func (r *Resolver) keepMomentum(e *evaluation) *State {
	app := e.firstWithStatus(StatusInProgress)
	vars := applicationVars(app)
	return &State{
		Category:    r.translate("guidance.momentum.category", "Keep Building Momentum", nil),
		Title:       r.translate("guidance.momentum.title", "Your {{country}} application is {{progress}}% done", vars),
		Description: r.translate("guidance.momentum.description", "You're making great progress on your {{visaType}}. Pick up where you left off.", vars),
		Urgency:     UrgencyMedium,
		Icon:        IconTrendingUp,
		PrimaryAction: r.action("guidance.actions.continueApplication", "Continue Application",
			r.routes.application(app.ID)),
	}
}
