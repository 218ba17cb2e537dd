// internal/guidance/resolver.go
package guidance

// Resolver turns an application snapshot into at most one guidance card.
// It holds no state besides its collaborators and is safe for concurrent use.
type Resolver struct {
	translate   TranslateFunc
	reassurance ReassuranceFunc
	milestone   MilestoneFunc
	routes      Routes
}

type Option func(*Resolver)

func WithTranslator(t TranslateFunc) Option {
	return func(r *Resolver) {
		if t != nil {
			r.translate = t
		}
	}
}

func WithReassurance(f ReassuranceFunc) Option {
	return func(r *Resolver) {
		if f != nil {
			r.reassurance = f
		}
	}
}

func WithMilestones(f MilestoneFunc) Option {
	return func(r *Resolver) {
		if f != nil {
			r.milestone = f
		}
	}
}

func WithRoutes(routes Routes) Option {
	return func(r *Resolver) {
		r.routes = routes.withDefaults()
	}
}

// NewResolver builds a Resolver. Without options it uses untranslated default
// strings, the default routes, and translator-backed encouragement providers.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		translate: DefaultTranslate,
		routes:    DefaultRoutes(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reassurance == nil {
		r.reassurance = Reassurance(r.translate)
	}
	if r.milestone == nil {
		r.milestone = Milestones(r.translate)
	}
	return r
}

// Resolve returns the highest-priority guidance for in, or nil when there is
// nothing worth telling the traveler.
func (r *Resolver) Resolve(in Input) *State {
	state, _ := r.ResolveRule(in)
	return state
}

// ResolveRule is Resolve that also reports the name of the matching rule.
func (r *Resolver) ResolveRule(in Input) (*State, string) {
	e := newEvaluation(in)
	for _, rl := range rules {
		if rl.match(e) {
			return rl.build(r, e), rl.name
		}
	}
	return nil, ""
}

// Resolve evaluates in with a default Resolver.
func Resolve(in Input) *State {
	return NewResolver().Resolve(in)
}

// Counts summarizes a ready checklist.
type Counts struct {
	Required         int `json:"required"`
	RequiredVerified int `json:"requiredVerified"`
	Verified         int `json:"verified"`
	Pending          int `json:"pending"`
	Rejected         int `json:"rejected"`
}

// CountItems tallies checklist items in a single pass.
func CountItems(items []ChecklistItem) Counts {
	var c Counts
	for _, item := range items {
		required := item.Category == CategoryRequired
		if required {
			c.Required++
		}
		switch {
		case item.Status == ItemRejected:
			c.Rejected++
		case item.Status == ItemVerified:
			c.Verified++
			if required {
				c.RequiredVerified++
			}
		case item.awaitingUpload():
			c.Pending++
		}
	}
	return c
}

type evaluation struct {
	in Input

	// counted is true only for a ready checklist that carries items.
	counted bool
	counts  Counts
}

func newEvaluation(in Input) *evaluation {
	e := &evaluation{in: in}
	if in.Application != nil && in.Checklist != nil &&
		in.Checklist.Status == ChecklistReady && in.Checklist.Items != nil {
		e.counted = true
		e.counts = CountItems(in.Checklist.Items)
	}
	return e
}

func (e *evaluation) checklistStatus() string {
	if e.in.Checklist == nil {
		return ""
	}
	return e.in.Checklist.Status
}

// firstWithStatus keeps caller order: the first match in the supplied list wins.
func (e *evaluation) firstWithStatus(status string) *Application {
	for i := range e.in.Applications {
		if e.in.Applications[i].Status == status {
			return &e.in.Applications[i]
		}
	}
	return nil
}
