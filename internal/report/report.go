package report

import "time"

// Report is the aggregate of all sections for one research session. The
// backend owns it; clients hold periodically refreshed copies.
type Report struct {
	SessionID string `json:"session_id"`

	// Confirmed is the user_confirmed_start gate: the report is not
	// actionable until the user explicitly started generation.
	Confirmed bool `json:"user_confirmed_start"`

	// Plan names the plan the sections were instantiated from.
	Plan string `json:"plan"`

	// Title is the document title used when assembling the final report.
	Title string `json:"title"`

	// Sections in fixed authoring order.
	Sections []Section `json:"sections"`

	// Phase tracks the finalize protocol; empty while the status derives
	// purely from section statuses.
	Phase Phase `json:"phase"`

	// FinalizeError carries the failure message while Phase is failed.
	FinalizeError string `json:"finalize_error,omitempty"`

	// DocumentRef is the artifact key of the assembled document, set once
	// finalize completes.
	DocumentRef string `json:"document_ref,omitempty"`

	// Exports maps output formats to rendered artifact keys, filled lazily
	// on first export of each format and reused after.
	Exports map[string]string `json:"exports,omitempty"`

	// Version guards concurrent writers; the store refuses stale writes.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportState is the wire shape served to clients.
type ReportState struct {
	SessionID          string       `json:"session_id"`
	UserConfirmedStart bool         `json:"user_confirmed_start"`
	ReportStatus       ReportStatus `json:"report_status"`
	Sections           []Section    `json:"sections"`

	// FinalizeError explains a failed status so the client can surface the
	// remediation path.
	FinalizeError string `json:"finalize_error,omitempty"`
}

// New instantiates a report from a plan. All sections start planned with a
// zero revision count.
func New(sessionID string, plan Plan) *Report {
	now := time.Now().UTC()
	sections := make([]Section, 0, len(plan.Sections))
	for _, ps := range plan.Sections {
		sections = append(sections, Section{
			ID:           ps.ID,
			Title:        ps.Title,
			Description:  ps.Description,
			Status:       SectionPlanned,
			MaxRevisions: ps.maxRevisions(),
			DependsOn:    append([]string(nil), ps.DependsOn...),
			History:      []HistoryEntry{},
		})
	}
	return &Report{
		SessionID: sessionID,
		Plan:      plan.Name,
		Title:     plan.title(),
		Sections:  sections,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Section returns a pointer to the section with the given id, or nil.
func (r *Report) Section(id string) *Section {
	for i := range r.Sections {
		if r.Sections[i].ID == id {
			return &r.Sections[i]
		}
	}
	return nil
}

// AllAccepted reports whether every section is accepted.
func (r *Report) AllAccepted() bool {
	for i := range r.Sections {
		if r.Sections[i].Status != SectionAccepted {
			return false
		}
	}
	return true
}

// AnyGenerating reports whether any section is currently generating.
func (r *Report) AnyGenerating() bool {
	for i := range r.Sections {
		if r.Sections[i].Status == SectionGenerating {
			return true
		}
	}
	return false
}

// Status derives the report status. The finalize phase, when set, wins;
// otherwise the status is a pure function of the confirmation gate and the
// section statuses.
func (r *Report) Status() ReportStatus {
	switch r.Phase {
	case PhaseValidating:
		return StatusValidating
	case PhaseFinalizing:
		return StatusFinalizing
	case PhaseCompleted:
		return StatusCompleted
	case PhaseFailed:
		return StatusFailed
	}
	if !r.Confirmed {
		return StatusUninitialized
	}
	if r.AllAccepted() {
		return StatusAwaitingFinalReview
	}
	return StatusInProgress
}

// State renders the wire shape with deep-copied sections.
func (r *Report) State() ReportState {
	sections := make([]Section, 0, len(r.Sections))
	for _, s := range r.Sections {
		sections = append(sections, s.Clone())
	}
	return ReportState{
		SessionID:          r.SessionID,
		UserConfirmedStart: r.Confirmed,
		ReportStatus:       r.Status(),
		Sections:           sections,
		FinalizeError:      r.FinalizeError,
	}
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	out := *r
	out.Sections = make([]Section, 0, len(r.Sections))
	for _, s := range r.Sections {
		out.Sections = append(out.Sections, s.Clone())
	}
	if r.Exports != nil {
		out.Exports = make(map[string]string, len(r.Exports))
		for k, v := range r.Exports {
			out.Exports[k] = v
		}
	}
	return &out
}

// Uninitialized is the placeholder state for a report the backend does not
// know yet. A NotFound observation reconciles into this, distinguishing
// "not yet requested" from a transport failure.
func Uninitialized(sessionID string) ReportState {
	return ReportState{
		SessionID:    sessionID,
		ReportStatus: StatusUninitialized,
		Sections:     []Section{},
	}
}

// Section returns a pointer to the section with the given id, or nil. The
// pointer aliases the state's backing array.
func (s ReportState) Section(id string) *Section {
	for i := range s.Sections {
		if s.Sections[i].ID == id {
			return &s.Sections[i]
		}
	}
	return nil
}

// AnyGenerating reports whether any section is currently generating.
func (s ReportState) AnyGenerating() bool {
	for i := range s.Sections {
		if s.Sections[i].Status == SectionGenerating {
			return true
		}
	}
	return false
}
