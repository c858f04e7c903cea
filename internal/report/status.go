// Package report defines the section-based report workflow: the Section and
// Report entities, their status machines, the dependency resolver, and the
// command rules shared by the service (authoritative) and its clients
// (advisory).
package report

// SectionStatus is the lifecycle state of a single section.
type SectionStatus string

const (
	SectionPlanned    SectionStatus = "planned"
	SectionGenerating SectionStatus = "generating"
	SectionReview     SectionStatus = "review"
	SectionAccepted   SectionStatus = "accepted"
	SectionError      SectionStatus = "error"
)

// sectionTransitions is the exhaustive table of legal section transitions.
// Reset is the one escape hatch outside this table: it returns any
// non-generating section to planned and is validated by CanReset instead.
var sectionTransitions = map[SectionStatus]map[SectionStatus]bool{
	SectionPlanned:    {SectionGenerating: true},
	SectionGenerating: {SectionReview: true, SectionError: true},
	SectionReview:     {SectionGenerating: true, SectionAccepted: true},
	SectionError:      {SectionGenerating: true},
	SectionAccepted:   {},
}

// CanTransition reports whether moving from s to next is a legal transition.
func (s SectionStatus) CanTransition(next SectionStatus) bool {
	return sectionTransitions[s][next]
}

// Valid reports whether s is a known section status.
func (s SectionStatus) Valid() bool {
	switch s {
	case SectionPlanned, SectionGenerating, SectionReview, SectionAccepted, SectionError:
		return true
	}
	return false
}

// ReportStatus is the report-level lifecycle state. It is derived from the
// section statuses and the finalize phase, never stored independently.
type ReportStatus string

const (
	StatusUninitialized       ReportStatus = "uninitialized"
	StatusInProgress          ReportStatus = "in_progress"
	StatusValidating          ReportStatus = "validating"
	StatusAwaitingFinalReview ReportStatus = "awaiting_final_review"
	StatusFinalizing          ReportStatus = "finalizing"
	StatusCompleted           ReportStatus = "completed"
	StatusFailed              ReportStatus = "failed"
)

// Valid reports whether s is a known report status.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusUninitialized, StatusInProgress, StatusValidating,
		StatusAwaitingFinalReview, StatusFinalizing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Phase marks the stage of the server-driven finalize protocol. An empty
// phase means the report status derives purely from section statuses.
type Phase string

const (
	PhaseNone       Phase = ""
	PhaseValidating Phase = "validating"
	PhaseFinalizing Phase = "finalizing"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
)
