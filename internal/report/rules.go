package report

import (
	"errors"
	"fmt"
	"strings"
)

// Rule errors. The service enforces them authoritatively; clients apply the
// same checks advisorily against their last snapshot. Validation errors are
// final for the issued command and mutate nothing. Conflict errors mean the
// work is already being handled elsewhere and the right response is to
// resynchronize, not to alert.
var (
	ErrSectionNotFound    = errors.New("section not found")
	ErrNotStarted         = errors.New("report not started")
	ErrReportCompleted    = errors.New("report is completed")
	ErrNotGeneratable     = errors.New("section cannot be generated from its current status")
	ErrDependenciesUnmet  = errors.New("dependencies not accepted")
	ErrGenerationInFlight = errors.New("generation already in progress")
	ErrNotReviewable      = errors.New("section is not awaiting review")
	ErrFeedbackRequired   = errors.New("rejection requires feedback")
	ErrRevisionsExhausted = errors.New("revision budget exhausted")
	ErrForceRequired      = errors.New("resetting an accepted section requires force")
	ErrNotFinalizable     = errors.New("report is not awaiting final review")
	ErrFinalizeInFlight   = errors.New("finalize already in progress")
	ErrNotCompleted       = errors.New("report is not completed")
)

// IsConflict reports whether err is a concurrency conflict rather than a
// validation failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrGenerationInFlight) || errors.Is(err, ErrFinalizeInFlight)
}

// mutable rejects section-mutating commands in report phases that do not
// admit them. The failed phase stays mutable: returning to per-section
// editing is the documented remediation path.
func mutable(state ReportState) error {
	switch state.ReportStatus {
	case StatusUninitialized:
		return ErrNotStarted
	case StatusCompleted:
		return ErrReportCompleted
	case StatusValidating, StatusFinalizing:
		return ErrFinalizeInFlight
	}
	return nil
}

// CanGenerate checks whether generation may start for the section: the
// report must be mutable, the section planned or errored, and every
// dependency accepted in this same snapshot.
func CanGenerate(state ReportState, sectionID string) error {
	if err := mutable(state); err != nil {
		return err
	}
	sec := state.Section(sectionID)
	if sec == nil {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	switch sec.Status {
	case SectionGenerating:
		return fmt.Errorf("%w: %s", ErrGenerationInFlight, sectionID)
	case SectionPlanned, SectionError:
	default:
		return fmt.Errorf("%w: %s is %s", ErrNotGeneratable, sectionID, sec.Status)
	}
	if Locked(*sec, state.Sections) {
		return fmt.Errorf("%w: %s depends on %s", ErrDependenciesUnmet, sectionID, strings.Join(sec.DependsOn, ", "))
	}
	return nil
}

// CanReview checks whether a review verdict may be submitted: the section
// must be awaiting review, a rejection must carry feedback, and a rejection
// must have revision budget left.
func CanReview(state ReportState, sectionID string, accepted bool, feedback string) error {
	if err := mutable(state); err != nil {
		return err
	}
	sec := state.Section(sectionID)
	if sec == nil {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if sec.Status != SectionReview {
		return fmt.Errorf("%w: %s is %s", ErrNotReviewable, sectionID, sec.Status)
	}
	if accepted {
		return nil
	}
	if strings.TrimSpace(feedback) == "" {
		return ErrFeedbackRequired
	}
	if sec.Revision >= sec.MaxRevisions {
		return fmt.Errorf("%w: %s used %d of %d", ErrRevisionsExhausted, sectionID, sec.Revision, sec.MaxRevisions)
	}
	return nil
}

// CanReset checks whether the section may be reset. Resetting a generating
// section is a conflict (there is no mid-generation cancel); resetting an
// accepted section requires force.
func CanReset(state ReportState, sectionID string, force bool) error {
	if err := mutable(state); err != nil {
		return err
	}
	sec := state.Section(sectionID)
	if sec == nil {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if sec.Status == SectionGenerating {
		return fmt.Errorf("%w: %s", ErrGenerationInFlight, sectionID)
	}
	if sec.Status == SectionAccepted && !force {
		return fmt.Errorf("%w: %s", ErrForceRequired, sectionID)
	}
	return nil
}

// CanFinalize checks whether finalize may be requested: every section
// accepted and no finalize already outstanding. A failed report may retry
// once its sections are all accepted again.
func CanFinalize(state ReportState) error {
	switch state.ReportStatus {
	case StatusUninitialized:
		return ErrNotStarted
	case StatusValidating, StatusFinalizing:
		return ErrFinalizeInFlight
	case StatusCompleted:
		return ErrReportCompleted
	case StatusAwaitingFinalReview:
		return nil
	case StatusFailed:
		for i := range state.Sections {
			if state.Sections[i].Status != SectionAccepted {
				return fmt.Errorf("%w: %s is %s", ErrNotFinalizable, state.Sections[i].ID, state.Sections[i].Status)
			}
		}
		return nil
	}
	return ErrNotFinalizable
}

// CanExport checks whether an export may be served: only completed reports
// have a finished document.
func CanExport(state ReportState) error {
	switch state.ReportStatus {
	case StatusUninitialized:
		return ErrNotStarted
	case StatusCompleted:
		return nil
	}
	return fmt.Errorf("%w: report is %s", ErrNotCompleted, state.ReportStatus)
}
