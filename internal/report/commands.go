package report

import (
	"errors"
	"fmt"
)

// ErrNotGenerating guards generation-completion writes: a result may only
// land on a section that is still generating. The job runner drops results
// that lost this race.
var ErrNotGenerating = errors.New("section is not generating")

// Confirm flips the user_confirmed_start gate. Idempotent.
func (r *Report) Confirm() {
	r.Confirmed = true
}

// clearFailed returns a failed report to derived status. Any accepted
// section-mutating command counts as the user taking remediation.
func (r *Report) clearFailed() {
	if r.Phase == PhaseFailed {
		r.Phase = PhaseNone
		r.FinalizeError = ""
	}
}

// BeginGeneration validates and applies the planned/error -> generating
// transition. The caller issues exactly one generation request afterwards.
func (r *Report) BeginGeneration(sectionID string) (*Section, error) {
	if err := CanGenerate(r.State(), sectionID); err != nil {
		return nil, err
	}
	r.clearFailed()
	sec := r.Section(sectionID)
	sec.Status = SectionGenerating
	sec.Error = ""
	return sec, nil
}

// CompleteGeneration lands a finished draft: generating -> review. The
// consumed steering feedback is cleared and the attempt is appended to the
// history.
func (r *Report) CompleteGeneration(sectionID, content string, entry HistoryEntry) (*Section, error) {
	sec := r.Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if sec.Status != SectionGenerating {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotGenerating, sectionID, sec.Status)
	}
	sec.Status = SectionReview
	sec.Content = content
	sec.History = append(sec.History, entry)
	sec.Feedback = ""
	sec.Error = ""
	return sec, nil
}

// FailGeneration lands a failed draft: generating -> error. Content is left
// untouched.
func (r *Report) FailGeneration(sectionID, message string) (*Section, error) {
	sec := r.Section(sectionID)
	if sec == nil {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if sec.Status != SectionGenerating {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotGenerating, sectionID, sec.Status)
	}
	sec.Status = SectionError
	sec.Error = message
	return sec, nil
}

// SubmitReview applies a review verdict. Accept moves the section to
// accepted; reject consumes one revision and moves it back to generating
// with the feedback stored as steering input for the next attempt.
func (r *Report) SubmitReview(sectionID string, accepted bool, feedback string) (*Section, error) {
	if err := CanReview(r.State(), sectionID, accepted, feedback); err != nil {
		return nil, err
	}
	r.clearFailed()
	sec := r.Section(sectionID)
	if accepted {
		sec.Status = SectionAccepted
		return sec, nil
	}
	sec.Revision++
	sec.Status = SectionGenerating
	sec.Feedback = feedback
	sec.Error = ""
	return sec, nil
}

// ResetSection destroys all progress on a section: content, history,
// feedback, and the revision count, returning it to planned.
func (r *Report) ResetSection(sectionID string, force bool) (*Section, error) {
	if err := CanReset(r.State(), sectionID, force); err != nil {
		return nil, err
	}
	r.clearFailed()
	sec := r.Section(sectionID)
	sec.Status = SectionPlanned
	sec.Content = ""
	sec.History = []HistoryEntry{}
	sec.Revision = 0
	sec.Feedback = ""
	sec.Error = ""
	return sec, nil
}

// BeginFinalize enters the validating phase. The assembly job drives the
// report through finalizing to completed, or to failed.
func (r *Report) BeginFinalize() error {
	if err := CanFinalize(r.State()); err != nil {
		return err
	}
	r.Phase = PhaseValidating
	r.FinalizeError = ""
	return nil
}

// MarkFinalizing advances validating -> finalizing once the document checks
// passed.
func (r *Report) MarkFinalizing() error {
	if r.Phase != PhaseValidating {
		return fmt.Errorf("finalize phase is %q, expected %q", r.Phase, PhaseValidating)
	}
	r.Phase = PhaseFinalizing
	return nil
}

// RestartFinalize rewinds an interrupted finalize to the validating phase
// so the assembly job can run again from the start.
func (r *Report) RestartFinalize() error {
	if r.Phase != PhaseValidating && r.Phase != PhaseFinalizing {
		return fmt.Errorf("finalize phase is %q, nothing to restart", r.Phase)
	}
	r.Phase = PhaseValidating
	r.FinalizeError = ""
	return nil
}

// CompleteFinalize records the assembled document and freezes the report.
// Completed reports never admit another mutation.
func (r *Report) CompleteFinalize(documentRef string) error {
	if r.Phase != PhaseFinalizing {
		return fmt.Errorf("finalize phase is %q, expected %q", r.Phase, PhaseFinalizing)
	}
	r.Phase = PhaseCompleted
	r.DocumentRef = documentRef
	return nil
}

// FailFinalize marks the finalize attempt failed with a user-visible
// message. Section states are left untouched.
func (r *Report) FailFinalize(message string) {
	r.Phase = PhaseFailed
	r.FinalizeError = message
}

// RecordExport remembers the rendered artifact for a format so re-exports
// can reuse it. Valid only on completed reports.
func (r *Report) RecordExport(format, artifactRef string) error {
	if r.Phase != PhaseCompleted {
		return fmt.Errorf("%w: report is %s", ErrNotCompleted, r.Status())
	}
	if r.Exports == nil {
		r.Exports = make(map[string]string)
	}
	r.Exports[format] = artifactRef
	return nil
}
