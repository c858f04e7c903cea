package workflow

import (
	"context"

	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/report"
)

// Init creates or confirms the report. A dry run returns the preview without
// folding it into the local view; it describes nothing the server persisted.
func (s *Session) Init(ctx context.Context, confirm bool) (report.ReportState, error) {
	if err := s.begin(reportKey, nil); err != nil {
		return report.ReportState{}, err
	}
	defer s.end(reportKey)

	state, err := s.client.Init(ctx, s.sessionID, confirm)
	if err != nil {
		s.settle(ctx, err)
		return report.ReportState{}, err
	}
	if confirm {
		s.observe(state)
	}
	return state, nil
}

// GenerateSection asks the server to start drafting a section.
func (s *Session) GenerateSection(ctx context.Context, sectionID string) (report.Section, error) {
	if err := s.begin(sectionID, func(state report.ReportState) error {
		return report.CanGenerate(state, sectionID)
	}); err != nil {
		return report.Section{}, err
	}
	defer s.end(sectionID)

	sec, err := s.client.GenerateSection(ctx, s.sessionID, sectionID)
	s.settle(ctx, err)
	return sec, err
}

// SubmitReview records an accept or a steered rejection.
func (s *Session) SubmitReview(ctx context.Context, sectionID string, accepted bool, feedback string) (report.Section, error) {
	if err := s.begin(sectionID, func(state report.ReportState) error {
		return report.CanReview(state, sectionID, accepted, feedback)
	}); err != nil {
		return report.Section{}, err
	}
	defer s.end(sectionID)

	sec, err := s.client.SubmitReview(ctx, s.sessionID, sectionID, accepted, feedback)
	s.settle(ctx, err)
	return sec, err
}

// ResetSection returns a section to planned.
func (s *Session) ResetSection(ctx context.Context, sectionID string, force bool) (report.Section, error) {
	if err := s.begin(sectionID, func(state report.ReportState) error {
		return report.CanReset(state, sectionID, force)
	}); err != nil {
		return report.Section{}, err
	}
	defer s.end(sectionID)

	sec, err := s.client.ResetSection(ctx, s.sessionID, sectionID, force)
	s.settle(ctx, err)
	return sec, err
}

// Finalize asks the server to assemble the document. The returned state
// already carries the transient finalize status; Run watches it land.
func (s *Session) Finalize(ctx context.Context) (report.ReportState, error) {
	if err := s.begin(reportKey, report.CanFinalize); err != nil {
		return report.ReportState{}, err
	}
	defer s.end(reportKey)

	state, err := s.client.Finalize(ctx, s.sessionID)
	if err != nil {
		s.settle(ctx, err)
		return report.ReportState{}, err
	}
	s.observe(state)
	return state, nil
}

// Export downloads the finished document in the given format. Reads do not
// claim an in-flight slot; the server rejects premature exports anyway.
func (s *Session) Export(ctx context.Context, format string) (client.Document, error) {
	if s.Synced() {
		if err := report.CanExport(s.State()); err != nil {
			return client.Document{}, err
		}
	}
	return s.client.Export(ctx, s.sessionID, format)
}
