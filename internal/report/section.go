package report

import "time"

// HistoryEntry records one completed generation attempt. The full text of
// the attempt lives in the artifact store under ContentSnapshotRef; the
// entry itself is informational.
type HistoryEntry struct {
	ContentSnapshotRef string    `json:"content_snapshot_ref"`
	ModelName          string    `json:"model_name"`
	Timestamp          time.Time `json:"timestamp"`
}

// Section is one addressable unit of the report.
type Section struct {
	ID          string        `json:"section_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      SectionStatus `json:"status"`

	// Content is the produced text, present only once a generation attempt
	// has completed.
	Content string `json:"content,omitempty"`

	// Revision counts regeneration attempts consumed. Only rejections
	// increment it; the first draft is free.
	Revision     int `json:"revision"`
	MaxRevisions int `json:"max_revisions"`

	// DependsOn lists sections that must be accepted before this one may be
	// generated.
	DependsOn []string `json:"depends_on"`

	// History holds every completed generation attempt, oldest first. The
	// last entry corresponds to the current content.
	History []HistoryEntry `json:"history"`

	// Feedback is the steering input from the last rejection, consumed by
	// the next generation attempt.
	Feedback string `json:"feedback,omitempty"`

	// Error carries the backend-declared failure message while the section
	// is in the error status.
	Error string `json:"error,omitempty"`
}

// Clone returns a deep copy of the section.
func (s Section) Clone() Section {
	out := s
	if s.DependsOn != nil {
		out.DependsOn = make([]string, len(s.DependsOn))
		copy(out.DependsOn, s.DependsOn)
	}
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		copy(out.History, s.History)
	}
	return out
}
