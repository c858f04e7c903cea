package report

// Locked reports whether sec is blocked by an unaccepted dependency: true
// iff any id in depends_on maps to a section whose status is not accepted.
// It must be recomputed against every fresh snapshot, never cached across
// updates, because dependency statuses change asynchronously. An id that
// resolves to no section counts as unaccepted; plan validation makes that
// unreachable for well-formed reports.
func Locked(sec Section, sections []Section) bool {
	if len(sec.DependsOn) == 0 {
		return false
	}
	statuses := make(map[string]SectionStatus, len(sections))
	for i := range sections {
		statuses[sections[i].ID] = sections[i].Status
	}
	for _, dep := range sec.DependsOn {
		if statuses[dep] != SectionAccepted {
			return true
		}
	}
	return false
}
