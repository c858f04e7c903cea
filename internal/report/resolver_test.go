package report

import "testing"

func TestLocked(t *testing.T) {
	sections := func(statuses map[string]SectionStatus) []Section {
		out := make([]Section, 0, len(statuses))
		for id, status := range statuses {
			out = append(out, Section{ID: id, Status: status})
		}
		return out
	}

	tests := []struct {
		name string
		sec  Section
		all  []Section
		want bool
	}{
		{
			name: "no dependencies",
			sec:  Section{ID: "a", Status: SectionPlanned},
			all:  sections(map[string]SectionStatus{"a": SectionPlanned}),
			want: false,
		},
		{
			name: "dependency accepted",
			sec:  Section{ID: "b", DependsOn: []string{"a"}},
			all:  sections(map[string]SectionStatus{"a": SectionAccepted, "b": SectionPlanned}),
			want: false,
		},
		{
			name: "dependency planned",
			sec:  Section{ID: "b", DependsOn: []string{"a"}},
			all:  sections(map[string]SectionStatus{"a": SectionPlanned, "b": SectionPlanned}),
			want: true,
		},
		{
			name: "dependency in review is not accepted",
			sec:  Section{ID: "b", DependsOn: []string{"a"}},
			all:  sections(map[string]SectionStatus{"a": SectionReview, "b": SectionPlanned}),
			want: true,
		},
		{
			name: "one of two dependencies unmet",
			sec:  Section{ID: "c", DependsOn: []string{"a", "b"}},
			all:  sections(map[string]SectionStatus{"a": SectionAccepted, "b": SectionGenerating, "c": SectionPlanned}),
			want: true,
		},
		{
			name: "all dependencies accepted",
			sec:  Section{ID: "c", DependsOn: []string{"a", "b"}},
			all:  sections(map[string]SectionStatus{"a": SectionAccepted, "b": SectionAccepted, "c": SectionPlanned}),
			want: false,
		},
		{
			name: "unknown dependency id counts as unaccepted",
			sec:  Section{ID: "b", DependsOn: []string{"ghost"}},
			all:  sections(map[string]SectionStatus{"b": SectionPlanned}),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Locked(tt.sec, tt.all); got != tt.want {
				t.Errorf("Locked(%s) = %v, want %v", tt.sec.ID, got, tt.want)
			}
		})
	}
}

func TestLockedRecomputedPerSnapshot(t *testing.T) {
	all := []Section{
		{ID: "a", Status: SectionReview},
		{ID: "b", Status: SectionPlanned, DependsOn: []string{"a"}},
	}

	if !Locked(all[1], all) {
		t.Fatal("b should be locked while a is in review")
	}

	// The same inputs with a accepted must flip the result; nothing is cached.
	all[0].Status = SectionAccepted
	if Locked(all[1], all) {
		t.Fatal("b should unlock once a is accepted")
	}
}
