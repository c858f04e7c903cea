package report

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxRevisions applies to plan sections that do not set a ceiling.
const DefaultMaxRevisions = 3

// PlanSection describes one section template.
type PlanSection struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`

	// MaxRevisions is the rejection budget; nil means DefaultMaxRevisions.
	MaxRevisions *int     `yaml:"max_revisions" json:"max_revisions,omitempty"`
	DependsOn    []string `yaml:"depends_on" json:"depends_on"`
}

func (ps PlanSection) maxRevisions() int {
	if ps.MaxRevisions == nil {
		return DefaultMaxRevisions
	}
	return *ps.MaxRevisions
}

// Plan is the blueprint reports are instantiated from: the ordered section
// set with titles, dependency edges, and revision budgets.
type Plan struct {
	Name string `yaml:"name" json:"name"`

	// Title is the human document title; empty falls back to Name.
	Title    string        `yaml:"title" json:"title,omitempty"`
	Sections []PlanSection `yaml:"sections" json:"sections"`
}

func (p Plan) title() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// ErrInvalidPlan wraps every plan validation failure.
var ErrInvalidPlan = errors.New("invalid plan")

// ParsePlan decodes and validates a YAML plan document.
func ParsePlan(data []byte) (Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Plan{}, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan file: %w", err)
	}
	return ParsePlan(data)
}

// Validate checks the plan for structural soundness: a name, at least one
// section, unique non-empty ids, non-negative budgets, and a dependency
// graph with known targets, no self-references, and no cycles.
func (p Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPlan)
	}
	if len(p.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalidPlan)
	}

	ids := make(map[string]bool, len(p.Sections))
	for _, ps := range p.Sections {
		if ps.ID == "" {
			return fmt.Errorf("%w: section with empty id", ErrInvalidPlan)
		}
		if ids[ps.ID] {
			return fmt.Errorf("%w: duplicate section id %q", ErrInvalidPlan, ps.ID)
		}
		ids[ps.ID] = true
		if ps.MaxRevisions != nil && *ps.MaxRevisions < 0 {
			return fmt.Errorf("%w: section %q has negative max_revisions", ErrInvalidPlan, ps.ID)
		}
	}

	deps := make(map[string][]string, len(p.Sections))
	for _, ps := range p.Sections {
		for _, dep := range ps.DependsOn {
			if dep == ps.ID {
				return fmt.Errorf("%w: section %q depends on itself", ErrInvalidPlan, ps.ID)
			}
			if !ids[dep] {
				return fmt.Errorf("%w: section %q depends on unknown section %q", ErrInvalidPlan, ps.ID, dep)
			}
		}
		deps[ps.ID] = ps.DependsOn
	}

	if cyclic := findCycle(deps); cyclic != "" {
		return fmt.Errorf("%w: dependency cycle through %q", ErrInvalidPlan, cyclic)
	}
	return nil
}

// findCycle runs a three-color depth-first search over the dependency graph
// and returns a node on a cycle, or the empty string.
func findCycle(deps map[string][]string) string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(deps))

	var visit func(id string) string
	visit = func(id string) string {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return dep
			case white:
				if hit := visit(dep); hit != "" {
					return hit
				}
			}
		}
		color[id] = black
		return ""
	}

	for id := range deps {
		if color[id] == white {
			if hit := visit(id); hit != "" {
				return hit
			}
		}
	}
	return ""
}

// DefaultPlan returns the built-in research report outline used when no
// plan file is configured.
func DefaultPlan() Plan {
	three := 3
	return Plan{
		Name:  "research-report",
		Title: "Research Report",
		Sections: []PlanSection{
			{
				ID:           "introduction",
				Title:        "Introduction",
				Description:  "Motivation, problem statement, and contributions of the work.",
				MaxRevisions: &three,
			},
			{
				ID:           "literature-review",
				Title:        "Literature Review",
				Description:  "Survey of prior work and how this report relates to it.",
				MaxRevisions: &three,
				DependsOn:    []string{"introduction"},
			},
			{
				ID:           "methodology",
				Title:        "Methodology",
				Description:  "Research design, data sources, and analysis methods.",
				MaxRevisions: &three,
				DependsOn:    []string{"introduction"},
			},
			{
				ID:           "results",
				Title:        "Results",
				Description:  "Findings, presented without interpretation.",
				MaxRevisions: &three,
				DependsOn:    []string{"methodology"},
			},
			{
				ID:           "discussion",
				Title:        "Discussion",
				Description:  "Interpretation of the results against the surveyed literature.",
				MaxRevisions: &three,
				DependsOn:    []string{"results", "literature-review"},
			},
			{
				ID:           "conclusion",
				Title:        "Conclusion",
				Description:  "Summary of contributions, limitations, and future work.",
				MaxRevisions: &three,
				DependsOn:    []string{"discussion"},
			},
		},
	}
}
