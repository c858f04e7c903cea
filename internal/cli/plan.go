package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/report"
)

var planCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Validate and print a report plan",
	Long: `Validate a YAML plan file and print the outline it would instantiate:
section order, dependency edges, and revision budgets. Without a file
the built-in default plan is printed.

Validation catches duplicate ids, unknown or self-referencing
dependencies, and dependency cycles before the server ever sees the
plan.

Examples:
  reportloom plan
  reportloom plan ./plans/quarterly.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	var (
		plan report.Plan
		err  error
	)
	if len(args) == 1 {
		plan, err = report.LoadPlan(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Plan %s is valid.\n\n", args[0])
	} else {
		plan = report.DefaultPlan()
		fmt.Println("Built-in default plan:")
		fmt.Println()
	}

	title := plan.Title
	if title == "" {
		title = plan.Name
	}
	fmt.Printf("%s (%s), %d sections\n\n", title, plan.Name, len(plan.Sections))

	fmt.Printf("%-20s %-10s %-12s %s\n", "SECTION", "BUDGET", "DEPENDS ON", "TITLE")
	fmt.Println(strings.Repeat("-", 72))
	for _, ps := range plan.Sections {
		budget := fmt.Sprintf("%d", report.DefaultMaxRevisions)
		if ps.MaxRevisions != nil {
			budget = fmt.Sprintf("%d", *ps.MaxRevisions)
		}
		deps := "-"
		if len(ps.DependsOn) > 0 {
			deps = strings.Join(ps.DependsOn, ",")
		}
		fmt.Printf("%-20s %-10s %-12s %s\n", ps.ID, budget, deps, ps.Title)
		if verbose && ps.Description != "" {
			fmt.Printf("  %s\n", ps.Description)
		}
	}
	return nil
}
