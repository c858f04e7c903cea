package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the report and its sections",
	Long: `Show the report status and the per-section lifecycle: status, used
revision budget, and dependency locks.

Examples:
  reportloom status --session weekly-report
  reportloom status -s weekly-report -v`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	state, err := apiClient.State(ctx, sessionID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			exitWithError("no report for session %q; run 'reportloom init' first", sessionID)
		}
		return fmt.Errorf("get state: %w", err)
	}

	printState(state)
	return nil
}

// printState renders a report snapshot as a section table.
func printState(state report.ReportState) {
	fmt.Printf("Report %s [%s]\n\n", state.SessionID, state.ReportStatus)
	if state.FinalizeError != "" {
		fmt.Printf("Finalize failed: %s\n\n", state.FinalizeError)
	}

	if len(state.Sections) == 0 {
		fmt.Println("No sections.")
		return
	}

	fmt.Printf("%-20s %-12s %-10s %s\n", "SECTION", "STATUS", "REVISION", "TITLE")
	fmt.Println(strings.Repeat("-", 72))
	for _, sec := range state.Sections {
		revision := fmt.Sprintf("%d/%d", sec.Revision, sec.MaxRevisions)
		title := sec.Title
		if report.Locked(sec, state.Sections) {
			title += " [locked: " + strings.Join(sec.DependsOn, ", ") + "]"
		}
		fmt.Printf("%-20s %-12s %-10s %s\n", sec.ID, sec.Status, revision, title)

		if verbose {
			if sec.Feedback != "" {
				fmt.Printf("  Feedback: %s\n", sec.Feedback)
			}
			if sec.Error != "" {
				fmt.Printf("  Error: %s\n", sec.Error)
			}
			if sec.Content != "" {
				fmt.Printf("  Content: %s\n", preview(sec.Content, 80))
			}
			if len(sec.History) > 0 {
				fmt.Printf("  Drafts: %d (last by %s)\n", len(sec.History), sec.History[len(sec.History)-1].ModelName)
			}
		}
	}
}

// preview flattens content to a single trimmed line.
func preview(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
