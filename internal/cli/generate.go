package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <section-id>",
	Short: "Start drafting a section",
	Long: `Ask the server to draft a section. The draft is produced in the
background; the section shows as generating until it lands in review.
A section can only be generated while planned or errored, and only
once every section it depends on has been accepted.

Examples:
  reportloom generate introduction
  reportloom generate results -s weekly-report
  reportloom watch    # follow the draft as it lands`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	sectionID := args[0]
	ctx := context.Background()

	// Fetch a snapshot first so obvious mistakes fail without the round trip.
	if err := session.Sync(ctx); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}

	sec, err := session.GenerateSection(ctx, sectionID)
	if err != nil {
		return fmt.Errorf("generate section: %w", err)
	}

	fmt.Printf("Section %s is %s (revision %d/%d).\n", sec.ID, sec.Status, sec.Revision, sec.MaxRevisions)
	fmt.Println("Run 'reportloom watch' to follow it, or 'reportloom status' to check later.")
	return nil
}
