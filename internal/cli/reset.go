package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset <section-id>",
	Short: "Return a section to planned",
	Long: `Reset a section to planned, discarding its content, feedback, and
revision history. Resetting an accepted section requires --force as an
acknowledgement that sections depending on it were built against the
discarded content.

Examples:
  reportloom reset results
  reportloom reset introduction --force`,
	Args: cobra.ExactArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "allow resetting an accepted section")
}

func runReset(cmd *cobra.Command, args []string) error {
	sectionID := args[0]
	ctx := context.Background()

	if err := session.Sync(ctx); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}

	sec, err := session.ResetSection(ctx, sectionID, resetForce)
	if err != nil {
		return fmt.Errorf("reset section: %w", err)
	}

	fmt.Printf("Section %s reset to %s.\n", sec.ID, sec.Status)
	return nil
}
