package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/report"
)

var (
	reviewAccept   bool
	reviewReject   bool
	reviewFeedback string
)

var reviewCmd = &cobra.Command{
	Use:   "review <section-id>",
	Short: "Accept or reject a drafted section",
	Long: `Submit a review verdict for a section awaiting review. Accepting
freezes the content. Rejecting consumes one revision and immediately
regenerates the section steered by --feedback, which is required: an
unexplained rejection would reproduce the same draft.

Examples:
  reportloom review introduction --accept
  reportloom review results --reject --feedback "Cite the 2024 survey."`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewAccept, "accept", false, "accept the draft")
	reviewCmd.Flags().BoolVar(&reviewReject, "reject", false, "reject the draft and regenerate")
	reviewCmd.Flags().StringVarP(&reviewFeedback, "feedback", "f", "", "steering feedback for a rejection")
}

func runReview(cmd *cobra.Command, args []string) error {
	sectionID := args[0]
	if reviewAccept == reviewReject {
		return fmt.Errorf("pass exactly one of --accept or --reject")
	}

	ctx := context.Background()
	if err := session.Sync(ctx); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}

	sec, err := session.SubmitReview(ctx, sectionID, reviewAccept, reviewFeedback)
	if err != nil {
		return fmt.Errorf("submit review: %w", err)
	}

	if reviewAccept {
		fmt.Printf("Section %s accepted.\n", sec.ID)
		if session.State().ReportStatus == report.StatusAwaitingFinalReview {
			fmt.Println("All sections accepted. Run 'reportloom finalize' to assemble the document.")
		}
		return nil
	}

	fmt.Printf("Section %s rejected, regenerating (revision %d/%d).\n", sec.ID, sec.Revision, sec.MaxRevisions)
	fmt.Println("Run 'reportloom watch' to follow the new draft.")
	return nil
}
