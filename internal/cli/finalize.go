package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/report"
)

var finalizeWatch bool

var finalizeCmd = &cobra.Command{
	Use:   "finalize",
	Short: "Assemble the accepted sections into the final document",
	Long: `Start the finalize pass: the server validates that every section is
accepted with content, assembles the document, and marks the report
completed. The pass runs in the background; --watch follows it live.

Examples:
  reportloom finalize
  reportloom finalize --watch
  reportloom finalize -s weekly-report --watch`,
	RunE: runFinalize,
}

func init() {
	finalizeCmd.Flags().BoolVarP(&finalizeWatch, "watch", "w", false, "follow the finalize pass until it settles")
}

func runFinalize(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if err := session.Sync(ctx); err != nil {
		return fmt.Errorf("sync session: %w", err)
	}

	state, err := session.Finalize(ctx)
	if err != nil {
		return fmt.Errorf("finalize report: %w", err)
	}
	fmt.Printf("Finalize started, report is %s.\n", state.ReportStatus)

	if !finalizeWatch {
		fmt.Println("Run 'reportloom watch' to follow it, or 'reportloom status' to check later.")
		return nil
	}

	if err := runWatchUI(session); err != nil {
		return err
	}

	final := session.State()
	switch final.ReportStatus {
	case report.StatusCompleted:
		fmt.Println("Report completed. Run 'reportloom export' to download it.")
	case report.StatusFailed:
		return fmt.Errorf("finalize failed: %s", final.FinalizeError)
	}
	return nil
}
