package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initDryRun bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or confirm the report for this session",
	Long: `Create the report for the session from the server's plan, or confirm
an existing one. With --dry-run the server answers with the sections
the plan would instantiate without persisting anything, so you can
inspect the outline before committing.

Examples:
  reportloom init --session weekly-report
  reportloom init --session weekly-report --dry-run`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "preview the plan without creating the report")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	state, err := session.Init(ctx, !initDryRun)
	if err != nil {
		return fmt.Errorf("init report: %w", err)
	}

	if initDryRun {
		fmt.Printf("Plan preview for session %s (nothing created):\n\n", sessionID)
	} else {
		fmt.Printf("Report ready for session %s:\n\n", sessionID)
	}
	printState(state)

	if initDryRun {
		fmt.Println("\nRun again without --dry-run to create the report.")
	}
	return nil
}
