package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server operation statistics",
	Long: `Show the server's in-memory operation statistics: call counts and
timings per workflow operation plus the background jobs.

Examples:
  reportloom stats`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	snap, err := apiClient.Stats(ctx)
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}

	fmt.Printf("Server Statistics (in-memory, since restart)\n")
	fmt.Printf("═══════════════════════════════════════════════\n")
	fmt.Printf("Uptime: %.1f seconds\n", snap.UptimeSeconds)

	printOpStats("Init", snap.Init)
	printOpStats("Get State", snap.GetState)
	printOpStats("Generate", snap.Generate)
	printOpStats("Review", snap.Review)
	printOpStats("Reset", snap.Reset)
	printOpStats("Finalize", snap.Finalize)
	printOpStats("Export", snap.Export)
	printOpStats("Generation Jobs", snap.GenerationJob)
	printOpStats("Finalize Jobs", snap.FinalizeJob)

	return nil
}

// printOpStats displays timing statistics for an operation.
func printOpStats(name string, op *metrics.OperationSnapshot) {
	if op == nil {
		return
	}
	fmt.Printf("\n%s:\n", name)
	fmt.Printf("  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
	fmt.Printf("  Time: avg %.1fms, min %dms, max %dms\n",
		op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
}
