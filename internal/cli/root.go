// Package cli provides the command-line interface for reportloom.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reportloom/reportloom/internal/client"
	"github.com/reportloom/reportloom/internal/workflow"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	serverURL string
	sessionID string

	// Shared client and session, set up in PersistentPreRunE
	apiClient *client.Client
	session   *workflow.Session
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reportloom",
	Short: "Section-based report generation workflow",
	Long: `Reportloom drives a report through its section lifecycle: plan the
sections, generate drafts, review and steer revisions, then finalize
the accepted sections into a single document.

Every command operates on one report session, selected with --session
or the REPORTLOOM_SESSION environment variable.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "help", "plan":
			return nil
		}

		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		apiClient = client.New(serverURL)

		// stats is server-wide; every other command targets one session.
		if cmd.Name() == "stats" {
			return nil
		}

		if sessionID == "" {
			sessionID = os.Getenv("REPORTLOOM_SESSION")
		}
		if strings.TrimSpace(sessionID) == "" {
			return fmt.Errorf("session id required (--session or REPORTLOOM_SESSION)")
		}
		session = workflow.NewSession(apiClient, sessionID, workflow.Options{Logger: logger})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default REPORTLOOM_SERVER_URL or http://localhost:8090)")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "", "report session id (default REPORTLOOM_SESSION)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(statsCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
