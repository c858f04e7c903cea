package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Download the finished document",
	Long: `Download the completed report. Markdown is always available; docx and
pdf need a render service configured on the server.

The file lands in the current directory under the server-chosen name
unless --output says otherwise.

Examples:
  reportloom export
  reportloom export --format pdf
  reportloom export --format docx --output ./out/report.docx`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "export format: markdown, docx, or pdf")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default: server filename in the current directory)")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	doc, err := apiClient.Export(ctx, sessionID, exportFormat)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	path := exportOutput
	if path == "" {
		path = doc.Filename
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, doc.Data, 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}

	fmt.Printf("Exported %s (%d bytes) to %s\n", doc.ContentType, len(doc.Data), path)
	return nil
}
