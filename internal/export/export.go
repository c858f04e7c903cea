// Package export assembles accepted sections into a final document and
// converts it to the requested output format.
package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reportloom/reportloom/internal/report"
)

// ErrUnsupportedFormat indicates a format outside the supported set.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is a supported output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatDocx     Format = "docx"
	FormatPDF      Format = "pdf"
)

// ParseFormat validates a format parameter.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatDocx:
		return FormatDocx, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	switch f {
	case FormatDocx:
		return "docx"
	case FormatPDF:
		return "pdf"
	default:
		return "md"
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatDocx:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown"
	}
}

// Assemble renders the report as a markdown document: the title, then every
// section in authoring order under its own heading. Section content is the
// body text; headings are added here so the document structure does not
// depend on what the generator returned.
func Assemble(r *report.Report) []byte {
	blocks := make([]string, 0, len(r.Sections)+1)
	if r.Title != "" {
		blocks = append(blocks, "# "+r.Title)
	}
	for i := range r.Sections {
		sec := &r.Sections[i]
		block := "## " + sec.Title
		if content := strings.TrimSpace(sec.Content); content != "" {
			block += "\n\n" + content
		}
		blocks = append(blocks, block)
	}
	return []byte(strings.Join(blocks, "\n\n") + "\n")
}
