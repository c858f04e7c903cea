package generator

import (
	"context"
	"fmt"
	"strings"
)

// StaticModelName is reported in history entries for builtin drafts.
const StaticModelName = "builtin-template"

// Static renders deterministic placeholder drafts from the section plan.
// It keeps the workflow usable without an external generation service.
type Static struct{}

// Compile-time check that Static implements Generator.
var _ Generator = (*Static)(nil)

// NewStatic creates the builtin template generator.
func NewStatic() *Static {
	return &Static{}
}

// Generate renders a draft immediately. Content is the section body; the
// section heading is added at assembly time.
func (*Static) Generate(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	var b strings.Builder
	if req.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", req.Description)
	}
	if req.Revision == 0 {
		b.WriteString("This draft outlines the section and is awaiting review.\n")
	} else {
		fmt.Fprintf(&b, "This draft is revision %d.\n", req.Revision)
		if req.Feedback != "" {
			fmt.Fprintf(&b, "\nAddressed feedback: %s\n", req.Feedback)
		}
	}

	return Result{Content: b.String(), ModelName: StaticModelName}, nil
}
