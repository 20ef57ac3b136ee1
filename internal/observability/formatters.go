// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/findings"
	"github.com/aws-samples/sample-genai-assisted-design-reviews-with-arc/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintPolicy outputs a human-readable summary of a built policy.
func (p *Printer) PrintPolicy(policy *types.Policy) {
	if policy == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Name:     %s\n", policy.Name))
	sb.WriteString(fmt.Sprintf("Version:  %s\n", policy.Version))
	sb.WriteString("\n")

	if len(policy.Variables) > 0 {
		sb.WriteString("Variables:\n")
		count := min(len(policy.Variables), maxItemsToShow)
		for i := 0; i < count; i++ {
			v := policy.Variables[i]
			sb.WriteString(fmt.Sprintf("  • %s", v.Name))
			if v.Type.Name != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", v.Type.Name))
			}
			sb.WriteString("\n")
		}
		if len(policy.Variables) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(policy.Variables)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(policy.Rules) > 0 {
		sb.WriteString("Rules:\n")
		count := min(len(policy.Rules), 3)
		for i := 0; i < count; i++ {
			expr := policy.Rules[i].AlternateExpression
			if len(expr) > 50 {
				expr = expr[:47] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", expr))
		}
		if len(policy.Rules) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(policy.Rules)-3))
		}
	}

	p.printBox("POLICY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResolvedPolicy outputs the variable assignments extracted from the
// proposal set.
func (p *Printer) PrintResolvedPolicy(rp *types.ResolvedPolicy) {
	if rp == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", rp.Name))

	assigned := rp.AssignedVariables()
	sb.WriteString(fmt.Sprintf("Resolved %d of %d variables\n\n", len(assigned), len(rp.Variables)))

	count := min(len(assigned), maxItemsToShow)
	for i := 0; i < count; i++ {
		v := assigned[i]
		value := *v.Value
		if len(value) > 40 {
			value = value[:37] + "..."
		}
		sb.WriteString(fmt.Sprintf("  • %s = %s\n", v.Name, value))
	}
	if len(assigned) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(assigned)-maxItemsToShow))
	}

	p.printBox("RESOLVED POLICY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFindingSummary outputs the verdicts for a policy with severity markers.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintFindingSummary(policyName string, all []findings.Finding) {
	if len(all) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "NO FINDINGS: "+policyName)
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n\n", policyName))

	for i, f := range all {
		marker := "⚠"
		switch findings.SeverityOf(f) {
		case findings.SeveritySuccess:
			marker = "✓"
		case findings.SeverityError:
			marker = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %s\n", marker, f.Kind()))
		if i < len(all)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("COMPLIANCE FINDINGS", sb.String())
}
